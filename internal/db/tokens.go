package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

func scanRefreshToken(row pgx.Row) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (db *Database) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	return scanRefreshToken(db.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	))
}

func (db *Database) InsertRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresIn time.Duration) (*models.RefreshToken, error) {
	createdAt := time.Now()
	return scanRefreshToken(db.QueryRow(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, token_hash, expires_at, created_at`,
		uuid.New(), userID, tokenHash, createdAt.Add(expiresIn), createdAt,
	))
}

// DeleteRefreshTokenByHash removes a token, enforcing single use. It
// returns nil when the token was already consumed.
func (db *Database) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	return scanRefreshToken(db.QueryRow(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1
		 RETURNING id, user_id, token_hash, expires_at, created_at`,
		tokenHash,
	))
}
