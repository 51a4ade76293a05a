package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns the user or nil when no such user exists.
func (db *Database) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return scanUser(db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users WHERE id = $1`,
		userID,
	))
}

func (db *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users WHERE username = $1`,
		username,
	))
}

// InsertUser creates a user; it returns nil when the username is taken.
func (db *Database) InsertUser(ctx context.Context, username, passwordHash string, role models.UserRole) (*models.User, error) {
	return scanUser(db.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (username) DO NOTHING
		 RETURNING id, username, password_hash, role, created_at`,
		uuid.New(), username, passwordHash, role,
	))
}

// DeleteUser removes the user; tokens, memberships and pre-keys cascade via
// foreign keys, authored messages keep their username snapshot.
func (db *Database) DeleteUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return scanUser(db.QueryRow(ctx,
		`DELETE FROM users WHERE id = $1
		 RETURNING id, username, password_hash, role, created_at`,
		userID,
	))
}

// SearchUsers matches usernames case-insensitively by substring.
func (db *Database) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	rows, err := db.Query(ctx,
		`SELECT id, username, password_hash, role, created_at
		 FROM users
		 WHERE username ILIKE '%' || $1 || '%'
		 LIMIT 20`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
