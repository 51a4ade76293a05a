package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

// KeyBundleUpload is one user's full pre-key material as posted to the
// directory.
type KeyBundleUpload struct {
	IdentityKey    string
	RegistrationID int32
	SignedPreKey   models.SignedPreKey
	OneTimePreKeys []models.OneTimePreKey
}

// UploadKeyBundle replaces the user's directory entry in one transaction:
// identity key and signed pre-key are upserted, then the one-time pool is
// cleared and refilled with exactly the uploaded batch.
func (db *Database) UploadKeyBundle(ctx context.Context, userID uuid.UUID, bundle KeyBundleUpload) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	_, err = tx.Exec(ctx,
		`INSERT INTO identity_keys (user_id, identity_key, registration_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET identity_key = EXCLUDED.identity_key, registration_id = EXCLUDED.registration_id`,
		userID, bundle.IdentityKey, bundle.RegistrationID, now,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO signed_prekeys (id, user_id, key_id, public_key, signature, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, key_id) DO UPDATE
		 SET public_key = EXCLUDED.public_key, signature = EXCLUDED.signature, created_at = EXCLUDED.created_at`,
		uuid.New(), userID, bundle.SignedPreKey.KeyID, bundle.SignedPreKey.PublicKey, bundle.SignedPreKey.Signature, now,
	)
	if err != nil {
		return err
	}

	// The upload is the new pool, not an addition to the old one.
	if _, err = tx.Exec(ctx, `DELETE FROM one_time_prekeys WHERE user_id = $1`, userID); err != nil {
		return err
	}

	keyIDs := make([]int32, len(bundle.OneTimePreKeys))
	publicKeys := make([]string, len(bundle.OneTimePreKeys))
	for i, otk := range bundle.OneTimePreKeys {
		keyIDs[i] = otk.KeyID
		publicKeys[i] = otk.PublicKey
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO one_time_prekeys (user_id, key_id, public_key, created_at)
		 SELECT $1, k, p, $4 FROM UNNEST($2::int[], $3::text[]) AS t(k, p)
		 ON CONFLICT DO NOTHING`,
		userID, keyIDs, publicKeys, now,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (db *Database) GetIdentityKey(ctx context.Context, userID uuid.UUID) (*models.IdentityKey, error) {
	var ik models.IdentityKey
	err := db.QueryRow(ctx,
		`SELECT user_id, identity_key, registration_id, created_at
		 FROM identity_keys WHERE user_id = $1`,
		userID,
	).Scan(&ik.UserID, &ik.IdentityKey, &ik.RegistrationID, &ik.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ik, nil
}

// GetSignedPreKey returns the most recently uploaded signed pre-key.
func (db *Database) GetSignedPreKey(ctx context.Context, userID uuid.UUID) (*models.SignedPreKey, error) {
	var spk models.SignedPreKey
	err := db.QueryRow(ctx,
		`SELECT id, user_id, key_id, public_key, signature, created_at
		 FROM signed_prekeys WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&spk.ID, &spk.UserID, &spk.KeyID, &spk.PublicKey, &spk.Signature, &spk.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &spk, nil
}

// ConsumeOneTimePreKey atomically removes and returns the lowest-numbered
// one-time pre-key. SKIP LOCKED keeps concurrent fetchers from handing out
// the same key; nil means the pool is empty.
func (db *Database) ConsumeOneTimePreKey(ctx context.Context, userID uuid.UUID) (*models.OneTimePreKey, error) {
	var otk models.OneTimePreKey
	err := db.QueryRow(ctx,
		`DELETE FROM one_time_prekeys
		 WHERE user_id = $1 AND key_id = (
		     SELECT key_id FROM one_time_prekeys
		     WHERE user_id = $1
		     ORDER BY key_id ASC
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING user_id, key_id, public_key, created_at`,
		userID,
	).Scan(&otk.UserID, &otk.KeyID, &otk.PublicKey, &otk.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otk, nil
}

// GetOneTimePreKeyCount reports how many unconsumed one-time pre-keys the
// user still has on the server.
func (db *Database) GetOneTimePreKeyCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM one_time_prekeys WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

// HasKeyBundle reports whether the user has registered an identity key.
func (db *Database) HasKeyBundle(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_keys WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}
