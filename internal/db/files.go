package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

const fileColumns = `id, encrypted_data, encrypted_metadata, size_in_bytes, file_hash, uploaded_at`

func scanFile(row pgx.Row) (*models.FileRecord, error) {
	var f models.FileRecord
	err := row.Scan(&f.ID, &f.EncryptedData, &f.EncryptedMetadata, &f.SizeInBytes, &f.FileHash, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// InsertFile stores an encrypted blob and returns its record.
func (db *Database) InsertFile(ctx context.Context, encryptedData, encryptedMetadata []byte, fileHash string) (*models.FileRecord, error) {
	return scanFile(db.QueryRow(ctx,
		`INSERT INTO files (id, encrypted_data, encrypted_metadata, size_in_bytes, file_hash, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+fileColumns,
		uuid.New(), encryptedData, encryptedMetadata, int64(len(encryptedData)), fileHash, time.Now(),
	))
}

func (db *Database) GetFile(ctx context.Context, fileID uuid.UUID) (*models.FileRecord, error) {
	return scanFile(db.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, fileID,
	))
}
