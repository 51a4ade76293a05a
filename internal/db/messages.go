package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

const messageColumns = `id, room_id, room_name, author_id, author_username, content, message_type, status, created_at`

func scanMessage(row pgx.Row) (*models.UserMessage, error) {
	var m models.UserMessage
	err := row.Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername, &m.Content, &m.MessageType, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMessage stores a message and returns the row with its generated id
// and timestamp. Author fields are nil for system messages.
func (db *Database) InsertMessage(ctx context.Context, roomID uuid.UUID, roomName string, authorID *uuid.UUID, authorUsername *string, content string, messageType models.MessageType) (*models.UserMessage, error) {
	return scanMessage(db.QueryRow(ctx,
		`INSERT INTO messages (id, room_id, room_name, author_id, author_username, content, message_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'sent', $8)
		 RETURNING `+messageColumns,
		uuid.New(), roomID, roomName, authorID, authorUsername, content, messageType, time.Now(),
	))
}

func (db *Database) GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.UserMessage, error) {
	return scanMessage(db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID,
	))
}

// GetRoomMessages pages through the messages the member is allowed to see:
// nothing before their join and, once they left, nothing after. Results
// come back oldest first within the page.
func (db *Database) GetRoomMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int64) ([]models.UserMessage, error) {
	rows, err := db.Query(ctx,
		`SELECT m.id, m.room_id, m.room_name, m.author_id, m.author_username, m.content, m.message_type, m.status, m.created_at
		 FROM messages m
		 JOIN room_members rm ON rm.room_id = m.room_id AND rm.user_id = $2
		 WHERE m.room_id = $1
		   AND m.created_at >= rm.joined_at
		   AND (rm.left_at IS NULL OR m.created_at <= rm.left_at)
		 ORDER BY m.created_at DESC
		 LIMIT $3 OFFSET $4`,
		roomID, userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.UserMessage
	for rows.Next() {
		var m models.UserMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.RoomName, &m.AuthorID, &m.AuthorUsername, &m.Content, &m.MessageType, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// UpdateMessageContent edits a message unless it has been deleted. Returns
// nil when the message does not exist or is tombstoned.
func (db *Database) UpdateMessageContent(ctx context.Context, messageID uuid.UUID, content string) (*models.UserMessage, error) {
	return scanMessage(db.QueryRow(ctx,
		`UPDATE messages SET content = $1, status = 'edited'
		 WHERE id = $2 AND status != 'deleted'
		 RETURNING `+messageColumns,
		content, messageID,
	))
}

// DeleteMessage tombstones the row: the ciphertext is dropped but the id
// keeps its place in history.
func (db *Database) DeleteMessage(ctx context.Context, messageID uuid.UUID) (*models.UserMessage, error) {
	return scanMessage(db.QueryRow(ctx,
		`UPDATE messages SET status = 'deleted', content = ''
		 WHERE id = $1
		 RETURNING `+messageColumns,
		messageID,
	))
}
