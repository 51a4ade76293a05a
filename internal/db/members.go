package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

const memberColumns = `room_id, room_name, user_id, username, joined_at, left_at, is_visible, last_read_at, unread_count`

func scanMember(row pgx.Row) (*models.RoomMember, error) {
	var m models.RoomMember
	err := row.Scan(&m.RoomID, &m.RoomName, &m.UserID, &m.Username, &m.JoinedAt, &m.LeftAt, &m.IsVisible, &m.LastReadAt, &m.UnreadCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMembers(rows pgx.Rows) ([]models.RoomMember, error) {
	var members []models.RoomMember
	for rows.Next() {
		var m models.RoomMember
		if err := rows.Scan(&m.RoomID, &m.RoomName, &m.UserID, &m.Username, &m.JoinedAt, &m.LeftAt, &m.IsVisible, &m.LastReadAt, &m.UnreadCount); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetRoomMember returns the user's latest membership row regardless of
// its left state, or nil when the user was never a member. A rejoin
// creates a fresh row, so the newest one reflects current standing.
func (db *Database) GetRoomMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	return scanMember(db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM room_members
		 WHERE room_id = $1 AND user_id = $2
		 ORDER BY joined_at DESC LIMIT 1`,
		roomID, userID,
	))
}

// GetActiveMembers lists current members of the room, oldest join first.
func (db *Database) GetActiveMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	rows, err := db.Query(ctx,
		`SELECT `+memberColumns+` FROM room_members
		 WHERE room_id = $1 AND left_at IS NULL
		 ORDER BY joined_at ASC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMembers(rows)
}

// IsMember reports whether the user currently has an active membership.
func (db *Database) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL)`,
		roomID, userID,
	).Scan(&exists)
	return exists, err
}

// IsAdmin reports whether the user is the room's current admin.
func (db *Database) IsAdmin(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1 AND admin_id = $2)`,
		roomID, userID,
	).Scan(&exists)
	return exists, err
}

// RemoveMember deletes the membership row outright (a kick, not a leave)
// and returns it, or nil when no row existed.
func (db *Database) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	return scanMember(db.QueryRow(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2 RETURNING `+memberColumns,
		roomID, userID,
	))
}

// RoomOverview pairs a membership row with the room's latest message, if
// any, for the room-list payload.
type RoomOverview struct {
	Member      models.RoomMember
	LastMessage *models.UserMessage
}

// GetRoomsInfoForUser lists the user's visible rooms with each room's most
// recent message, ordered by latest activity.
func (db *Database) GetRoomsInfoForUser(ctx context.Context, userID uuid.UUID) ([]RoomOverview, error) {
	rows, err := db.Query(ctx,
		`SELECT rm.room_id, rm.room_name, rm.user_id, rm.username, rm.joined_at, rm.left_at, rm.is_visible, rm.last_read_at, rm.unread_count,
		        lm.id, lm.author_id, lm.author_username, lm.content, lm.message_type, lm.status, lm.created_at
		 FROM room_members rm
		 LEFT JOIN LATERAL (
		     SELECT m.id, m.author_id, m.author_username, m.content, m.message_type, m.status, m.created_at
		     FROM messages m
		     WHERE m.room_id = rm.room_id
		     ORDER BY m.created_at DESC
		     LIMIT 1
		 ) lm ON TRUE
		 WHERE rm.user_id = $1 AND rm.is_visible = TRUE
		 ORDER BY COALESCE(lm.created_at, rm.joined_at) DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overviews []RoomOverview
	for rows.Next() {
		var o RoomOverview
		var (
			msgID        *uuid.UUID
			msgAuthorID  *uuid.UUID
			msgAuthor    *string
			msgContent   *string
			msgType      *models.MessageType
			msgStatus    *models.MessageStatus
			msgCreatedAt *time.Time
		)
		err := rows.Scan(
			&o.Member.RoomID, &o.Member.RoomName, &o.Member.UserID, &o.Member.Username,
			&o.Member.JoinedAt, &o.Member.LeftAt, &o.Member.IsVisible, &o.Member.LastReadAt, &o.Member.UnreadCount,
			&msgID, &msgAuthorID, &msgAuthor, &msgContent, &msgType, &msgStatus, &msgCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if msgID != nil {
			o.LastMessage = &models.UserMessage{
				ID:             *msgID,
				RoomID:         o.Member.RoomID,
				RoomName:       o.Member.RoomName,
				AuthorID:       msgAuthorID,
				AuthorUsername: msgAuthor,
				Content:        *msgContent,
				MessageType:    *msgType,
				Status:         *msgStatus,
				CreatedAt:      *msgCreatedAt,
			}
		}
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

// IncrementUnreadCount bumps the unread counter for one member.
func (db *Database) IncrementUnreadCount(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := db.Exec(ctx,
		`UPDATE room_members SET unread_count = unread_count + 1 WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	return err
}

// MarkRoomRead zeroes the unread counter and stamps last_read_at.
func (db *Database) MarkRoomRead(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	return scanMember(db.QueryRow(ctx,
		`UPDATE room_members SET unread_count = 0, last_read_at = $1
		 WHERE room_id = $2 AND user_id = $3
		 RETURNING `+memberColumns,
		time.Now(), roomID, userID,
	))
}
