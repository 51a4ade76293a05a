package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

const roomColumns = `id, name, creator_id, creator_username, admin_id, admin_username, created_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatorID, &room.CreatorUsername, &room.AdminID, &room.AdminUsername, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// LeaveOutcome reports what leaving a room did. When the leaver was the
// last active member the room is deleted and the room's pending
// invitations are returned so their parties can be notified.
type LeaveOutcome struct {
	Room               models.Room
	RoomDeleted        bool
	PendingInvitations []models.Invitation
}

// CreateRoom inserts the room and the creator's active membership row in
// one transaction; the creator starts as admin.
func (db *Database) CreateRoom(ctx context.Context, name string, creatorID uuid.UUID, creatorUsername string) (*models.Room, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	roomID := uuid.New()
	now := time.Now()

	room, err := scanRoom(tx.QueryRow(ctx,
		`INSERT INTO rooms (id, name, creator_id, creator_username, admin_id, admin_username, created_at)
		 VALUES ($1, $2, $3, $4, $3, $4, $5)
		 RETURNING `+roomColumns,
		roomID, name, creatorID, creatorUsername, now,
	))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO room_members (id, room_id, room_name, user_id, username, joined_at, last_read_at, unread_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $6, 0)`,
		uuid.New(), roomID, name, creatorID, creatorUsername, now,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return room, nil
}

func (db *Database) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return scanRoom(db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, roomID,
	))
}

func (db *Database) UpdateRoomName(ctx context.Context, roomID uuid.UUID, name string) (*models.Room, error) {
	return scanRoom(db.QueryRow(ctx,
		`UPDATE rooms SET name = $1 WHERE id = $2 RETURNING `+roomColumns,
		name, roomID,
	))
}

func (db *Database) DeleteRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return scanRoom(db.QueryRow(ctx,
		`DELETE FROM rooms WHERE id = $1 RETURNING `+roomColumns,
		roomID,
	))
}

// LeaveRoom applies the leave state machine in one transaction:
//   - not an active member: mark the row invisible, nothing else changes;
//   - last active member: collect the room's pending invitations, then
//     delete the room;
//   - otherwise: stamp left_at, hide the row, and if the leaver was admin
//     promote the first other active member.
//
// Returns nil when the room does not exist.
func (db *Database) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) (*LeaveOutcome, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room, err := scanRoom(tx.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, roomID,
	))
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, tx.Commit(ctx)
	}

	outcome := &LeaveOutcome{Room: *room}

	memberIDs, err := activeMemberIDs(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	isActive := false
	for _, id := range memberIDs {
		if id == userID {
			isActive = true
			break
		}
	}

	if !isActive {
		// Already left or kicked; the caller just wants the room hidden
		// from their list.
		_, err = tx.Exec(ctx,
			`UPDATE room_members SET is_visible = FALSE WHERE room_id = $1 AND user_id = $2`,
			roomID, userID,
		)
		if err != nil {
			return nil, err
		}
		return outcome, tx.Commit(ctx)
	}

	if len(memberIDs) == 1 {
		// Last member leaving. Fetch invitations first so the parties can
		// be told the room is gone.
		outcome.PendingInvitations, err = roomInvitations(ctx, tx, roomID)
		if err != nil {
			return nil, err
		}
		if _, err = tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
			return nil, err
		}
		outcome.RoomDeleted = true
		return outcome, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE room_members SET left_at = $1, is_visible = FALSE
		 WHERE room_id = $2 AND user_id = $3 AND left_at IS NULL`,
		time.Now(), roomID, userID,
	)
	if err != nil {
		return nil, err
	}

	if room.AdminID == userID {
		var newAdmin uuid.UUID
		for _, id := range memberIDs {
			if id != userID {
				newAdmin = id
				break
			}
		}
		if newAdmin == uuid.Nil {
			return nil, fmt.Errorf("no successor admin for room %s", roomID)
		}
		_, err = tx.Exec(ctx,
			`UPDATE rooms r SET admin_id = $1,
			     admin_username = (SELECT username FROM room_members WHERE room_id = r.id AND user_id = $1 AND left_at IS NULL)
			 WHERE r.id = $2`,
			newAdmin, roomID,
		)
		if err != nil {
			return nil, err
		}
	}

	return outcome, tx.Commit(ctx)
}

func activeMemberIDs(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx,
		`SELECT user_id FROM room_members WHERE room_id = $1 AND left_at IS NULL`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func roomInvitations(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) ([]models.Invitation, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE room_id = $1 AND status = 'pending'`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvitations(rows)
}
