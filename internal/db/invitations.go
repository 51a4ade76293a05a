package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

const invitationColumns = `id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.RoomID, &inv.RoomName, &inv.InviteeID, &inv.InviteeUsername, &inv.InviterID, &inv.InviterUsername, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func collectInvitations(rows pgx.Rows) ([]models.Invitation, error) {
	var invitations []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.RoomID, &inv.RoomName, &inv.InviteeID, &inv.InviteeUsername, &inv.InviterID, &inv.InviterUsername, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// CreateInvitation inserts a pending invitation. The partial unique index
// on (room_id, invitee_id, inviter_id) WHERE status = 'pending' makes the
// insert a no-op when that inviter already has one outstanding; nil is
// returned in that case.
func (db *Database) CreateInvitation(ctx context.Context, roomID uuid.UUID, roomName string, inviteeID uuid.UUID, inviteeUsername string, inviterID uuid.UUID, inviterUsername string) (*models.Invitation, error) {
	return scanInvitation(db.QueryRow(ctx,
		`INSERT INTO invitations (id, room_id, room_name, invitee_id, invitee_username, inviter_id, inviter_username, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		 ON CONFLICT (room_id, invitee_id, inviter_id) WHERE status = 'pending' DO NOTHING
		 RETURNING `+invitationColumns,
		uuid.New(), roomID, roomName, inviteeID, inviteeUsername, inviterID, inviterUsername, time.Now(),
	))
}

func (db *Database) GetInvitationByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	return scanInvitation(db.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, invitationID,
	))
}

// DeclineInvitation marks a pending invitation declined. Returns nil when
// the invitation does not exist or is no longer pending.
func (db *Database) DeclineInvitation(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	return scanInvitation(db.QueryRow(ctx,
		`UPDATE invitations SET status = 'declined'
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+invitationColumns,
		invitationID,
	))
}

// GetPendingInvitationsForUser lists invitations awaiting the user's
// answer, newest first.
func (db *Database) GetPendingInvitationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	rows, err := db.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE invitee_id = $1 AND status = 'pending'
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvitations(rows)
}

// AcceptInvitationAndJoin accepts every pending invitation the user holds
// for the room and creates their membership, all in one transaction. The
// membership insert is conflict-free on rejoin because the partial unique
// index only covers active rows. Returns the new membership row.
func (db *Database) AcceptInvitationAndJoin(ctx context.Context, roomID uuid.UUID, roomName string, userID uuid.UUID, username string) (*models.RoomMember, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE invitations SET status = 'accepted'
		 WHERE room_id = $1 AND invitee_id = $2 AND status = 'pending'`,
		roomID, userID,
	)
	if err != nil {
		return nil, err
	}

	member, err := scanMember(tx.QueryRow(ctx,
		`INSERT INTO room_members (id, room_id, room_name, user_id, username, joined_at, last_read_at, unread_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $6, 0)
		 ON CONFLICT (room_id, user_id) WHERE left_at IS NULL DO NOTHING
		 RETURNING `+memberColumns,
		uuid.New(), roomID, roomName, userID, username, time.Now(),
	))
	if err != nil {
		return nil, err
	}

	return member, tx.Commit(ctx)
}
