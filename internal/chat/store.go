// Package chat implements the WebSocket command handlers. Each handler is
// a stateless function of (store, actor, request): authorization is
// re-checked against the store on every call and results fan out as
// server events through the session registry.
package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/db"
	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

// Store is the persistence surface the handlers run against. *db.Database
// implements it; tests substitute an in-memory fake.
type Store interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)

	CreateRoom(ctx context.Context, name string, creatorID uuid.UUID, creatorUsername string) (*models.Room, error)
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	UpdateRoomName(ctx context.Context, roomID uuid.UUID, name string) (*models.Room, error)
	DeleteRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) (*db.LeaveOutcome, error)

	GetActiveMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	IsAdmin(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error)
	GetRoomsInfoForUser(ctx context.Context, userID uuid.UUID) ([]db.RoomOverview, error)
	IncrementUnreadCount(ctx context.Context, roomID, userID uuid.UUID) error
	MarkRoomRead(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error)

	CreateInvitation(ctx context.Context, roomID uuid.UUID, roomName string, inviteeID uuid.UUID, inviteeUsername string, inviterID uuid.UUID, inviterUsername string) (*models.Invitation, error)
	GetInvitationByID(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)
	DeclineInvitation(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)
	GetPendingInvitationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	AcceptInvitationAndJoin(ctx context.Context, roomID uuid.UUID, roomName string, userID uuid.UUID, username string) (*models.RoomMember, error)

	InsertMessage(ctx context.Context, roomID uuid.UUID, roomName string, authorID *uuid.UUID, authorUsername *string, content string, messageType models.MessageType) (*models.UserMessage, error)
	GetMessageByID(ctx context.Context, messageID uuid.UUID) (*models.UserMessage, error)
	GetRoomMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int64) ([]models.UserMessage, error)
	UpdateMessageContent(ctx context.Context, messageID uuid.UUID, content string) (*models.UserMessage, error)
	DeleteMessage(ctx context.Context, messageID uuid.UUID) (*models.UserMessage, error)
}

// Sender delivers a server event to a user's live session, if any.
// *session.Registry implements it.
type Sender interface {
	Send(userID uuid.UUID, ev events.ServerEvent) bool
}
