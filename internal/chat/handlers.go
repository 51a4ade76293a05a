package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/models"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

// Handlers dispatches decoded client requests. It satisfies
// session.Handler.
type Handlers struct {
	store  Store
	sender Sender
	logger *utils.Logger
}

func NewHandlers(store Store, sender Sender, logger *utils.Logger) *Handlers {
	return &Handlers{
		store:  store,
		sender: sender,
		logger: logger,
	}
}

// Handle runs one command. Failures come back to the actor as an error
// event on their own mailbox; the connection stays open.
func (h *Handlers) Handle(ctx context.Context, actorID uuid.UUID, req events.ClientRequest) {
	var err error
	switch r := req.(type) {
	case *events.CreateRoomRequest:
		err = h.createRoom(ctx, actorID, r)
	case *events.JoinRoomRequest:
		err = h.joinRoom(ctx, actorID, r)
	case *events.LeaveRoomRequest:
		err = h.leaveRoom(ctx, actorID, r)
	case *events.UpdateRoomRequest:
		err = h.updateRoom(ctx, actorID, r)
	case *events.DeleteRoomRequest:
		err = h.deleteRoom(ctx, actorID, r)
	case *events.GetRoomInfoRequest:
		err = h.getRoomInfo(ctx, actorID, r)
	case *events.GetRoomsInfoRequest:
		err = h.getRoomsInfo(ctx, actorID)
	case *events.InviteRequest:
		err = h.invite(ctx, actorID, r)
	case *events.DeclineInvitationRequest:
		err = h.declineInvitation(ctx, actorID, r)
	case *events.GetPendingInvitationsRequest:
		err = h.getPendingInvitations(ctx, actorID)
	case *events.SendMessageRequest:
		err = h.sendMessage(ctx, actorID, r)
	case *events.EditMessageRequest:
		err = h.editMessage(ctx, actorID, r)
	case *events.DeleteMessageRequest:
		err = h.deleteMessage(ctx, actorID, r)
	case *events.GetMessagesRequest:
		err = h.getMessages(ctx, actorID, r)
	case *events.DeleteAccountRequest:
		err = h.deleteAccount(ctx, actorID)
	case *events.KickMemberRequest:
		err = h.kickMember(ctx, actorID, r)
	case *events.SearchUsersRequest:
		err = h.searchUsers(ctx, actorID, r)
	default:
		err = apperr.ErrInvalidRequestFormat
	}

	if err != nil {
		if apperr.From(err) == apperr.ErrInternal {
			h.logger.Error(ctx, "handler failed for user %s: %v", actorID, err)
		}
		h.sender.Send(actorID, events.ErrorFrom(err))
	}
}

// broadcastSystemMessage persists a system message and fans it out to the
// room's active members. The stored message is returned so callers can
// also show it to users no longer in the room, like a kicked member.
func (h *Handlers) broadcastSystemMessage(ctx context.Context, roomID uuid.UUID, roomName string, payload json.Marshaler) (*events.MessageReceived, error) {
	content, err := events.EncodeSystemMessage(payload)
	if err != nil {
		return nil, err
	}

	message, err := h.store.InsertMessage(ctx, roomID, roomName, nil, nil, content, models.MessageSystem)
	if err != nil {
		return nil, err
	}

	ev := events.MessageReceived{
		MessageID:      message.ID,
		RoomID:         message.RoomID,
		RoomName:       message.RoomName,
		AuthorUsername: message.AuthorUsername,
		Content:        message.Content,
		MessageType:    message.MessageType,
		CreatedAt:      message.CreatedAt,
	}

	members, err := h.store.GetActiveMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	return &ev, nil
}
