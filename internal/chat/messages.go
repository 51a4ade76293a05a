package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

func (h *Handlers) sendMessage(ctx context.Context, actorID uuid.UUID, req *events.SendMessageRequest) error {
	messageType := models.MessageText
	if req.MessageType != nil {
		messageType = *req.MessageType
	}

	room, err := h.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	isMember, err := h.store.IsMember(ctx, room.ID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotRoomMember
	}

	author, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if author == nil {
		return apperr.ErrUserNotFound
	}

	message, err := h.store.InsertMessage(ctx, room.ID, room.Name, &author.ID, &author.Username, req.Content, messageType)
	if err != nil {
		return err
	}

	members, err := h.store.GetActiveMembers(ctx, room.ID)
	if err != nil {
		return err
	}

	received := events.MessageReceived{
		MessageID:      message.ID,
		RoomID:         message.RoomID,
		RoomName:       message.RoomName,
		AuthorUsername: message.AuthorUsername,
		Content:        message.Content,
		MessageType:    message.MessageType,
		CreatedAt:      message.CreatedAt,
	}
	for _, m := range members {
		if m.UserID == actorID {
			continue
		}
		if err := h.store.IncrementUnreadCount(ctx, room.ID, m.UserID); err != nil {
			h.logger.Error(ctx, "incrementing unread count for user %s in room %s: %v", m.UserID, room.ID, err)
		}
		h.sender.Send(m.UserID, received)
	}

	h.sender.Send(actorID, events.MessageSent{
		MessageID:   message.ID,
		RoomID:      message.RoomID,
		RoomName:    message.RoomName,
		Content:     message.Content,
		MessageType: message.MessageType,
		CreatedAt:   message.CreatedAt,
	})
	return nil
}

func (h *Handlers) editMessage(ctx context.Context, actorID uuid.UUID, req *events.EditMessageRequest) error {
	message, err := h.store.GetMessageByID(ctx, req.MessageID)
	if err != nil {
		return err
	}
	if message == nil {
		return apperr.ErrMessageNotFound
	}

	if message.AuthorID == nil || *message.AuthorID != actorID {
		return apperr.ErrNotMessageAuthor
	}

	updated, err := h.store.UpdateMessageContent(ctx, req.MessageID, req.NewContent)
	if err != nil {
		return err
	}
	if updated == nil {
		// Tombstoned between the read and the update.
		return apperr.ErrMessageNotFound
	}

	members, err := h.store.GetActiveMembers(ctx, updated.RoomID)
	if err != nil {
		return err
	}

	h.logger.Info(ctx, "user %s edited message %s", actorID, updated.ID)
	ev := events.MessageEdited{MessageID: updated.ID, NewContent: updated.Content}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	return nil
}

func (h *Handlers) deleteMessage(ctx context.Context, actorID uuid.UUID, req *events.DeleteMessageRequest) error {
	message, err := h.store.GetMessageByID(ctx, req.MessageID)
	if err != nil {
		return err
	}
	if message == nil {
		return apperr.ErrMessageNotFound
	}

	deleted, err := h.store.DeleteMessage(ctx, req.MessageID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return apperr.ErrMessageNotFound
	}

	members, err := h.store.GetActiveMembers(ctx, deleted.RoomID)
	if err != nil {
		return err
	}

	h.logger.Info(ctx, "user %s deleted message %s", actorID, deleted.ID)
	ev := events.MessageDeleted{MessageID: deleted.ID}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	return nil
}

func (h *Handlers) getMessages(ctx context.Context, actorID uuid.UUID, req *events.GetMessagesRequest) error {
	room, err := h.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	messages, err := h.store.GetRoomMessages(ctx, room.ID, actorID, req.Limit, req.Offset)
	if err != nil {
		return err
	}

	// Reading history marks the room read.
	if _, err := h.store.MarkRoomRead(ctx, room.ID, actorID); err != nil {
		h.logger.Error(ctx, "marking room %s read for user %s: %v", room.ID, actorID, err)
	}

	infos := make([]events.MessageInfo, 0, len(messages))
	for _, m := range messages {
		infos = append(infos, events.MessageInfoFrom(m))
	}

	h.sender.Send(actorID, events.MessageHistory{
		RoomID:   room.ID,
		RoomName: room.Name,
		Messages: infos,
	})
	return nil
}
