package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
)

func (h *Handlers) deleteAccount(ctx context.Context, actorID uuid.UUID) error {
	user, err := h.store.DeleteUser(ctx, actorID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.ErrUserNotFound
	}

	h.logger.Info(ctx, "user %s deleted their account", actorID)
	h.sender.Send(actorID, events.AccountDeleted{UserID: user.ID})
	return nil
}

func (h *Handlers) kickMember(ctx context.Context, actorID uuid.UUID, req *events.KickMemberRequest) error {
	if err := h.requireAdmin(ctx, req.RoomID, actorID); err != nil {
		return err
	}

	target, err := h.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if target == nil {
		return apperr.ErrUserNotFound
	}

	removed, err := h.store.RemoveMember(ctx, req.RoomID, target.ID)
	if err != nil {
		return err
	}
	if removed == nil {
		return apperr.ErrTargetNotRoomMember
	}

	admin, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	adminUsername := "Admin"
	if admin != nil {
		adminUsername = admin.Username
	}

	h.logger.Info(ctx, "user %s kicked %s from room %s", actorID, removed.Username, req.RoomID)

	sysMsg, err := h.broadcastSystemMessage(ctx, removed.RoomID, removed.RoomName, events.SystemKicked{
		Username: removed.Username,
		By:       adminUsername,
	})
	if err != nil {
		h.logger.Error(ctx, "broadcasting kick system message for room %s: %v", removed.RoomID, err)
	} else {
		// The kicked user is no longer a member, so the broadcast missed
		// them; deliver the system message directly.
		h.sender.Send(removed.UserID, *sysMsg)
	}

	members, err := h.store.GetActiveMembers(ctx, removed.RoomID)
	if err != nil {
		return err
	}
	ev := events.MemberKicked{
		RoomID:   removed.RoomID,
		RoomName: removed.RoomName,
		Username: removed.Username,
	}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	h.sender.Send(removed.UserID, ev)
	return nil
}

func (h *Handlers) searchUsers(ctx context.Context, actorID uuid.UUID, req *events.SearchUsersRequest) error {
	users, err := h.store.SearchUsers(ctx, req.Query)
	if err != nil {
		return err
	}

	infos := make([]events.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, events.UserInfo{
			Username:  u.Username,
			CreatedAt: u.CreatedAt,
		})
	}

	h.sender.Send(actorID, events.UsersFound{Users: infos})
	return nil
}
