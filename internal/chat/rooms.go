package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
)

func (h *Handlers) createRoom(ctx context.Context, actorID uuid.UUID, req *events.CreateRoomRequest) error {
	actor, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return apperr.ErrUserNotFound
	}

	room, err := h.store.CreateRoom(ctx, req.Name, actor.ID, actor.Username)
	if err != nil {
		return err
	}

	h.logger.Info(ctx, "user %s created room %s", actorID, room.ID)
	h.sender.Send(actorID, events.RoomCreated{
		RoomID:    room.ID,
		RoomName:  room.Name,
		CreatedAt: room.CreatedAt,
	})
	return nil
}

func (h *Handlers) joinRoom(ctx context.Context, actorID uuid.UUID, req *events.JoinRoomRequest) error {
	invitation, err := h.store.GetInvitationByID(ctx, req.InvitationID)
	if err != nil {
		return err
	}
	if invitation == nil {
		return apperr.ErrNoPendingInvitation
	}

	room, err := h.store.GetRoomByID(ctx, invitation.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	// Members are captured before the join so the fan-out below targets
	// exactly the pre-join membership.
	members, err := h.store.GetActiveMembers(ctx, room.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == actorID {
			return apperr.ErrAlreadyRoomMember
		}
	}

	actor, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return apperr.ErrUserNotFound
	}

	member, err := h.store.AcceptInvitationAndJoin(ctx, room.ID, room.Name, actor.ID, actor.Username)
	if err != nil {
		return err
	}
	joinedAt := time.Now()
	if member != nil {
		joinedAt = member.JoinedAt
	}

	if _, err := h.broadcastSystemMessage(ctx, room.ID, room.Name, events.SystemJoined{Username: actor.Username}); err != nil {
		h.logger.Error(ctx, "broadcasting join system message for room %s: %v", room.ID, err)
	}

	memberJoined := events.MemberJoined{
		RoomID:   room.ID,
		RoomName: room.Name,
		Username: actor.Username,
		JoinedAt: joinedAt,
	}
	for _, m := range members {
		h.sender.Send(m.UserID, memberJoined)
	}

	h.logger.Info(ctx, "user %s joined room %s", actorID, room.ID)
	h.sender.Send(actorID, events.RoomJoined{
		InvitationID:    invitation.ID,
		RoomID:          room.ID,
		RoomName:        room.Name,
		AdminUsername:   room.AdminUsername,
		CreatorUsername: room.CreatorUsername,
		CreatedAt:       room.CreatedAt,
		JoinedAt:        joinedAt,
	})
	return nil
}

func (h *Handlers) leaveRoom(ctx context.Context, actorID uuid.UUID, req *events.LeaveRoomRequest) error {
	room, err := h.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	isMember, err := h.store.IsMember(ctx, req.RoomID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotRoomMember
	}

	actor, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return apperr.ErrUserNotFound
	}

	outcome, err := h.store.LeaveRoom(ctx, req.RoomID, actorID)
	if err != nil {
		return err
	}
	if outcome == nil {
		return apperr.ErrRoomNotFound
	}

	h.logger.Info(ctx, "user %s left room %s", actorID, req.RoomID)

	if outcome.RoomDeleted {
		// The room went away with its last member. Tell the parties of
		// any pending invitations that they are now defunct.
		deleted := events.RoomDeleted{
			RoomID:   outcome.Room.ID,
			RoomName: outcome.Room.Name,
		}
		for _, inv := range outcome.PendingInvitations {
			h.sender.Send(inv.InviterID, deleted)
			h.sender.Send(inv.InviteeID, deleted)
		}
	} else {
		if _, err := h.broadcastSystemMessage(ctx, outcome.Room.ID, outcome.Room.Name, events.SystemLeft{Username: actor.Username}); err != nil {
			h.logger.Error(ctx, "broadcasting leave system message for room %s: %v", outcome.Room.ID, err)
		}
	}

	h.sender.Send(actorID, events.RoomLeft{
		RoomID:   outcome.Room.ID,
		RoomName: outcome.Room.Name,
	})
	return nil
}

func (h *Handlers) updateRoom(ctx context.Context, actorID uuid.UUID, req *events.UpdateRoomRequest) error {
	if err := h.requireAdmin(ctx, req.RoomID, actorID); err != nil {
		return err
	}

	room, err := h.store.UpdateRoomName(ctx, req.RoomID, req.Name)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	members, err := h.store.GetActiveMembers(ctx, room.ID)
	if err != nil {
		return err
	}

	h.logger.Info(ctx, "user %s renamed room %s", actorID, room.ID)
	ev := events.RoomUpdated{RoomID: room.ID, RoomName: room.Name}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	return nil
}

func (h *Handlers) deleteRoom(ctx context.Context, actorID uuid.UUID, req *events.DeleteRoomRequest) error {
	if err := h.requireAdmin(ctx, req.RoomID, actorID); err != nil {
		return err
	}

	// Capture the recipient set before the delete takes the membership
	// rows with it.
	members, err := h.store.GetActiveMembers(ctx, req.RoomID)
	if err != nil {
		return err
	}

	room, err := h.store.DeleteRoom(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	h.logger.Info(ctx, "user %s deleted room %s", actorID, room.ID)
	ev := events.RoomDeleted{RoomID: room.ID, RoomName: room.Name}
	for _, m := range members {
		h.sender.Send(m.UserID, ev)
	}
	return nil
}

func (h *Handlers) getRoomInfo(ctx context.Context, actorID uuid.UUID, req *events.GetRoomInfoRequest) error {
	room, err := h.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	members, err := h.store.GetActiveMembers(ctx, room.ID)
	if err != nil {
		return err
	}

	memberInfos := make([]events.MemberInfo, 0, len(members))
	for _, m := range members {
		memberInfos = append(memberInfos, events.MemberInfo{
			Username: m.Username,
			JoinedAt: m.JoinedAt,
		})
	}

	h.sender.Send(actorID, events.RoomInfoEvent{
		RoomID:          room.ID,
		RoomName:        room.Name,
		AdminUsername:   room.AdminUsername,
		CreatorUsername: room.CreatorUsername,
		Members:         memberInfos,
		CreatedAt:       room.CreatedAt,
	})
	return nil
}

func (h *Handlers) getRoomsInfo(ctx context.Context, actorID uuid.UUID) error {
	overviews, err := h.store.GetRoomsInfoForUser(ctx, actorID)
	if err != nil {
		return err
	}

	rooms := make([]events.RoomInfo, 0, len(overviews))
	for _, o := range overviews {
		info := events.RoomInfo{
			RoomID:      o.Member.RoomID,
			RoomName:    o.Member.RoomName,
			UnreadCount: o.Member.UnreadCount,
		}
		if o.LastMessage != nil {
			last := events.MessageInfoFrom(*o.LastMessage)
			info.LastMessage = &last
		}
		rooms = append(rooms, info)
	}

	h.sender.Send(actorID, events.RoomsInfo{Rooms: rooms})
	return nil
}

// requireAdmin checks room existence then adminship, in that order so the
// caller learns about a missing room before a permission failure.
func (h *Handlers) requireAdmin(ctx context.Context, roomID, actorID uuid.UUID) error {
	room, err := h.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	isAdmin, err := h.store.IsAdmin(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.ErrNotRoomAdmin
	}
	return nil
}
