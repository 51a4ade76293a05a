package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
)

func (h *Handlers) invite(ctx context.Context, actorID uuid.UUID, req *events.InviteRequest) error {
	room, err := h.store.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		return apperr.ErrRoomNotFound
	}

	invitee, err := h.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if invitee == nil {
		return apperr.ErrUserNotFound
	}

	inviteeIsMember, err := h.store.IsMember(ctx, room.ID, invitee.ID)
	if err != nil {
		return err
	}
	if inviteeIsMember {
		return apperr.ErrTargetAlreadyRoomMember
	}

	inviter, err := h.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if inviter == nil {
		return apperr.ErrUserNotFound
	}

	actorIsMember, err := h.store.IsMember(ctx, room.ID, actorID)
	if err != nil {
		return err
	}
	if !actorIsMember {
		return apperr.ErrNotRoomMember
	}

	invitation, err := h.store.CreateInvitation(ctx, room.ID, room.Name, invitee.ID, invitee.Username, inviter.ID, inviter.Username)
	if err != nil {
		return err
	}
	if invitation == nil {
		return apperr.ErrAlreadyInvited
	}

	h.logger.Info(ctx, "user %s invited %s to room %s", actorID, invitee.Username, room.ID)
	h.sender.Send(actorID, events.InvitationSent{
		InvitationID:    invitation.ID,
		RoomID:          invitation.RoomID,
		RoomName:        invitation.RoomName,
		InviteeUsername: invitation.InviteeUsername,
	})
	h.sender.Send(invitation.InviteeID, events.InvitationReceived{
		InvitationID:    invitation.ID,
		RoomID:          invitation.RoomID,
		RoomName:        invitation.RoomName,
		InviterUsername: invitation.InviterUsername,
	})
	return nil
}

func (h *Handlers) declineInvitation(ctx context.Context, actorID uuid.UUID, req *events.DeclineInvitationRequest) error {
	invitation, err := h.store.GetInvitationByID(ctx, req.InvitationID)
	if err != nil {
		return err
	}
	if invitation == nil {
		return apperr.ErrInvitationNotFound
	}

	declined, err := h.store.DeclineInvitation(ctx, req.InvitationID)
	if err != nil {
		return err
	}
	if declined == nil {
		return apperr.ErrNoPendingInvitation
	}

	h.logger.Info(ctx, "user %s declined invitation %s", actorID, req.InvitationID)
	h.sender.Send(actorID, events.InvitationDeclined{InvitationID: declined.ID})
	h.sender.Send(declined.InviterID, events.InviteeDeclined{
		InvitationID:    declined.ID,
		RoomID:          declined.RoomID,
		RoomName:        declined.RoomName,
		InviteeUsername: declined.InviteeUsername,
	})
	return nil
}

func (h *Handlers) getPendingInvitations(ctx context.Context, actorID uuid.UUID) error {
	invitations, err := h.store.GetPendingInvitationsForUser(ctx, actorID)
	if err != nil {
		return err
	}

	infos := make([]events.InvitationInfo, 0, len(invitations))
	for _, inv := range invitations {
		infos = append(infos, events.InvitationInfo{
			InvitationID:    inv.ID,
			RoomID:          inv.RoomID,
			RoomName:        inv.RoomName,
			Status:          inv.Status,
			InviterUsername: inv.InviterUsername,
			CreatedAt:       inv.CreatedAt,
		})
	}

	h.sender.Send(actorID, events.PendingInvitations{PendingInvitations: infos})
	return nil
}
