package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/models"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

func newTestHandlers(t *testing.T) (*Handlers, *fakeStore, *fakeSender) {
	t.Helper()
	store := newFakeStore()
	sender := newFakeSender()
	return NewHandlers(store, sender, utils.NewLogger("error")), store, sender
}

// lastErrorCode returns the code of the most recent error event delivered
// to the user, or "" if none was delivered.
func lastErrorCode(sender *fakeSender, userID uuid.UUID) string {
	evs := sender.eventsFor(userID)
	for i := len(evs) - 1; i >= 0; i-- {
		if ev, ok := evs[i].(events.ErrorEvent); ok && len(ev.Errors) > 0 {
			return ev.Errors[0].Code
		}
	}
	return ""
}

func eventsOfType[T events.ServerEvent](sender *fakeSender, userID uuid.UUID) []T {
	var out []T
	for _, ev := range sender.eventsFor(userID) {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// createRoomWith creates a room via the handler and returns it, pulling
// the id out of the room_created event.
func createRoomWith(t *testing.T, h *Handlers, store *fakeStore, sender *fakeSender, creator *models.User, name string) *models.Room {
	t.Helper()
	h.Handle(context.Background(), creator.ID, &events.CreateRoomRequest{Name: name})
	created := eventsOfType[events.RoomCreated](sender, creator.ID)
	require.NotEmpty(t, created)
	room, err := store.GetRoomByID(context.Background(), created[len(created)-1].RoomID)
	require.NoError(t, err)
	require.NotNil(t, room)
	return room
}

func inviteAndJoin(t *testing.T, h *Handlers, store *fakeStore, roomID uuid.UUID, inviter, invitee *models.User) {
	t.Helper()
	room, err := store.GetRoomByID(context.Background(), roomID)
	require.NoError(t, err)
	inv, err := store.CreateInvitation(context.Background(), room.ID, room.Name, invitee.ID, invitee.Username, inviter.ID, inviter.Username)
	require.NoError(t, err)
	require.NotNil(t, inv)
	h.Handle(context.Background(), invitee.ID, &events.JoinRoomRequest{InvitationID: inv.ID})
}

func TestCreateRoom(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")

	room := createRoomWith(t, h, store, sender, alice, "book club")

	assert.Equal(t, "book club", room.Name)
	assert.Equal(t, alice.ID, room.AdminID)
	assert.Equal(t, "alice", room.AdminUsername)

	isMember, err := store.IsMember(context.Background(), room.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isMember, "creator joins their own room")
}

func TestInviteFanOut(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})

	sent := eventsOfType[events.InvitationSent](sender, alice.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, room.ID, sent[0].RoomID)
	assert.Equal(t, "bob", sent[0].InviteeUsername)

	received := eventsOfType[events.InvitationReceived](sender, bob.ID)
	require.Len(t, received, 1)
	assert.Equal(t, sent[0].InvitationID, received[0].InvitationID)
	assert.Equal(t, "alice", received[0].InviterUsername)
}

func TestInvitePreconditions(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	store.addUser("bob")
	carol := store.addUser("carol")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: uuid.New(), Username: "bob"})
	assert.Equal(t, "room_not_found", lastErrorCode(sender, alice.ID))

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "nobody"})
	assert.Equal(t, "user_not_found", lastErrorCode(sender, alice.ID))

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "alice"})
	assert.Equal(t, "target_already_room_member", lastErrorCode(sender, alice.ID))

	// carol is not a member, so she cannot invite.
	h.Handle(context.Background(), carol.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	assert.Equal(t, "not_room_member", lastErrorCode(sender, carol.ID))

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	assert.Equal(t, "already_invited", lastErrorCode(sender, alice.ID))
}

func TestJoinRoomFanOut(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	sender.reset()

	inviteAndJoin(t, h, store, room.ID, alice, bob)

	// Pre-join members get member_joined; bob does not.
	joined := eventsOfType[events.MemberJoined](sender, alice.ID)
	require.Len(t, joined, 1)
	assert.Equal(t, "bob", joined[0].Username)
	assert.Empty(t, eventsOfType[events.MemberJoined](sender, bob.ID))

	// The joiner gets room_joined with the room's denormalized names.
	roomJoined := eventsOfType[events.RoomJoined](sender, bob.ID)
	require.Len(t, roomJoined, 1)
	assert.Equal(t, "alice", roomJoined[0].AdminUsername)
	assert.Equal(t, "alice", roomJoined[0].CreatorUsername)

	// The stored system message reaches the post-join membership, bob
	// included.
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		sys := eventsOfType[events.MessageReceived](sender, id)
		require.Len(t, sys, 1)
		assert.Equal(t, models.MessageSystem, sys[0].MessageType)
		assert.JSONEq(t, `{"type":"joined","username":"bob"}`, sys[0].Content)
	}
}

func TestJoinRoomAlreadyMember(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	inv, err := store.CreateInvitation(context.Background(), room.ID, room.Name, alice.ID, alice.Username, alice.ID, alice.Username)
	require.NoError(t, err)
	h.Handle(context.Background(), alice.ID, &events.JoinRoomRequest{InvitationID: inv.ID})
	assert.Equal(t, "already_room_member", lastErrorCode(sender, alice.ID))
}

func TestJoinRoomMissingInvitation(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	bob := store.addUser("bob")

	h.Handle(context.Background(), bob.ID, &events.JoinRoomRequest{InvitationID: uuid.New()})
	assert.Equal(t, "no_pending_invitation", lastErrorCode(sender, bob.ID))
}

func TestLeaveRoomPromotesAdminAndBroadcasts(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.LeaveRoomRequest{RoomID: room.ID})

	left := eventsOfType[events.RoomLeft](sender, alice.ID)
	require.Len(t, left, 1)
	assert.Equal(t, room.ID, left[0].RoomID)

	// The leaver is gone before the broadcast, so only bob sees it.
	sys := eventsOfType[events.MessageReceived](sender, bob.ID)
	require.Len(t, sys, 1)
	assert.JSONEq(t, `{"type":"left","username":"alice"}`, sys[0].Content)
	assert.Empty(t, eventsOfType[events.MessageReceived](sender, alice.ID))

	// Adminship moved to the remaining member.
	after, err := store.GetRoomByID(context.Background(), room.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, bob.ID, after.AdminID)
	assert.Equal(t, "bob", after.AdminUsername)
}

func TestLeaveRoomLastMemberDeletesRoom(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.LeaveRoomRequest{RoomID: room.ID})

	// Both parties of the now defunct invitation learn the room is gone.
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		deleted := eventsOfType[events.RoomDeleted](sender, id)
		require.Len(t, deleted, 1, "room_deleted for %s", id)
		assert.Equal(t, room.ID, deleted[0].RoomID)
	}
	require.Len(t, eventsOfType[events.RoomLeft](sender, alice.ID), 1)

	after, err := store.GetRoomByID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Nil(t, after)
}

func TestLeaveRoomRequiresMembership(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	carol := store.addUser("carol")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), carol.ID, &events.LeaveRoomRequest{RoomID: room.ID})
	assert.Equal(t, "not_room_member", lastErrorCode(sender, carol.ID))

	h.Handle(context.Background(), carol.ID, &events.LeaveRoomRequest{RoomID: uuid.New()})
	assert.Equal(t, "room_not_found", lastErrorCode(sender, carol.ID))
}

func TestUpdateRoomAdminOnly(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), bob.ID, &events.UpdateRoomRequest{RoomID: room.ID, Name: "hijacked"})
	assert.Equal(t, "not_room_admin", lastErrorCode(sender, bob.ID))

	h.Handle(context.Background(), alice.ID, &events.UpdateRoomRequest{RoomID: room.ID, Name: "film club"})
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		updated := eventsOfType[events.RoomUpdated](sender, id)
		require.Len(t, updated, 1)
		assert.Equal(t, "film club", updated[0].RoomName)
	}
}

func TestDeleteRoomNotifiesMembersAtDeleteTime(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.DeleteRoomRequest{RoomID: room.ID})

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		deleted := eventsOfType[events.RoomDeleted](sender, id)
		require.Len(t, deleted, 1)
		assert.Equal(t, room.ID, deleted[0].RoomID)
	}
}

func TestKickMember(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.KickMemberRequest{RoomID: room.ID, Username: "bob"})

	// The kicked user still learns of the kick even though they are no
	// longer in the broadcast set.
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		kicked := eventsOfType[events.MemberKicked](sender, id)
		require.Len(t, kicked, 1)
		assert.Equal(t, "bob", kicked[0].Username)

		sys := eventsOfType[events.MessageReceived](sender, id)
		require.Len(t, sys, 1)
		assert.JSONEq(t, `{"type":"kicked","username":"bob","by":"alice"}`, sys[0].Content)
	}

	isMember, err := store.IsMember(context.Background(), room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestKickMemberErrors(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	store.addUser("carol")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)

	h.Handle(context.Background(), bob.ID, &events.KickMemberRequest{RoomID: room.ID, Username: "alice"})
	assert.Equal(t, "not_room_admin", lastErrorCode(sender, bob.ID))

	h.Handle(context.Background(), alice.ID, &events.KickMemberRequest{RoomID: room.ID, Username: "carol"})
	assert.Equal(t, "target_not_room_member", lastErrorCode(sender, alice.ID))
}

func TestSendMessageFanOutAndUnread(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "ciphertext"})

	sent := eventsOfType[events.MessageSent](sender, alice.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, "ciphertext", sent[0].Content)
	assert.Equal(t, models.MessageText, sent[0].MessageType)
	assert.Empty(t, eventsOfType[events.MessageReceived](sender, alice.ID))

	received := eventsOfType[events.MessageReceived](sender, bob.ID)
	require.Len(t, received, 1)
	require.NotNil(t, received[0].AuthorUsername)
	assert.Equal(t, "alice", *received[0].AuthorUsername)

	bobMember := store.members[room.ID][bob.ID]
	assert.EqualValues(t, 1, bobMember.UnreadCount)
	aliceMember := store.members[room.ID][alice.ID]
	assert.EqualValues(t, 0, aliceMember.UnreadCount)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	carol := store.addUser("carol")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), carol.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "x"})
	assert.Equal(t, "not_room_member", lastErrorCode(sender, carol.ID))
}

func TestEditMessage(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "v1"})
	sent := eventsOfType[events.MessageSent](sender, alice.ID)
	require.Len(t, sent, 1)
	msgID := sent[0].MessageID

	// Only the author may edit.
	h.Handle(context.Background(), bob.ID, &events.EditMessageRequest{MessageID: msgID, NewContent: "v2"})
	assert.Equal(t, "not_message_author", lastErrorCode(sender, bob.ID))

	h.Handle(context.Background(), alice.ID, &events.EditMessageRequest{MessageID: msgID, NewContent: "v2"})
	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		edited := eventsOfType[events.MessageEdited](sender, id)
		require.Len(t, edited, 1)
		assert.Equal(t, "v2", edited[0].NewContent)
	}
}

func TestEditMessageTombstoned(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), alice.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "v1"})
	sent := eventsOfType[events.MessageSent](sender, alice.ID)
	require.Len(t, sent, 1)
	msgID := sent[0].MessageID

	h.Handle(context.Background(), alice.ID, &events.DeleteMessageRequest{MessageID: msgID})
	require.Len(t, eventsOfType[events.MessageDeleted](sender, alice.ID), 1)

	h.Handle(context.Background(), alice.ID, &events.EditMessageRequest{MessageID: msgID, NewContent: "v2"})
	assert.Equal(t, "message_not_found", lastErrorCode(sender, alice.ID))
}

func TestGetMessagesMarksRoomRead(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	h.Handle(context.Background(), alice.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "hi"})
	require.EqualValues(t, 1, store.members[room.ID][bob.ID].UnreadCount)
	sender.reset()

	h.Handle(context.Background(), bob.ID, &events.GetMessagesRequest{RoomID: room.ID, Limit: 50})

	history := eventsOfType[events.MessageHistory](sender, bob.ID)
	require.Len(t, history, 1)
	// The join system message plus alice's message.
	require.Len(t, history[0].Messages, 2)
	assert.EqualValues(t, 0, store.members[room.ID][bob.ID].UnreadCount)
}

func TestDeclineInvitation(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")

	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	received := eventsOfType[events.InvitationReceived](sender, bob.ID)
	require.Len(t, received, 1)
	sender.reset()

	h.Handle(context.Background(), bob.ID, &events.DeclineInvitationRequest{InvitationID: received[0].InvitationID})

	declined := eventsOfType[events.InvitationDeclined](sender, bob.ID)
	require.Len(t, declined, 1)
	inviterSide := eventsOfType[events.InviteeDeclined](sender, alice.ID)
	require.Len(t, inviterSide, 1)
	assert.Equal(t, "bob", inviterSide[0].InviteeUsername)

	// Declining again is rejected: the row is no longer pending.
	h.Handle(context.Background(), bob.ID, &events.DeclineInvitationRequest{InvitationID: received[0].InvitationID})
	assert.Equal(t, "no_pending_invitation", lastErrorCode(sender, bob.ID))
}

func TestGetPendingInvitations(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	h.Handle(context.Background(), alice.ID, &events.InviteRequest{RoomID: room.ID, Username: "bob"})
	sender.reset()

	h.Handle(context.Background(), bob.ID, &events.GetPendingInvitationsRequest{})

	pending := eventsOfType[events.PendingInvitations](sender, bob.ID)
	require.Len(t, pending, 1)
	require.Len(t, pending[0].PendingInvitations, 1)
	assert.Equal(t, "alice", pending[0].PendingInvitations[0].InviterUsername)
	assert.Equal(t, models.InvitationPending, pending[0].PendingInvitations[0].Status)
}

func TestGetRoomsInfoIncludesLastMessage(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	h.Handle(context.Background(), alice.ID, &events.SendMessageRequest{RoomID: room.ID, Content: "latest"})
	sender.reset()

	h.Handle(context.Background(), alice.ID, &events.GetRoomsInfoRequest{})

	info := eventsOfType[events.RoomsInfo](sender, alice.ID)
	require.Len(t, info, 1)
	require.Len(t, info[0].Rooms, 1)
	require.NotNil(t, info[0].Rooms[0].LastMessage)
	assert.Equal(t, "latest", info[0].Rooms[0].LastMessage.Content)
}

func TestGetRoomInfo(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	room := createRoomWith(t, h, store, sender, alice, "book club")
	inviteAndJoin(t, h, store, room.ID, alice, bob)
	sender.reset()

	h.Handle(context.Background(), bob.ID, &events.GetRoomInfoRequest{RoomID: room.ID})

	info := eventsOfType[events.RoomInfoEvent](sender, bob.ID)
	require.Len(t, info, 1)
	assert.Equal(t, "alice", info[0].AdminUsername)
	assert.Len(t, info[0].Members, 2)
}

func TestDeleteAccount(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")

	h.Handle(context.Background(), alice.ID, &events.DeleteAccountRequest{})

	deleted := eventsOfType[events.AccountDeleted](sender, alice.ID)
	require.Len(t, deleted, 1)
	assert.Equal(t, alice.ID, deleted[0].UserID)

	h.Handle(context.Background(), alice.ID, &events.DeleteAccountRequest{})
	assert.Equal(t, "user_not_found", lastErrorCode(sender, alice.ID))
}

func TestSearchUsers(t *testing.T) {
	h, store, sender := newTestHandlers(t)
	alice := store.addUser("alice")
	store.addUser("alicia")
	store.addUser("bob")

	h.Handle(context.Background(), alice.ID, &events.SearchUsersRequest{Query: "ali"})

	found := eventsOfType[events.UsersFound](sender, alice.ID)
	require.Len(t, found, 1)
	assert.Len(t, found[0].Users, 2)
}
