package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/db"
	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

// fakeStore is an in-memory Store mirroring the repository semantics:
// nil results for missing rows, active membership as left_at==nil, and
// the leave-room outcome variants.
type fakeStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	rooms       map[uuid.UUID]*models.Room
	members     map[uuid.UUID]map[uuid.UUID]*models.RoomMember
	invitations map[uuid.UUID]*models.Invitation
	messages    map[uuid.UUID]*models.UserMessage
	messageLog  []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[uuid.UUID]*models.User),
		rooms:       make(map[uuid.UUID]*models.Room),
		members:     make(map[uuid.UUID]map[uuid.UUID]*models.RoomMember),
		invitations: make(map[uuid.UUID]*models.Invitation),
		messages:    make(map[uuid.UUID]*models.UserMessage),
	}
}

func (f *fakeStore) addUser(username string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.New(), Username: username, Role: models.RoleUser, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	delete(f.users, id)
	return u, nil
}

func (f *fakeStore) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if strings.Contains(u.Username, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRoom(_ context.Context, name string, creatorID uuid.UUID, creatorUsername string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := &models.Room{
		ID:              uuid.New(),
		Name:            name,
		CreatorID:       creatorID,
		CreatorUsername: creatorUsername,
		AdminID:         creatorID,
		AdminUsername:   creatorUsername,
		CreatedAt:       time.Now(),
	}
	f.rooms[room.ID] = room
	f.members[room.ID] = map[uuid.UUID]*models.RoomMember{
		creatorID: {
			RoomID:     room.ID,
			RoomName:   name,
			UserID:     creatorID,
			Username:   creatorUsername,
			JoinedAt:   room.CreatedAt,
			IsVisible:  true,
			LastReadAt: room.CreatedAt,
		},
	}
	return room, nil
}

func (f *fakeStore) GetRoomByID(_ context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[id], nil
}

func (f *fakeStore) UpdateRoomName(_ context.Context, id uuid.UUID, name string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[id]
	if room == nil {
		return nil, nil
	}
	room.Name = name
	return room, nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[id]
	delete(f.rooms, id)
	delete(f.members, id)
	return room, nil
}

func (f *fakeStore) LeaveRoom(_ context.Context, roomID, userID uuid.UUID) (*db.LeaveOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[roomID]
	if room == nil {
		return nil, nil
	}
	outcome := &db.LeaveOutcome{Room: *room}

	member := f.members[roomID][userID]
	if member == nil || member.LeftAt != nil {
		if member != nil {
			member.IsVisible = false
		}
		return outcome, nil
	}

	var activeOthers []*models.RoomMember
	for _, m := range f.members[roomID] {
		if m.UserID != userID && m.LeftAt == nil {
			activeOthers = append(activeOthers, m)
		}
	}

	if len(activeOthers) == 0 {
		for _, inv := range f.invitations {
			if inv.RoomID == roomID && inv.Status == models.InvitationPending {
				outcome.PendingInvitations = append(outcome.PendingInvitations, *inv)
			}
		}
		delete(f.rooms, roomID)
		delete(f.members, roomID)
		outcome.RoomDeleted = true
		return outcome, nil
	}

	now := time.Now()
	member.LeftAt = &now
	member.IsVisible = false
	if room.AdminID == userID {
		room.AdminID = activeOthers[0].UserID
		room.AdminUsername = activeOthers[0].Username
	}
	return outcome, nil
}

func (f *fakeStore) GetActiveMembers(_ context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoomMember
	for _, m := range f.members[roomID] {
		if m.LeftAt == nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) IsMember(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[roomID][userID]
	return m != nil && m.LeftAt == nil, nil
}

func (f *fakeStore) IsAdmin(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := f.rooms[roomID]
	return room != nil && room.AdminID == userID, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[roomID][userID]
	if m == nil {
		return nil, nil
	}
	delete(f.members[roomID], userID)
	return m, nil
}

func (f *fakeStore) GetRoomsInfoForUser(_ context.Context, userID uuid.UUID) ([]db.RoomOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.RoomOverview
	for roomID, members := range f.members {
		m := members[userID]
		if m == nil || !m.IsVisible {
			continue
		}
		o := db.RoomOverview{Member: *m}
		for i := len(f.messageLog) - 1; i >= 0; i-- {
			if msg := f.messages[f.messageLog[i]]; msg != nil && msg.RoomID == roomID {
				last := *msg
				o.LastMessage = &last
				break
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeStore) IncrementUnreadCount(_ context.Context, roomID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m := f.members[roomID][userID]; m != nil {
		m.UnreadCount++
	}
	return nil
}

func (f *fakeStore) MarkRoomRead(_ context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.members[roomID][userID]
	if m == nil {
		return nil, nil
	}
	m.UnreadCount = 0
	m.LastReadAt = time.Now()
	return m, nil
}

func (f *fakeStore) CreateInvitation(_ context.Context, roomID uuid.UUID, roomName string, inviteeID uuid.UUID, inviteeUsername string, inviterID uuid.UUID, inviterUsername string) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.RoomID == roomID && inv.InviteeID == inviteeID && inv.InviterID == inviterID && inv.Status == models.InvitationPending {
			return nil, nil
		}
	}
	inv := &models.Invitation{
		ID:              uuid.New(),
		RoomID:          roomID,
		RoomName:        roomName,
		InviteeID:       inviteeID,
		InviteeUsername: inviteeUsername,
		InviterID:       inviterID,
		InviterUsername: inviterUsername,
		Status:          models.InvitationPending,
		CreatedAt:       time.Now(),
	}
	f.invitations[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) GetInvitationByID(_ context.Context, id uuid.UUID) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invitations[id], nil
}

func (f *fakeStore) DeclineInvitation(_ context.Context, id uuid.UUID) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.invitations[id]
	if inv == nil || inv.Status != models.InvitationPending {
		return nil, nil
	}
	inv.Status = models.InvitationDeclined
	return inv, nil
}

func (f *fakeStore) GetPendingInvitationsForUser(_ context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invitation
	for _, inv := range f.invitations {
		if inv.InviteeID == userID && inv.Status == models.InvitationPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) AcceptInvitationAndJoin(_ context.Context, roomID uuid.UUID, roomName string, userID uuid.UUID, username string) (*models.RoomMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invitations {
		if inv.RoomID == roomID && inv.InviteeID == userID && inv.Status == models.InvitationPending {
			inv.Status = models.InvitationAccepted
		}
	}
	if existing := f.members[roomID][userID]; existing != nil && existing.LeftAt == nil {
		return existing, nil
	}
	now := time.Now()
	m := &models.RoomMember{
		RoomID:     roomID,
		RoomName:   roomName,
		UserID:     userID,
		Username:   username,
		JoinedAt:   now,
		IsVisible:  true,
		LastReadAt: now,
	}
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[uuid.UUID]*models.RoomMember)
	}
	f.members[roomID][userID] = m
	return m, nil
}

func (f *fakeStore) InsertMessage(_ context.Context, roomID uuid.UUID, roomName string, authorID *uuid.UUID, authorUsername *string, content string, messageType models.MessageType) (*models.UserMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &models.UserMessage{
		ID:             uuid.New(),
		RoomID:         roomID,
		RoomName:       roomName,
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
		Content:        content,
		MessageType:    messageType,
		Status:         models.StatusSent,
		CreatedAt:      time.Now(),
	}
	f.messages[m.ID] = m
	f.messageLog = append(f.messageLog, m.ID)
	return m, nil
}

func (f *fakeStore) GetMessageByID(_ context.Context, id uuid.UUID) (*models.UserMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[id], nil
}

func (f *fakeStore) GetRoomMessages(_ context.Context, roomID, userID uuid.UUID, limit, offset int64) ([]models.UserMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserMessage
	for _, id := range f.messageLog {
		if msg := f.messages[id]; msg != nil && msg.RoomID == roomID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateMessageContent(_ context.Context, id uuid.UUID, content string) (*models.UserMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.messages[id]
	if m == nil || m.Status == models.StatusDeleted {
		return nil, nil
	}
	m.Content = content
	m.Status = models.StatusEdited
	return m, nil
}

func (f *fakeStore) DeleteMessage(_ context.Context, id uuid.UUID) (*models.UserMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.messages[id]
	if m == nil {
		return nil, nil
	}
	m.Status = models.StatusDeleted
	m.Content = ""
	return m, nil
}

// fakeSender records every event per recipient.
type fakeSender struct {
	mu     sync.Mutex
	events map[uuid.UUID][]events.ServerEvent
}

func newFakeSender() *fakeSender {
	return &fakeSender{events: make(map[uuid.UUID][]events.ServerEvent)}
}

func (f *fakeSender) Send(userID uuid.UUID, ev events.ServerEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[userID] = append(f.events[userID], ev)
	return true
}

func (f *fakeSender) eventsFor(userID uuid.UUID) []events.ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[userID]
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = make(map[uuid.UUID][]events.ServerEvent)
}
