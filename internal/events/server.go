package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/models"
)

// ServerEvent is one outbound frame. Each concrete type marshals itself
// with its snake_case "type" tag inlined next to the payload fields.
type ServerEvent interface {
	serverEvent()
}

// UserInfo is one search result.
type UserInfo struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberInfo is one active member in a room-info payload.
type MemberInfo struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// InvitationInfo is one entry in a pending-invitations payload.
type InvitationInfo struct {
	InvitationID    uuid.UUID               `json:"invitation_id"`
	RoomID          uuid.UUID               `json:"room_id"`
	RoomName        string                  `json:"room_name"`
	Status          models.InvitationStatus `json:"status"`
	InviterUsername string                  `json:"inviter_username"`
	CreatedAt       time.Time               `json:"created_at"`
}

// MessageInfo is one message in a history or room-list payload.
type MessageInfo struct {
	MessageID      uuid.UUID            `json:"message_id"`
	AuthorUsername *string              `json:"author_username"`
	Content        string               `json:"content"`
	MessageType    models.MessageType   `json:"message_type"`
	MessageStatus  models.MessageStatus `json:"message_status"`
	CreatedAt      time.Time            `json:"created_at"`
}

// MessageInfoFrom converts a stored message into its payload form.
func MessageInfoFrom(m models.UserMessage) MessageInfo {
	return MessageInfo{
		MessageID:      m.ID,
		AuthorUsername: m.AuthorUsername,
		Content:        m.Content,
		MessageType:    m.MessageType,
		MessageStatus:  m.Status,
		CreatedAt:      m.CreatedAt,
	}
}

// RoomInfo is one entry in a rooms-list payload.
type RoomInfo struct {
	RoomID      uuid.UUID    `json:"room_id"`
	RoomName    string       `json:"room_name"`
	LastMessage *MessageInfo `json:"last_message"`
	UnreadCount int32        `json:"unread_count"`
}

type RoomCreated struct {
	RoomID    uuid.UUID `json:"room_id"`
	RoomName  string    `json:"room_name"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomJoined struct {
	InvitationID    uuid.UUID `json:"invitation_id"`
	RoomID          uuid.UUID `json:"room_id"`
	RoomName        string    `json:"room_name"`
	AdminUsername   string    `json:"admin_username"`
	CreatorUsername string    `json:"creator_username"`
	CreatedAt       time.Time `json:"created_at"`
	JoinedAt        time.Time `json:"joined_at"`
}

type RoomLeft struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
}

type RoomUpdated struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
}

type RoomDeleted struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
}

type RoomInfoEvent struct {
	RoomID          uuid.UUID    `json:"room_id"`
	RoomName        string       `json:"room_name"`
	AdminUsername   string       `json:"admin_username"`
	CreatorUsername string       `json:"creator_username"`
	Members         []MemberInfo `json:"members"`
	CreatedAt       time.Time    `json:"created_at"`
}

type RoomsInfo struct {
	Rooms []RoomInfo `json:"rooms"`
}

type InvitationReceived struct {
	InvitationID    uuid.UUID `json:"invitation_id"`
	RoomID          uuid.UUID `json:"room_id"`
	RoomName        string    `json:"room_name"`
	InviterUsername string    `json:"inviter_username"`
}

type InvitationSent struct {
	InvitationID    uuid.UUID `json:"invitation_id"`
	RoomID          uuid.UUID `json:"room_id"`
	RoomName        string    `json:"room_name"`
	InviteeUsername string    `json:"invitee_username"`
}

type InvitationDeclined struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

type InviteeDeclined struct {
	InvitationID    uuid.UUID `json:"invitation_id"`
	RoomID          uuid.UUID `json:"room_id"`
	RoomName        string    `json:"room_name"`
	InviteeUsername string    `json:"invitee_username"`
}

type PendingInvitations struct {
	PendingInvitations []InvitationInfo `json:"pending_invitations"`
}

type MessageSent struct {
	MessageID   uuid.UUID          `json:"message_id"`
	RoomID      uuid.UUID          `json:"room_id"`
	RoomName    string             `json:"room_name"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	CreatedAt   time.Time          `json:"created_at"`
}

type MessageReceived struct {
	MessageID      uuid.UUID          `json:"message_id"`
	RoomID         uuid.UUID          `json:"room_id"`
	RoomName       string             `json:"room_name"`
	AuthorUsername *string            `json:"author_username"`
	Content        string             `json:"content"`
	MessageType    models.MessageType `json:"message_type"`
	CreatedAt      time.Time          `json:"created_at"`
}

type MessageEdited struct {
	MessageID  uuid.UUID `json:"message_id"`
	NewContent string    `json:"new_content"`
}

type MessageDeleted struct {
	MessageID uuid.UUID `json:"message_id"`
}

type MessageHistory struct {
	RoomID   uuid.UUID     `json:"room_id"`
	RoomName string        `json:"room_name"`
	Messages []MessageInfo `json:"messages"`
}

type AccountDeleted struct {
	UserID uuid.UUID `json:"user_id"`
}

type MemberKicked struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
	Username string    `json:"username"`
}

type MemberJoined struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type UsersFound struct {
	Users []UserInfo `json:"users"`
}

type ErrorEvent struct {
	Errors []apperr.Item `json:"errors"`
}

// ErrorFrom converts any handler error into its wire event.
func ErrorFrom(err error) ErrorEvent {
	return ErrorEvent{Errors: apperr.From(err).Items}
}

func (RoomCreated) serverEvent()        {}
func (RoomJoined) serverEvent()         {}
func (RoomLeft) serverEvent()           {}
func (RoomUpdated) serverEvent()        {}
func (RoomDeleted) serverEvent()        {}
func (RoomInfoEvent) serverEvent()      {}
func (RoomsInfo) serverEvent()          {}
func (InvitationReceived) serverEvent() {}
func (InvitationSent) serverEvent()     {}
func (InvitationDeclined) serverEvent() {}
func (InviteeDeclined) serverEvent()    {}
func (PendingInvitations) serverEvent() {}
func (MessageSent) serverEvent()        {}
func (MessageReceived) serverEvent()    {}
func (MessageEdited) serverEvent()      {}
func (MessageDeleted) serverEvent()     {}
func (MessageHistory) serverEvent()     {}
func (AccountDeleted) serverEvent()     {}
func (MemberKicked) serverEvent()       {}
func (MemberJoined) serverEvent()       {}
func (UsersFound) serverEvent()         {}
func (ErrorEvent) serverEvent()         {}

func (e RoomCreated) MarshalJSON() ([]byte, error) {
	type alias RoomCreated
	return tagged("room_created", alias(e))
}

func (e RoomJoined) MarshalJSON() ([]byte, error) {
	type alias RoomJoined
	return tagged("room_joined", alias(e))
}

func (e RoomLeft) MarshalJSON() ([]byte, error) {
	type alias RoomLeft
	return tagged("room_left", alias(e))
}

func (e RoomUpdated) MarshalJSON() ([]byte, error) {
	type alias RoomUpdated
	return tagged("room_updated", alias(e))
}

func (e RoomDeleted) MarshalJSON() ([]byte, error) {
	type alias RoomDeleted
	return tagged("room_deleted", alias(e))
}

func (e RoomInfoEvent) MarshalJSON() ([]byte, error) {
	type alias RoomInfoEvent
	return tagged("room_info", alias(e))
}

func (e RoomsInfo) MarshalJSON() ([]byte, error) {
	type alias RoomsInfo
	return tagged("rooms_info", alias(e))
}

func (e InvitationReceived) MarshalJSON() ([]byte, error) {
	type alias InvitationReceived
	return tagged("invitation_received", alias(e))
}

func (e InvitationSent) MarshalJSON() ([]byte, error) {
	type alias InvitationSent
	return tagged("invitation_sent", alias(e))
}

func (e InvitationDeclined) MarshalJSON() ([]byte, error) {
	type alias InvitationDeclined
	return tagged("invitation_declined", alias(e))
}

func (e InviteeDeclined) MarshalJSON() ([]byte, error) {
	type alias InviteeDeclined
	return tagged("invitee_declined", alias(e))
}

func (e PendingInvitations) MarshalJSON() ([]byte, error) {
	type alias PendingInvitations
	return tagged("pending_invitations", alias(e))
}

func (e MessageSent) MarshalJSON() ([]byte, error) {
	type alias MessageSent
	return tagged("message_sent", alias(e))
}

func (e MessageReceived) MarshalJSON() ([]byte, error) {
	type alias MessageReceived
	return tagged("message_received", alias(e))
}

func (e MessageEdited) MarshalJSON() ([]byte, error) {
	type alias MessageEdited
	return tagged("message_edited", alias(e))
}

func (e MessageDeleted) MarshalJSON() ([]byte, error) {
	type alias MessageDeleted
	return tagged("message_deleted", alias(e))
}

func (e MessageHistory) MarshalJSON() ([]byte, error) {
	type alias MessageHistory
	return tagged("message_history", alias(e))
}

func (e AccountDeleted) MarshalJSON() ([]byte, error) {
	type alias AccountDeleted
	return tagged("account_deleted", alias(e))
}

func (e MemberKicked) MarshalJSON() ([]byte, error) {
	type alias MemberKicked
	return tagged("member_kicked", alias(e))
}

func (e MemberJoined) MarshalJSON() ([]byte, error) {
	type alias MemberJoined
	return tagged("member_joined", alias(e))
}

func (e UsersFound) MarshalJSON() ([]byte, error) {
	type alias UsersFound
	return tagged("users_found", alias(e))
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return tagged("error", alias(e))
}

// tagged marshals the payload with a leading "type" field.
func tagged(tag string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(struct {
		Type string `json:"type"`
	}{tag})
	if err != nil {
		return nil, err
	}
	if len(body) == 2 { // empty object
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}
