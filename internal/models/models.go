package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the account-level role of a user.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// MessageType distinguishes user content from server-authored events.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// MessageStatus tracks the edit/tombstone state of a message.
type MessageStatus string

const (
	StatusSent    MessageStatus = "sent"
	StatusEdited  MessageStatus = "edited"
	StatusDeleted MessageStatus = "deleted"
)

// InvitationStatus is the lifecycle state of a room invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken stores only the SHA-256 digest of the issued token.
// A successful refresh deletes the row and issues a new one.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Room has exactly one admin at all times while membership is non-empty.
// Creator/admin usernames are denormalized so they survive account deletion.
type Room struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	CreatorID       uuid.UUID `json:"creator_id"`
	CreatorUsername string    `json:"creator_username"`
	AdminID         uuid.UUID `json:"admin_id"`
	AdminUsername   string    `json:"admin_username"`
	CreatedAt       time.Time `json:"created_at"`
}

// RoomMember is a membership row. A nil LeftAt means the membership is
// active; at most one active row exists per (room_id, user_id).
// IsVisible=false hides the room from the user's list without deleting
// history.
type RoomMember struct {
	RoomID      uuid.UUID  `json:"room_id"`
	RoomName    string     `json:"room_name"`
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	JoinedAt    time.Time  `json:"joined_at"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
	IsVisible   bool       `json:"is_visible"`
	LastReadAt  time.Time  `json:"last_read_at"`
	UnreadCount int32      `json:"unread_count"`
}

// Invitation records a pending/accepted/declined room invitation. At most
// one pending row exists per (room_id, invitee_id, inviter_id).
type Invitation struct {
	ID              uuid.UUID        `json:"id"`
	RoomID          uuid.UUID        `json:"room_id"`
	RoomName        string           `json:"room_name"`
	InviteeID       uuid.UUID        `json:"invitee_id"`
	InviteeUsername string           `json:"invitee_username"`
	InviterID       uuid.UUID        `json:"inviter_id"`
	InviterUsername string           `json:"inviter_username"`
	Status          InvitationStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

// UserMessage is a stored message. Content is opaque to the server; for
// system messages it holds a JSON-encoded membership event and the author
// fields are nil.
type UserMessage struct {
	ID             uuid.UUID     `json:"id"`
	RoomID         uuid.UUID     `json:"room_id"`
	RoomName       string        `json:"room_name"`
	AuthorID       *uuid.UUID    `json:"author_id,omitempty"`
	AuthorUsername *string       `json:"author_username,omitempty"`
	Content        string        `json:"content"`
	MessageType    MessageType   `json:"message_type"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// FileRecord is an opaque encrypted blob.
type FileRecord struct {
	ID                uuid.UUID `json:"id"`
	EncryptedData     []byte    `json:"encrypted_data"`
	EncryptedMetadata []byte    `json:"encrypted_metadata,omitempty"`
	SizeInBytes       int64     `json:"size_in_bytes"`
	FileHash          string    `json:"file_hash"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// IdentityKey is the long-term public identity key of a user, one per user.
type IdentityKey struct {
	UserID         uuid.UUID `json:"user_id"`
	IdentityKey    string    `json:"identity_key"`
	RegistrationID int32     `json:"registration_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// SignedPreKey is a medium-term signed public key; the most recently
// created row wins on fetch.
type SignedPreKey struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	KeyID     int32     `json:"key_id"`
	PublicKey string    `json:"public_key"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

// OneTimePreKey is consumed on read, lowest key_id first.
type OneTimePreKey struct {
	UserID    uuid.UUID `json:"user_id"`
	KeyID     int32     `json:"key_id"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}
