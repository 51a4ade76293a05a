// Package events defines the JSON protocol spoken over the WebSocket:
// type-tagged client requests and server events, plus the system-message
// payloads stored in room history.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/models"
)

// ClientRequest is one decoded client frame. The concrete type is one of
// the *Request structs in this package.
type ClientRequest interface {
	clientRequest()
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type JoinRoomRequest struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

type LeaveRoomRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

type UpdateRoomRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	Name   string    `json:"name"`
}

type DeleteRoomRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

type GetRoomInfoRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

type GetRoomsInfoRequest struct{}

type InviteRequest struct {
	RoomID   uuid.UUID `json:"room_id"`
	Username string    `json:"username"`
}

type DeclineInvitationRequest struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

type GetPendingInvitationsRequest struct{}

type SendMessageRequest struct {
	RoomID      uuid.UUID           `json:"room_id"`
	Content     string              `json:"content"`
	MessageType *models.MessageType `json:"message_type,omitempty"`
}

type EditMessageRequest struct {
	MessageID  uuid.UUID `json:"message_id"`
	NewContent string    `json:"new_content"`
}

type DeleteMessageRequest struct {
	MessageID uuid.UUID `json:"message_id"`
}

type GetMessagesRequest struct {
	RoomID uuid.UUID `json:"room_id"`
	Limit  int64     `json:"limit"`
	Offset int64     `json:"offset"`
}

type DeleteAccountRequest struct{}

type KickMemberRequest struct {
	RoomID   uuid.UUID `json:"room_id"`
	Username string    `json:"username"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

func (CreateRoomRequest) clientRequest()            {}
func (JoinRoomRequest) clientRequest()              {}
func (LeaveRoomRequest) clientRequest()             {}
func (UpdateRoomRequest) clientRequest()            {}
func (DeleteRoomRequest) clientRequest()            {}
func (GetRoomInfoRequest) clientRequest()           {}
func (GetRoomsInfoRequest) clientRequest()          {}
func (InviteRequest) clientRequest()                {}
func (DeclineInvitationRequest) clientRequest()     {}
func (GetPendingInvitationsRequest) clientRequest() {}
func (SendMessageRequest) clientRequest()           {}
func (EditMessageRequest) clientRequest()           {}
func (DeleteMessageRequest) clientRequest()         {}
func (GetMessagesRequest) clientRequest()           {}
func (DeleteAccountRequest) clientRequest()         {}
func (KickMemberRequest) clientRequest()            {}
func (SearchUsersRequest) clientRequest()           {}

// DecodeClientRequest parses one client frame. Frames carry a snake_case
// "type" tag with the payload fields inlined alongside it. Unknown tags
// and malformed JSON both return an error; the caller answers with an
// invalid_request_format event rather than closing the connection.
func DecodeClientRequest(data []byte) (ClientRequest, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding request envelope: %w", err)
	}

	var req ClientRequest
	switch envelope.Type {
	case "create_room":
		req = &CreateRoomRequest{}
	case "join_room":
		req = &JoinRoomRequest{}
	case "leave_room":
		req = &LeaveRoomRequest{}
	case "update_room":
		req = &UpdateRoomRequest{}
	case "delete_room":
		req = &DeleteRoomRequest{}
	case "get_room_info":
		req = &GetRoomInfoRequest{}
	case "get_rooms_info":
		req = &GetRoomsInfoRequest{}
	case "invite":
		req = &InviteRequest{}
	case "decline_invitation":
		req = &DeclineInvitationRequest{}
	case "get_pending_invitations":
		req = &GetPendingInvitationsRequest{}
	case "send_message":
		req = &SendMessageRequest{}
	case "edit_message":
		req = &EditMessageRequest{}
	case "delete_message":
		req = &DeleteMessageRequest{}
	case "get_messages":
		req = &GetMessagesRequest{}
	case "delete_account":
		req = &DeleteAccountRequest{}
	case "kick_member":
		req = &KickMemberRequest{}
	case "search_users":
		req = &SearchUsersRequest{}
	default:
		return nil, fmt.Errorf("unknown request type %q", envelope.Type)
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("decoding %s request: %w", envelope.Type, err)
	}
	return req, nil
}
