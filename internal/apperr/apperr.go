// Package apperr defines the stable error codes shared by the HTTP surface
// and the WebSocket error events, and the {"errors":[...]} envelope both use.
package apperr

import (
	"encoding/json"
	"net/http"
)

// Stable error codes. Clients match on these strings.
const (
	CodeInvalidRequestFormat = "invalid_request_format"
	CodeUserHasNoKeys        = "user_has_no_keys"
	CodeFileLimitExceeded    = "file_limit_exceeded"

	CodeWrongCredentials = "wrong_credentials"
	CodeSessionExpired   = "session_expired"
	CodeInvalidToken     = "invalid_token"

	CodeNotRoomMember       = "not_room_member"
	CodeTargetNotRoomMember = "target_not_room_member"
	CodeNotRoomAdmin        = "not_room_admin"
	CodeNotMessageAuthor    = "not_message_author"

	CodeUserNotFound        = "user_not_found"
	CodeRoomNotFound        = "room_not_found"
	CodeInvitationNotFound  = "invitation_not_found"
	CodeMessageNotFound     = "message_not_found"
	CodeNoPendingInvitation = "no_pending_invitation"
	CodeFileNotFound        = "file_not_found"

	CodeUsernameAlreadyExists   = "username_already_exists"
	CodeAlreadyRoomMember       = "already_room_member"
	CodeTargetAlreadyRoomMember = "target_already_room_member"
	CodeAlreadyInvited          = "already_invited"

	CodeInternal = "internal_server_error"
)

// Validation error codes, emitted with details payloads.
const (
	CodeUsernameRequired        = "validation_username_required"
	CodeUsernameTooShort        = "validation_username_too_short"
	CodeUsernameTooLong         = "validation_username_too_long"
	CodePasswordRequired        = "validation_password_required"
	CodePasswordTooShort        = "validation_password_too_short"
	CodePasswordTooLong         = "validation_password_too_long"
	CodePasswordTooWeak         = "validation_password_too_weak"
	CodeConfirmPasswordRequired = "validation_confirm_password_required"
	CodePasswordConflict        = "validation_password_conflict"
)

// Item is a single error entry in the envelope.
type Item struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error is an application error carrying stable items and the HTTP status
// they map to. It satisfies the error interface so repositories and
// handlers can return it directly.
type Error struct {
	Status int
	Items  []Item
}

func (e *Error) Error() string {
	if len(e.Items) == 0 {
		return CodeInternal
	}
	return e.Items[0].Code
}

// New builds a single-item error with the given status and code.
func New(status int, code string) *Error {
	return &Error{Status: status, Items: []Item{{Code: code}}}
}

// Validation wraps field-validation items into a 400 error.
func Validation(items []Item) *Error {
	return &Error{Status: http.StatusBadRequest, Items: items}
}

var (
	ErrInvalidRequestFormat = New(http.StatusBadRequest, CodeInvalidRequestFormat)
	ErrUserHasNoKeys        = New(http.StatusBadRequest, CodeUserHasNoKeys)
	ErrFileLimitExceeded    = New(http.StatusBadRequest, CodeFileLimitExceeded)

	ErrWrongCredentials = New(http.StatusUnauthorized, CodeWrongCredentials)
	ErrSessionExpired   = New(http.StatusUnauthorized, CodeSessionExpired)
	ErrInvalidToken     = New(http.StatusUnauthorized, CodeInvalidToken)

	ErrNotRoomMember       = New(http.StatusForbidden, CodeNotRoomMember)
	ErrTargetNotRoomMember = New(http.StatusForbidden, CodeTargetNotRoomMember)
	ErrNotRoomAdmin        = New(http.StatusForbidden, CodeNotRoomAdmin)
	ErrNotMessageAuthor    = New(http.StatusForbidden, CodeNotMessageAuthor)

	ErrUserNotFound        = New(http.StatusNotFound, CodeUserNotFound)
	ErrRoomNotFound        = New(http.StatusNotFound, CodeRoomNotFound)
	ErrInvitationNotFound  = New(http.StatusNotFound, CodeInvitationNotFound)
	ErrMessageNotFound     = New(http.StatusNotFound, CodeMessageNotFound)
	ErrNoPendingInvitation = New(http.StatusNotFound, CodeNoPendingInvitation)
	ErrFileNotFound        = New(http.StatusNotFound, CodeFileNotFound)

	ErrUsernameAlreadyExists   = New(http.StatusConflict, CodeUsernameAlreadyExists)
	ErrAlreadyRoomMember       = New(http.StatusConflict, CodeAlreadyRoomMember)
	ErrTargetAlreadyRoomMember = New(http.StatusConflict, CodeTargetAlreadyRoomMember)
	ErrAlreadyInvited          = New(http.StatusConflict, CodeAlreadyInvited)

	ErrInternal = New(http.StatusInternalServerError, CodeInternal)
)

type envelope struct {
	Errors []Item `json:"errors"`
}

// From normalizes any error into an *Error. Storage-layer and other
// unexpected errors collapse to Internal; the cause is logged by the caller,
// never surfaced to the client.
func From(err error) *Error {
	if appErr, ok := err.(*Error); ok {
		return appErr
	}
	return ErrInternal
}

// Respond writes the error envelope with its HTTP status.
func Respond(w http.ResponseWriter, err error) {
	appErr := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(envelope{Errors: appErr.Items})
}

// RespondJSON writes data as a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
