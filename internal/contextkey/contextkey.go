package contextkey

type contextKey string

const (
	// ContextKeyRequestID carries the per-request uuid set by the request-id middleware.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyUserID carries the authenticated user's uuid.
	ContextKeyUserID contextKey = "user_id"
)
