// Package api exposes the HTTP surface: auth endpoints, the pre-key
// directory, encrypted file transfer, the WebSocket upgrade, and the
// health and metrics endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/auth"
	"github.com/cipherchat/cipherchat-back/internal/cache"
	"github.com/cipherchat/cipherchat-back/internal/chat"
	"github.com/cipherchat/cipherchat-back/internal/config"
	"github.com/cipherchat/cipherchat-back/internal/contextkey"
	"github.com/cipherchat/cipherchat-back/internal/db"
	"github.com/cipherchat/cipherchat-back/internal/session"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

// Server holds the shared state behind every HTTP handler.
type Server struct {
	cfg      *config.Config
	db       *db.Database
	cache    *cache.Cache
	tokens   *auth.TokenManager
	registry *session.Registry
	handlers *chat.Handlers
	logger   *utils.Logger
}

func NewServer(cfg *config.Config, database *db.Database, c *cache.Cache, tokens *auth.TokenManager, registry *session.Registry, handlers *chat.Handlers, logger *utils.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       database,
		cache:    c,
		tokens:   tokens,
		registry: registry,
		handlers: handlers,
		logger:   logger,
	}
}

// authenticate verifies the Bearer token and returns the caller's user id.
func (s *Server) authenticate(r *http.Request) (uuid.UUID, error) {
	tokenString, err := auth.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return uuid.Nil, apperr.ErrInvalidToken
	}
	userID, _, _, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, apperr.ErrInvalidToken
	}
	return userID, nil
}

// requireAuth wraps a handler with Bearer-token verification and stores
// the user id in the request context for logging.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(r)
		if err != nil {
			apperr.Respond(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), contextkey.ContextKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(contextkey.ContextKeyUserID).(uuid.UUID)
	return id
}
