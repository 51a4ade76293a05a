package api

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/contextkey"
	"github.com/cipherchat/cipherchat-back/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients are native apps, not browsers; origin is meaningless.
		return true
	},
}

// handleWebSocket authenticates the token query parameter and hands the
// upgraded connection to a session, which runs until the connection or
// the token expires.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		apperr.Respond(w, apperr.ErrInvalidToken)
		return
	}

	userID, _, expiresAt, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		apperr.Respond(w, apperr.ErrInvalidToken)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(r.Context(), "websocket upgrade failed: %v", err)
		return
	}

	ctx := context.WithValue(context.Background(), contextkey.ContextKeyUserID, userID)
	s.logger.Info(ctx, "websocket session opened for user %s", userID)

	sess := session.New(conn, userID, expiresAt, s.registry, s.handlers, s.logger)
	go func() {
		sess.Run(ctx)
		s.logger.Info(ctx, "websocket session closed for user %s", userID)
	}()
}
