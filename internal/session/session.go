package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Handler processes one decoded client request. Results and errors flow
// back through the registry as server events, including those addressed to
// the actor.
type Handler interface {
	Handle(ctx context.Context, actorID uuid.UUID, req events.ClientRequest)
}

// Session is one authenticated WebSocket connection.
type Session struct {
	conn      *websocket.Conn
	userID    uuid.UUID
	expiresAt time.Time
	mailbox   *Mailbox
	registry  *Registry
	handler   Handler
	logger    *utils.Logger
}

func New(conn *websocket.Conn, userID uuid.UUID, expiresAt time.Time, registry *Registry, handler Handler, logger *utils.Logger) *Session {
	return &Session{
		conn:      conn,
		userID:    userID,
		expiresAt: expiresAt,
		registry:  registry,
		handler:   handler,
		logger:    logger,
	}
}

// Run attaches the session and pumps until the connection drops, the
// access token expires, or a newer connection for the same user replaces
// this one. It blocks for the lifetime of the connection.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mailbox = s.registry.Attach(s.userID)
	defer s.registry.Detach(s.userID, s.mailbox)
	defer s.conn.Close()

	// Force-close at token expiry; the client reconnects with a fresh
	// token.
	expiry := time.AfterFunc(time.Until(s.expiresAt), func() {
		s.logger.Info(ctx, "session token expired, closing connection for user %s", s.userID)
		cancel()
		// The read pump blocks in ReadMessage and does not observe the
		// context; closing the connection unblocks it.
		s.conn.Close()
	})
	defer expiry.Stop()

	go s.writePump(ctx, cancel)
	s.readPump(ctx, cancel)
}

// readPump decodes client frames and hands them to the handler. Malformed
// frames get an error event back, they do not end the session.
func (s *Session) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn(ctx, "websocket read error for user %s: %v", s.userID, err)
			}
			return
		}
		// The protocol is text-only JSON; binary frames are ignored.
		if mt != websocket.TextMessage {
			continue
		}

		req, err := events.DecodeClientRequest(data)
		if err != nil {
			s.logger.Debug(ctx, "invalid frame from user %s: %v", s.userID, err)
			s.mailbox.Push(events.ErrorFrom(apperr.ErrInvalidRequestFormat))
			continue
		}

		s.handler.Handle(ctx, s.userID, req)
	}
}

// writePump drains the mailbox to the connection and keeps the peer alive
// with pings.
func (s *Session) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	out := make(chan events.ServerEvent)
	go func() {
		defer close(out)
		for {
			ev, ok := s.mailbox.Receive(ctx)
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error(ctx, "marshaling event for user %s: %v", s.userID, err)
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug(ctx, "websocket write error for user %s: %v", s.userID, err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
