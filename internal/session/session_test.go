package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherchat/cipherchat-back/internal/events"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

type countingHandler struct {
	calls atomic.Int64
}

func (h *countingHandler) Handle(context.Context, uuid.UUID, events.ClientRequest) {
	h.calls.Add(1)
}

// dialSession runs a Session over a real websocket pair and returns the
// client side plus a channel closed when Run returns.
func dialSession(t *testing.T, registry *Registry, handler Handler, userID uuid.UUID, expiresAt time.Time) (*websocket.Conn, chan struct{}) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading test connection: %v", err)
			return
		}
		sess := New(conn, userID, expiresAt, registry, handler, utils.NewLogger("error"))
		go func() {
			defer close(done)
			sess.Run(context.Background())
		}()
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, done
}

func TestSessionEndsAtTokenExpiry(t *testing.T) {
	registry := NewRegistry()
	handler := &countingHandler{}
	userID := uuid.New()
	client, done := dialSession(t, registry, handler, userID, time.Now().Add(100*time.Millisecond))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session still running after token expiry")
	}
	assert.False(t, registry.IsConnected(userID), "mailbox entry must be removed at expiry")

	// Frames arriving after expiry go nowhere.
	client.WriteMessage(websocket.TextMessage, []byte(`{"type":"delete_account"}`))
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, handler.calls.Load())
}

func TestSessionIgnoresBinaryFrames(t *testing.T) {
	registry := NewRegistry()
	handler := &countingHandler{}
	userID := uuid.New()
	client, _ := dialSession(t, registry, handler, userID, time.Now().Add(time.Minute))

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte(`{"type":"delete_account"}`)))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_rooms_info"}`)))

	// Frames are read in order, so once the text frame is dispatched a
	// count of one proves the binary frame was skipped.
	assert.Eventually(t, func() bool { return handler.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, handler.calls.Load())
}

func TestSessionRepliesToMalformedFrame(t *testing.T) {
	registry := NewRegistry()
	handler := &countingHandler{}
	userID := uuid.New()
	client, _ := dialSession(t, registry, handler, userID, time.Now().Add(time.Minute))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"no_such_command"}`)))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","errors":[{"code":"invalid_request_format"}]}`, string(data))
	assert.EqualValues(t, 0, handler.calls.Load())
}
