package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cipherchat/cipherchat-back/internal/events"
)

const registryShards = 32

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_sessions",
		Help: "Number of currently connected WebSocket sessions.",
	})
	dispatchedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dispatched_events_total",
		Help: "Server events routed through the session registry.",
	}, []string{"outcome"})
)

type registryShard struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Mailbox
}

// Registry maps connected user IDs to their mailboxes. It is sharded to
// keep broadcast fan-out from serializing on a single lock.
type Registry struct {
	shards [registryShards]registryShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[uuid.UUID]*Mailbox)
	}
	return r
}

func (r *Registry) shard(userID uuid.UUID) *registryShard {
	return &r.shards[userID[0]%registryShards]
}

// Attach registers a fresh mailbox for the user and returns it. Any
// previous mailbox for the same user is closed, which ends the old
// connection's write pump.
func (r *Registry) Attach(userID uuid.UUID) *Mailbox {
	mb := NewMailbox()
	s := r.shard(userID)

	s.mu.Lock()
	old := s.sessions[userID]
	s.sessions[userID] = mb
	s.mu.Unlock()

	if old != nil {
		old.Close()
	} else {
		activeSessions.Inc()
	}
	return mb
}

// Detach removes the user's entry only if it still holds the given
// mailbox, so a session tearing down cannot evict the connection that
// replaced it.
func (r *Registry) Detach(userID uuid.UUID, mb *Mailbox) {
	s := r.shard(userID)

	s.mu.Lock()
	current, ok := s.sessions[userID]
	if ok && current == mb {
		delete(s.sessions, userID)
	} else {
		ok = false
	}
	s.mu.Unlock()

	mb.Close()
	if ok {
		activeSessions.Dec()
	}
}

// Send routes an event to the user's mailbox. Events for users without a
// live session are dropped; clients resync state on connect.
func (r *Registry) Send(userID uuid.UUID, ev events.ServerEvent) bool {
	s := r.shard(userID)

	s.mu.RLock()
	mb := s.sessions[userID]
	s.mu.RUnlock()

	if mb == nil || !mb.Push(ev) {
		dispatchedEvents.WithLabelValues("dropped").Inc()
		return false
	}
	dispatchedEvents.WithLabelValues("delivered").Inc()
	return true
}

// IsConnected reports whether the user currently has a session.
func (r *Registry) IsConnected(userID uuid.UUID) bool {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}
