// Package session tracks connected users and moves server events from the
// handlers to each user's WebSocket connection. One connection per user:
// a new connection replaces the previous one. Events for users who are not
// connected are dropped.
package session

import (
	"context"
	"sync"

	"github.com/cipherchat/cipherchat-back/internal/events"
)

// Mailbox is an unbounded FIFO queue of outbound events for one
// connection. Handlers push without ever blocking; the connection's write
// pump drains in order. Pushes after Close are dropped.
type Mailbox struct {
	mu     sync.Mutex
	queue  []events.ServerEvent
	wake   chan struct{}
	closed bool
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		wake: make(chan struct{}, 1),
	}
}

// Push enqueues an event. It never blocks and reports whether the mailbox
// accepted it.
func (m *Mailbox) Push(ev events.ServerEvent) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// Receive returns the oldest queued event, blocking until one arrives, the
// context is cancelled, or the mailbox is closed and drained.
func (m *Mailbox) Receive(ctx context.Context) (events.ServerEvent, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			ev := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return ev, true
		}
		closed := m.closed
		m.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-m.wake:
		}
	}
}

// Close stops the mailbox accepting new events and wakes any waiting
// receiver. Queued events are still delivered.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of queued events.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
