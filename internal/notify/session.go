package notify

import (
	"sync"
	"time"

	"github.com/vlago/helpdesk-backend/internal/core/domain"
)

// defaultSessionBuffer is the number of events a session can queue before a
// slow transport starts losing events. Delivery is best-effort, so dropping
// is preferable to stalling the publisher.
const defaultSessionBuffer = 64

// Session represents one open streaming connection. The identity is fixed at
// connection time; the event channel is owned exclusively by the transport
// that reads from it.
type Session struct {
	identity     domain.Identity
	registeredAt time.Time

	events chan domain.Event
	done   chan struct{}

	mu           sync.Mutex
	lastActivity time.Time
	closeOnce    sync.Once
}

// NewSession creates a session for the given authenticated identity.
func NewSession(identity domain.Identity) *Session {
	now := time.Now().UTC()
	return &Session{
		identity:     identity,
		registeredAt: now,
		lastActivity: now,
		events:       make(chan domain.Event, defaultSessionBuffer),
		done:         make(chan struct{}),
	}
}

// Identity returns the authenticated principal for this session.
func (s *Session) Identity() domain.Identity {
	return s.identity
}

// RegisteredAt returns when the session was created.
func (s *Session) RegisteredAt() time.Time {
	return s.registeredAt
}

// LastActivity returns the time of the most recent queued event.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Events returns the channel the owning transport reads events from.
func (s *Session) Events() <-chan domain.Event {
	return s.events
}

// Done is closed when the session is closed, either by its transport or by
// a bus shutdown.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close marks the session closed. Safe to call multiple times and from any
// goroutine; the events channel itself is left open so a concurrent deliver
// can never panic on send.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// deliver queues an event without blocking. Returns false when the event was
// dropped because the session is closed or its buffer is full.
func (s *Session) deliver(event domain.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- event:
		s.mu.Lock()
		s.lastActivity = time.Now().UTC()
		s.mu.Unlock()
		return true
	default:
		return false
	}
}
