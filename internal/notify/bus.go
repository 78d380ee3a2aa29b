// Package notify implements the in-process event bus that decouples ticket
// and comment producers from live streaming subscribers. The bus is an
// explicitly owned instance wired in at composition time; there is no
// package-level singleton.
package notify

import (
	"log/slog"
	"sync"

	"github.com/vlago/helpdesk-backend/internal/core/domain"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// FilterFunc decides whether an event is delivered to a subscriber identity.
// It must be pure: no I/O, no mutation.
type FilterFunc func(event domain.Event, identity domain.Identity) bool

// Subscription is the handle returned by Subscribe and consumed by
// Unsubscribe. A handle is valid for exactly one session.
type Subscription struct {
	session *Session
	filter  FilterFunc
}

// Session returns the session this subscription delivers to.
func (s *Subscription) Session() *Session {
	return s.session
}

// Bus is the process-wide publish/subscribe registry for notification
// events. Delivery is synchronous with Publish but isolated per subscriber:
// a slow or broken session drops events instead of stalling the publisher
// or its peers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger.With("component", "event_bus"),
	}
}

// Subscribe registers a session with a filter predicate and returns the
// handle used to unsubscribe. Subscribing to a shut-down bus returns a
// handle whose session is already closed.
func (b *Bus) Subscribe(session *Session, filter FilterFunc) *Subscription {
	sub := &Subscription{session: session, filter: filter}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		session.Close()
		return sub
	}
	b.subs[sub] = struct{}{}
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber registered",
		"user_id", session.Identity().UserID,
		"role", session.Identity().Role,
		"total_subscribers", total,
	)
	return sub
}

// Unsubscribe removes a subscription and closes its session. Idempotent:
// calling it twice, or after Shutdown, has no observable effect the second
// time.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, present := b.subs[sub]
	if present {
		delete(b.subs, sub)
	}
	total := len(b.subs)
	b.mu.Unlock()

	sub.session.Close()

	if present {
		b.logger.Debug("subscriber unregistered",
			"user_id", sub.session.Identity().UserID,
			"total_subscribers", total,
		)
	}
}

// Publish fans an event out to every registered subscriber whose filter
// accepts it. Fire-and-forget: delivery attempts are independent, and a
// failure on one subscriber never propagates to the publisher or to other
// subscribers.
func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliverTo(sub, event)
	}
}

// deliverTo runs one isolated delivery attempt. A panicking filter (for
// example on a malformed payload from a producer bug) is caught here so the
// remaining subscribers still get the event.
func (b *Bus) deliverTo(sub *Subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic during event delivery, skipping subscriber",
				"event_id", event.ID,
				"event_kind", event.Kind,
				"user_id", sub.session.Identity().UserID,
				"panic", r,
			)
		}
	}()

	if sub.filter != nil && !sub.filter(event, sub.session.Identity()) {
		return
	}

	if !sub.session.deliver(event) {
		b.logger.Warn("subscriber buffer full or closed, event dropped",
			"event_id", event.ID,
			"event_kind", event.Kind,
			"user_id", sub.session.Identity().UserID,
		)
	}
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown force-closes every session and rejects future subscriptions.
// Safe to call more than once.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.session.Close()
	}

	b.logger.Info("event bus shut down", "closed_subscribers", len(subs))
}
