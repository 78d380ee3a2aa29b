// Package notifyclient is a Go consumer for the notification stream. It
// maintains a long-lived SSE connection, reconnects with exponential backoff
// when the connection drops, and deduplicates events redelivered across
// reconnects.
package notifyclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// State is the client connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateBackingOff   State = "backing_off"
)

// Event is one notification received from the stream. The payload is kept
// raw so a malformed payload from a newer server never breaks the consumer.
type Event struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultDedupeWindow   = 256
	defaultEventBuffer    = 64
)

// Config configures a Client. URL and Token are required.
type Config struct {
	// URL is the stream endpoint, for example
	// "https://helpdesk.example.com/api/v1/notifications/stream".
	URL string

	// Token is the bearer token presented on every connection attempt.
	Token string

	// HTTPClient defaults to a client without a timeout. Do not set a
	// Timeout on it: the stream is meant to stay open indefinitely.
	HTTPClient *http.Client

	// InitialBackoff is the first reconnect delay. Defaults to 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the reconnect delay. Defaults to 30s.
	MaxBackoff time.Duration

	// DedupeWindow is how many recent event IDs are remembered. Defaults
	// to 256.
	DedupeWindow int

	Logger *slog.Logger
}

// Client consumes the notification stream. Create with New, start with Run.
type Client struct {
	cfg    Config
	events chan Event

	mu    sync.Mutex
	state State

	// seen and ring implement a fixed-size window of recent event IDs.
	seen map[string]struct{}
	ring []string
	next int

	logger *slog.Logger
}

// New validates the config and creates a client. Run must be called to
// start consuming.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("notifyclient: URL is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("notifyclient: token is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = defaultDedupeWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		cfg:    cfg,
		events: make(chan Event, defaultEventBuffer),
		state:  StateDisconnected,
		seen:   make(map[string]struct{}, cfg.DedupeWindow),
		ring:   make([]string, cfg.DedupeWindow),
		logger: cfg.Logger.With("component", "notify_client"),
	}, nil
}

// Events returns the channel deduplicated notifications arrive on. The
// channel is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run drives the connect/consume/backoff loop until ctx is cancelled. It
// always returns ctx.Err(); stream errors are retried, never returned.
//
// The backoff delay starts at InitialBackoff, doubles per consecutive
// failure up to MaxBackoff, and resets after any successful frame receipt.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.setState(StateDisconnected)

	backoff := c.cfg.InitialBackoff
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		c.setState(StateConnecting)

		received, err := c.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			backoff = c.cfg.InitialBackoff
		}

		c.logger.Warn("stream disconnected, backing off",
			"error", err,
			"delay", backoff,
		)
		c.setState(StateBackingOff)

		timer.Reset(backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// stream runs one connection attempt to completion. It reports whether any
// complete frame was received, which the caller uses to reset backoff.
func (c *Client) stream(ctx context.Context) (received bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream request rejected: %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	var cur sseFrame

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return received, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if cur.event != "" || cur.data != "" {
				received = true
				c.handleFrame(cur)
			}
			cur = sseFrame{}
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// Keep-alive comment. Counts as receipt so backoff resets even
			// on a quiet stream.
			received = true
		case strings.HasPrefix(line, "event: "):
			cur.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			cur.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// sseFrame is one wire-level event block being assembled.
type sseFrame struct {
	event string
	id    string
	data  string
}

func (c *Client) handleFrame(f sseFrame) {
	switch f.event {
	case "connected":
		c.setState(StateConnected)
		c.logger.Info("stream connected")

	case "notify":
		var event Event
		if err := json.Unmarshal([]byte(f.data), &event); err != nil {
			// A bad frame is dropped, not treated as a connection error.
			c.logger.Warn("dropping unparseable notify frame", "error", err)
			return
		}
		if event.ID == "" {
			event.ID = f.id
		}
		if c.alreadySeen(event.ID) {
			c.logger.Debug("dropping duplicate event", "event_id", event.ID)
			return
		}
		select {
		case c.events <- event:
		default:
			c.logger.Warn("consumer too slow, dropping event", "event_id", event.ID)
		}

	default:
		c.logger.Debug("ignoring unknown frame kind", "event", f.event)
	}
}

// alreadySeen records the ID and reports whether it was already in the
// window. The oldest remembered ID is evicted when the window is full.
func (c *Client) alreadySeen(id string) bool {
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}

	if old := c.ring[c.next]; old != "" {
		delete(c.seen, old)
	}
	c.ring[c.next] = id
	c.next = (c.next + 1) % len(c.ring)
	c.seen[id] = struct{}{}
	return false
}
