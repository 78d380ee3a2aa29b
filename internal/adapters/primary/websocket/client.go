// Package websocket adapts bus sessions onto WebSocket connections for
// clients that prefer a socket over the SSE stream. Both transports consume
// the same sessions and the same visibility filter; this package only moves
// frames.
package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vlago/helpdesk-backend/internal/notify"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Clients only send small
	// control messages; events flow one way.
	maxMessageSize = 512
)

// Client binds one WebSocket connection to one bus session. The connection
// is closed when either side goes away or the bus shuts down.
type Client struct {
	conn    *websocket.Conn
	session *notify.Session

	pingInterval time.Duration
	pongWait     time.Duration

	// unsubscribe tears the session out of the bus. Called from both pumps;
	// must be idempotent (bus.Unsubscribe is).
	unsubscribe func()

	logger *slog.Logger
}

// NewClient wires a connection to a subscribed session.
func NewClient(
	conn *websocket.Conn,
	session *notify.Session,
	pingInterval, pongWait time.Duration,
	unsubscribe func(),
	logger *slog.Logger,
) *Client {
	return &Client{
		conn:         conn,
		session:      session,
		pingInterval: pingInterval,
		pongWait:     pongWait,
		unsubscribe:  unsubscribe,
		logger:       logger.With("user_id", session.Identity().UserID.String()),
	}
}

// ReadPump consumes the connection until the peer disconnects. Clients do
// not subscribe to anything over the socket, the server decides visibility,
// so inbound payloads are drained and dropped. Runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.unsubscribe()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

// WritePump forwards session events to the peer and keeps the connection
// alive with protocol pings. Runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.unsubscribe()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.session.Done():
			// Bus shutdown. Tell the peer we are going away.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				c.logger.Debug("failed to send close message", "error", err)
			}
			return

		case event := <-c.session.Events():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write event", "event_id", event.ID, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeJSON(v any) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
