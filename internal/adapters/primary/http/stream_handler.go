package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/vlago/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/vlago/helpdesk-backend/internal/auth"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
	"github.com/vlago/helpdesk-backend/internal/notify"
)

// StreamHandler serves the Server-Sent Events notification stream. Each
// connection becomes one bus session; visibility is decided per event by
// domain.ShouldDeliver, never by the transport.
type StreamHandler struct {
	bus       *notify.Bus
	tm        *auth.TokenManager
	resolver  ports.IdentityResolver
	keepAlive time.Duration
	logger    *slog.Logger
}

// NewStreamHandler creates the SSE stream handler.
func NewStreamHandler(
	bus *notify.Bus,
	tm *auth.TokenManager,
	resolver ports.IdentityResolver,
	keepAlive time.Duration,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		bus:       bus,
		tm:        tm,
		resolver:  resolver,
		keepAlive: keepAlive,
		logger:    logger.With("handler", "stream"),
	}
}

// ServeHTTP handles GET /notifications/stream.
//
// Authentication happens here rather than in the JWT middleware because
// browser EventSource clients cannot set an Authorization header; the token
// may arrive as a ?token= query parameter instead.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := mw.GetRequestID(r.Context())

	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming",
			"request_id", requestID,
		)
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeConnectedFrame(w, identity); err != nil {
		h.logger.Warn("failed to write connected frame",
			"request_id", requestID,
			"error", err,
		)
		return
	}
	flusher.Flush()

	session := notify.NewSession(identity)
	sub := h.bus.Subscribe(session, domain.ShouldDeliver)
	defer h.bus.Unsubscribe(sub)

	h.logger.Info("stream connected",
		"request_id", requestID,
		"user_id", identity.UserID,
		"role", identity.Role,
	)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("stream disconnected",
				"request_id", requestID,
				"user_id", identity.UserID,
			)
			return

		case <-session.Done():
			// Bus shutdown. Ending the handler closes the connection and
			// the client's reconnect logic takes over.
			h.logger.Info("stream closed by bus shutdown",
				"request_id", requestID,
				"user_id", identity.UserID,
			)
			return

		case event := <-session.Events():
			if err := writeEventFrame(w, event); err != nil {
				h.logger.Warn("failed to write event frame",
					"request_id", requestID,
					"user_id", identity.UserID,
					"event_id", event.ID,
					"error", err,
				)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// authenticate resolves the request to a live identity, preferring the
// Authorization header and falling back to the token query parameter.
// Tokens whose subject was deleted or deactivated since issuance are
// rejected.
func (h *StreamHandler) authenticate(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	tokenString := auth.CleanToken(r.Header.Get("Authorization"))
	if tokenString == "" {
		tokenString = auth.CleanToken(r.URL.Query().Get("token"))
	}
	if tokenString == "" {
		h.unauthorized(w, r, "Missing authentication token")
		return domain.Identity{}, false
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.unauthorized(w, r, "Invalid or expired token")
		return domain.Identity{}, false
	}

	identity, err := h.resolver.ResolveIdentity(r.Context(), claims.UserID)
	if err != nil {
		h.unauthorized(w, r, "Invalid or expired token")
		return domain.Identity{}, false
	}

	return identity, true
}

func (h *StreamHandler) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	h.logger.Warn("stream connection rejected",
		"request_id", mw.GetRequestID(r.Context()),
		"remote_addr", r.RemoteAddr,
		"reason", message,
	)
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

// writeConnectedFrame emits the handshake frame so clients can distinguish
// an established stream from a hanging request.
func writeConnectedFrame(w http.ResponseWriter, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: connected\ndata: %s\n\n", data)
	return err
}

// writeEventFrame emits one notification as an SSE frame. The event ID rides
// in the id field so clients can deduplicate across reconnects.
func writeEventFrame(w http.ResponseWriter, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: notify\nid: %s\ndata: %s\n\n", event.ID, data)
	return err
}
