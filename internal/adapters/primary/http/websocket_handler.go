package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/vlago/helpdesk-backend/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/vlago/helpdesk-backend/internal/adapters/primary/websocket"
	"github.com/vlago/helpdesk-backend/internal/auth"
	"github.com/vlago/helpdesk-backend/internal/config"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
	"github.com/vlago/helpdesk-backend/internal/notify"
)

// WebSocketHandler handles WebSocket connection upgrades. Each accepted
// connection becomes one bus session, exactly like an SSE stream.
type WebSocketHandler struct {
	bus      *notify.Bus
	tm       *auth.TokenManager
	resolver ports.IdentityResolver
	cfg      *config.Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	bus *notify.Bus,
	tm *auth.TokenManager,
	resolver ports.IdentityResolver,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		bus:      bus,
		tm:       tm,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment() {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:]
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP handles WebSocket connection requests
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := mw.GetRequestID(r.Context())

	// Authenticate before upgrading. Browser WebSocket clients cannot set
	// headers either, so the token arrives via query parameter.
	tokenString := auth.CleanToken(r.URL.Query().Get("token"))
	if tokenString == "" {
		tokenString = auth.CleanToken(r.Header.Get("Authorization"))
	}
	if tokenString == "" {
		h.logger.Warn("websocket connection rejected: missing token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.Warn("websocket connection rejected: invalid token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	identity, err := h.resolver.ResolveIdentity(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Warn("websocket connection rejected: identity no longer valid",
			"request_id", requestID,
			"user_id", claims.UserID,
		)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"user_id", identity.UserID,
			"error", err,
		)
		return
	}

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"user_id", identity.UserID,
		"remote_addr", r.RemoteAddr,
	)

	session := notify.NewSession(identity)
	sub := h.bus.Subscribe(session, domain.ShouldDeliver)

	client := wsAdapter.NewClient(
		conn,
		session,
		h.cfg.WebSocket.PingInterval,
		h.cfg.WebSocket.PongWait,
		func() { h.bus.Unsubscribe(sub) },
		h.logger,
	)

	go client.WritePump()
	go client.ReadPump()
}
