package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"companywise/internal/config"
	"companywise/internal/infrastructure"
	ws "companywise/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and subscribes the connection to
// progress events for the caller's identity.
type WebSocketHandler struct {
	hub            *ws.Hub
	cfg            config.WebSocketConfig
	allowedOrigins []string
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler creates a websocket handler. An empty allowedOrigins
// list or a "*" entry accepts every origin.
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("handler", "websocket")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// Same-origin or non-browser clients.
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.allowedOrigins))
	return false
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	identity := identityOf(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	client := ws.NewClient(h.hub, ws.WrapConn(conn), ws.ClientOptions{
		Identity:   identity.Key,
		TraceID:    infrastructure.GetTraceID(ctx),
		PingPeriod: h.cfg.PingPeriod,
		PongWait:   h.cfg.PongWait,
		Logger:     h.logger,
	})
	ws.Serve(h.hub, client)

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.Bool("anonymous", identity.Anonymous()),
		slog.String("remote_addr", r.RemoteAddr))
}
