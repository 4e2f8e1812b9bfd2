package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades incoming HTTP requests to WebSocket connections and hands
// them off to the hub.
type Handler struct {
	hub            *Hub
	allowedOrigins []string
	logger         zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. allowedOrigins is a
// comma-separated list; localhost and 127.0.0.1 are always permitted.
func NewHandler(hub *Hub, allowedOrigins string, logger zerolog.Logger) *Handler {
	origins := []string{"localhost", "127.0.0.1"}
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	h := &Handler{
		hub:            hub,
		allowedOrigins: origins,
		logger:         logger.With().Str("component", "ws-handler").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("websocket client connected")

	client := NewClient(conn, h.hub, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

// checkOrigin implements websocket.Upgrader's CheckOrigin, allowing
// same-origin requests, requests with no Origin header (non-browser
// clients), and anything in the configured allow-list.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originHost := strings.TrimPrefix(origin, "http://")
	originHost = strings.TrimPrefix(originHost, "https://")
	if idx := strings.Index(originHost, ":"); idx != -1 {
		originHost = originHost[:idx]
	}

	host := r.Host
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if originHost == host {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		allowed = strings.TrimPrefix(allowed, "http://")
		allowed = strings.TrimPrefix(allowed, "https://")
		if idx := strings.Index(allowed, ":"); idx != -1 {
			allowed = allowed[:idx]
		}
		if originHost == allowed {
			return true
		}
	}

	h.logger.Warn().Str("origin", origin).Msg("origin not allowed")
	return false
}

// Hub returns the underlying hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}
