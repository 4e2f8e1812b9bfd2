package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/api/responses"
	"github.com/discord-terminal/engine/internal/ws"
)

// LogsHandler handles log retrieval requests.
type LogsHandler struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(hub *ws.Hub, logger zerolog.Logger) *LogsHandler {
	return &LogsHandler{
		hub:    hub,
		logger: logger.With().Str("handler", "logs").Logger(),
	}
}

// GetLogs handles GET /api/logs requests.
func (h *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	logs := h.hub.GetLogs(level)
	responses.JSON(w, http.StatusOK, logs)
}
