package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/api/responses"
	"github.com/discord-terminal/engine/internal/manager"
)

// SessionHandler handles the engine's single gateway-session lifecycle:
// status, connect, disconnect, and leaving an active voice call. Joining a
// call isn't a REST action — it's latched automatically by the controller
// once VOICE_STATE_UPDATE and VOICE_SERVER_UPDATE both arrive for a channel
// the user switched into.
type SessionHandler struct {
	manager *manager.Manager
	logger  zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(mgr *manager.Manager, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: mgr,
		logger:  logger.With().Str("handler", "session").Logger(),
	}
}

// GetStatus handles GET /api/status requests.
func (h *SessionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	responses.JSON(w, http.StatusOK, map[string]any{
		"status":          string(status.ConnectionStatus),
		"last_error":      status.LastError,
		"backoff_attempt": status.BackoffAttempt,
		"last_connect_at": status.LastConnectTime,
		"in_voice_call":   status.InVoiceCall,
	})
}

// Connect handles POST /api/connect requests.
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Start(context.Background()); err != nil {
		h.writeManagerError(w, "connect", err)
		return
	}

	h.logger.Info().Msg("session connected")
	responses.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Disconnect handles POST /api/disconnect requests.
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	h.logger.Info().Msg("session disconnected")
	responses.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// LeaveVoice handles POST /api/voice/leave requests.
func (h *SessionHandler) LeaveVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuildID string `json:"guild_id"`
	}
	if !responses.DecodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.GuildID == "" {
		responses.Error(w, http.StatusBadRequest, "invalid_request", "guild_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.manager.LeaveVoice(ctx, req.GuildID); err != nil {
		h.writeManagerError(w, "leave_voice", err)
		return
	}

	h.logger.Info().Str("guild_id", req.GuildID).Msg("left voice call")
	responses.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SessionHandler) writeManagerError(w http.ResponseWriter, action string, err error) {
	h.logger.Error().Err(err).Str("action", action).Msg("session action failed")

	status := http.StatusInternalServerError
	errorCode := "action_failed"

	switch {
	case errors.Is(err, manager.ErrAlreadyConnected):
		status = http.StatusConflict
		errorCode = "already_connected"
	case errors.Is(err, manager.ErrNotConnected):
		status = http.StatusConflict
		errorCode = "not_connected"
	}

	responses.Error(w, status, errorCode, err.Error())
}
