package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/api/responses"
	"github.com/discord-terminal/engine/internal/config"
)

// ConfigHandler exposes the engine's single persisted preference: the
// presence status applied on the next gateway connect.
type ConfigHandler struct {
	store  config.ConfigStore
	logger zerolog.Logger
}

func NewConfigHandler(store config.ConfigStore, logger zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		store:  store,
		logger: logger.With().Str("handler", "config").Logger(),
	}
}

// GetConfig handles GET /api/config requests.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Load()
	if err != nil {
		h.logger.Error().Err(err).Msg(responses.ErrLoadConfig)
		responses.Error(w, http.StatusInternalServerError, "internal_error", responses.ErrLoadConfigMsg)
		return
	}
	responses.JSON(w, http.StatusOK, cfg)
}

// UpdateConfig handles PUT /api/config requests: changing the desired
// presence status. It takes effect on the next connect; it isn't pushed to
// an already-open gateway session.
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status config.Status `json:"status"`
	}

	if !responses.DecodeJSON(w, r, h.logger, &input) {
		return
	}

	cfg, err := h.store.Load()
	if err != nil {
		h.logger.Error().Err(err).Msg(responses.ErrLoadConfig)
		responses.Error(w, http.StatusInternalServerError, "internal_error", responses.ErrLoadConfigMsg)
		return
	}

	if input.Status != "" {
		cfg.Status = input.Status
	}

	if err := h.store.Save(cfg); err != nil {
		h.logger.Error().Err(err).Msg(responses.ErrSaveConfig)
		responses.Error(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	h.logger.Info().Str("status", string(cfg.Status)).Msg("configuration updated")
	responses.JSON(w, http.StatusOK, cfg)
}
