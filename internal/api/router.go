// Package api provides HTTP handlers for the terminal client's engine REST API.
package api

import (
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/api/handlers"
	"github.com/discord-terminal/engine/internal/api/middleware"
	"github.com/discord-terminal/engine/internal/config"
	"github.com/discord-terminal/engine/internal/manager"
	"github.com/discord-terminal/engine/internal/ui"
	"github.com/discord-terminal/engine/internal/ws"
)

// Router sets up HTTP routes for the engine API.
type Router struct {
	store   config.ConfigStore
	manager *manager.Manager
	hub     *ws.Hub
	webFS   fs.FS
	logger  zerolog.Logger
	auth    *middleware.Auth
}

// NewRouter creates a new API router.
func NewRouter(store config.ConfigStore, mgr *manager.Manager, hub *ws.Hub, webFS fs.FS, logger zerolog.Logger) *Router {
	auth := middleware.NewAuth(logger)
	if auth.IsEnabled() {
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Warn().Msg("API key authentication disabled - set API_KEY environment variable to enable")
	}

	return &Router{
		store:   store,
		manager: mgr,
		hub:     hub,
		webFS:   webFS,
		logger:  logger,
		auth:    auth,
	}
}

// Handler builds and returns the configured HTTP handler.
func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(chimiddleware.Timeout(30 * time.Second))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	mux.Use(corsHandler.Handler)

	healthHandler := handlers.NewHealthHandler(r.manager, r.hub)
	mux.Get("/health", healthHandler.Health)
	mux.Head("/health", healthHandler.Health)

	authHandler := handlers.NewAuthHandler(r.auth, r.logger)
	mux.Post("/api/auth/login", authHandler.Login)
	mux.Post("/api/auth/logout", authHandler.Logout)
	mux.Get("/api/auth/check", authHandler.Check)

	mux.Group(func(protected chi.Router) {
		protected.Use(r.auth.ProtectHandler)

		configHandler := handlers.NewConfigHandler(r.store, r.logger)
		protected.Get("/api/config", configHandler.GetConfig)
		protected.Put("/api/config", configHandler.UpdateConfig)

		if r.manager != nil {
			sessionHandler := handlers.NewSessionHandler(r.manager, r.logger)
			protected.Get("/api/status", sessionHandler.GetStatus)
			protected.Post("/api/connect", sessionHandler.Connect)
			protected.Post("/api/disconnect", sessionHandler.Disconnect)
			protected.Post("/api/voice/leave", sessionHandler.LeaveVoice)
		}

		discordHandler := handlers.NewDiscordHandler(r.logger)
		protected.Get("/api/discord/server-info", discordHandler.GetServerInfo)
		protected.Post("/api/discord/bulk-info", discordHandler.GetBulkServerInfo)
		protected.Get("/api/discord/user", discordHandler.GetCurrentUser)
		protected.Get("/api/discord/guilds", discordHandler.GetUserGuilds)
		protected.Get("/api/discord/guilds/{guildID}/channels", discordHandler.GetGuildChannels)

		if r.hub != nil {
			logsHandler := handlers.NewLogsHandler(r.hub, r.logger)
			protected.Get("/api/logs", logsHandler.GetLogs)

			allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
			wsHandler := ws.NewHandler(r.hub, allowedOrigins, r.logger)
			protected.Handle("/ws", wsHandler)
		}
	})

	if r.webFS != nil {
		mux.Handle("/*", ui.SPAHandler(r.webFS))
	}

	return mux
}

func corsOrigins() []string {
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		return []string{v}
	}
	return []string{"*"}
}
