// Package main is the entry point for the terminal client's engine: the
// gateway session, REST client, controller, and optional HTTP companion
// API described in SPEC_FULL.md. It carries no terminal rendering itself.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine"
	"github.com/discord-terminal/engine/internal/api"
	"github.com/discord-terminal/engine/internal/config"
	"github.com/discord-terminal/engine/internal/config/store"
	"github.com/discord-terminal/engine/internal/logging"
	"github.com/discord-terminal/engine/internal/manager"
	"github.com/discord-terminal/engine/internal/rest"
	"github.com/discord-terminal/engine/internal/webhook"
	"github.com/discord-terminal/engine/internal/ws"
)

func main() {
	_ = godotenv.Load()

	logger := initLogger()
	token := getEnvOrDefault("DISCORD_TOKEN", "")
	port := getEnvOrDefault("PORT", "8080")
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if token == "" {
		logger.Warn().Msg("DISCORD_TOKEN not set - the gateway session will fail to authenticate until one is configured")
	}

	webhookNotifier := webhook.NewNotifier(webhookURL, logger)
	if webhookNotifier != nil {
		logger.Info().Msg("Discord webhook notifications enabled")
	}

	configStore, pg := initStore(logger)
	cfg, err := configStore.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Info().Str("status", string(cfg.Status)).Msg("configuration loaded")

	hub := initHub(logger, pg)
	mgr := initManager(token, configStore, pg, hub, webhookNotifier, logger)

	webFS, err := engine.GetWebFS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load embedded web assets")
	}

	router := api.NewRouter(configStore, mgr, hub, webFS, logger)
	srv := createServer(port, router.Handler())

	go startManager(mgr, logger)
	go startHTTPServer(srv, port, logger)

	waitForShutdown()
	shutdown(srv, mgr, hub, pg, logger)
}

func initLogger() zerolog.Logger {
	return logging.New(logging.Options{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Pretty: getEnvOrDefault("LOG_PRETTY", "true") == "true",
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func initStore(logger zerolog.Logger) (config.ConfigStore, *store.Postgres) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		logger.Info().Msg("using PostgreSQL for configuration and session storage")
		pg, err := store.NewPostgres(databaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		return pg, pg
	}

	logger.Info().Msg("using local file for configuration storage")
	configPath := getEnvOrDefault("CONFIG_PATH", "config.json")
	return store.NewFile(configPath), nil
}

func initHub(logger zerolog.Logger, pg *store.Postgres) *ws.Hub {
	var logStore ws.LogStore
	if pg != nil {
		logStore = &dbLogStore{db: pg}
	}
	hub := ws.NewHub(logger, logStore)
	go hub.Run()
	return hub
}

func initManager(token string, configStore config.ConfigStore, pg *store.Postgres, hub *ws.Hub, webhookNotifier *webhook.Notifier, logger zerolog.Logger) *manager.Manager {
	var sessionStore manager.SessionStore
	if pg != nil {
		sessionStore = pg
	}

	props := rest.ClientProperties{
		OS:        getEnvOrDefault("CLIENT_OS", "linux"),
		Browser:   "Discord Terminal",
		Device:    "Discord Terminal",
		UserAgent: getEnvOrDefault("CLIENT_USER_AGENT", "DiscordTerminal (https://github.com/discord-terminal/engine, 1.0.0)"),
	}
	proxyURL := os.Getenv("PROXY_URL")
	chatBufferCap := getEnvIntOrDefault("CHAT_BUFFER_CAP", 500)
	keepDeleted := getEnvOrDefault("KEEP_DELETED_MESSAGES", "false") == "true"

	mgr := manager.New(token, proxyURL, props, configStore, sessionStore, chatBufferCap, keepDeleted, webhookNotifier, logger)
	mgr.OnStatusChange(func(status manager.ConnectionStatus, message string) {
		hub.BroadcastStatus("self", string(status), message)
	})
	return mgr
}

func createServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func startManager(mgr *manager.Manager, logger zerolog.Logger) {
	if err := mgr.Start(context.Background()); err != nil {
		logger.Error().Err(err).Msg("failed to start gateway session")
	}
}

func startHTTPServer(srv *http.Server, port string, logger zerolog.Logger) {
	logger.Info().Str("port", port).Msg("starting HTTP server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("HTTP server error")
	}
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func shutdown(srv *http.Server, mgr *manager.Manager, hub *ws.Hub, pg *store.Postgres, logger zerolog.Logger) {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr.Stop()
	hub.Close()

	if pg != nil {
		_ = pg.Close()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("shutdown complete")
}

// dbLogStore adapts store.Postgres to ws.LogStore.
type dbLogStore struct {
	db *store.Postgres
}

func (s *dbLogStore) AddLog(level, message string) error {
	return s.db.AddLog(level, message)
}

func (s *dbLogStore) GetLogs(level string) ([]ws.LogEntry, error) {
	logs, err := s.db.GetLogs(level)
	if err != nil {
		return nil, err
	}

	result := make([]ws.LogEntry, len(logs))
	for i, entry := range logs {
		result[i] = ws.LogEntry{
			Level:     entry.Level,
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
		}
	}
	return result, nil
}
