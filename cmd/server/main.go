package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/api"
	"github.com/SauRavRwT/ChitChat/internal/api/middleware"
	"github.com/SauRavRwT/ChitChat/internal/config"
	"github.com/SauRavRwT/ChitChat/internal/handlers"
	"github.com/SauRavRwT/ChitChat/internal/presence"
	"github.com/SauRavRwT/ChitChat/internal/relay"
	"github.com/SauRavRwT/ChitChat/internal/room"
	"github.com/SauRavRwT/ChitChat/internal/store"
	"github.com/SauRavRwT/ChitChat/internal/translate"
	"github.com/SauRavRwT/ChitChat/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Profile store: Postgres when configured, SQLite otherwise
	var profiles store.ProfileStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		profiles = pgStore
		logger.Info().Msg("profile store: PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		profiles = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("profile store: SQLite")
	}
	defer profiles.Close()

	// Conversation log: Redis when configured, memory otherwise
	var redisStore *store.RedisStore
	var logs store.LogStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		logs = redisStore
		logger.Info().Msg("conversation log: Redis")
	} else {
		logs = store.NewMemoryLog()
		logger.Warn().Msg("conversation log: in-memory, history is lost on restart")
	}
	defer logs.Close()

	// Translation enrichment
	var enricher translate.Enricher
	if cfg.TranslateURL != "" {
		enricher = translate.NewHTTPEnricher(cfg.TranslateURL)
		logger.Info().Str("url", cfg.TranslateURL).Msg("translation enabled")
	} else {
		enricher = translate.Passthrough{}
	}

	// Core relay wiring
	registry := presence.NewRegistry()
	rooms := room.NewRooms()
	rel := relay.New(registry, rooms, logs, profiles, enricher, logger)
	gateway := ws.NewGateway(registry, rooms, rel, profiles, logger)

	gatewayCtx, stopGateway := context.WithCancel(ctx)
	go gateway.Run(gatewayCtx)

	// Router
	h := handlers.NewHandler(profiles, redisStore, registry, rooms, rel)
	auth := middleware.NewAuth(cfg.TokenSecret)
	router := api.NewRouter(logger, h, gateway, auth, redisStore)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting ChitChat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Stop roster broadcasting, let in-flight deliveries finish
	stopGateway()
	rel.Flush()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
