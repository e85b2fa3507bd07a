package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/api"
	"github.com/Yosshy-123/HARO-Chat/internal/config"
	"github.com/Yosshy-123/HARO-Chat/internal/flood"
	"github.com/Yosshy-123/HARO-Chat/internal/handlers"
	"github.com/Yosshy-123/HARO-Chat/internal/reset"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/token"
	"github.com/Yosshy-123/HARO-Chat/internal/ws"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis store
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisStore.Close()
	logger.Info().Msg("connected to Redis")

	// Core services
	tokens := token.NewService(cfg.TokenSecret, cfg.TokenTTL, redisStore)
	guard := flood.NewGuard(redisStore)
	hub := ws.NewHub(logger)
	broadcaster := ws.NewBroadcaster(hub, redisStore, logger)

	// Deliver cross-process events to local subscribers
	go broadcaster.Run(ctx)

	// Monthly reset, raced against the other processes
	coordinator := reset.NewCoordinator(redisStore, uuid.NewString(), logger)
	go coordinator.Run(ctx, cfg.ResetCheckInterval)

	h := handlers.NewHandler(redisStore, tokens, guard, broadcaster, cfg.AdminPassword, logger)
	router := api.NewRouter(logger, h, hub, tokens, redisStore)

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
			Msg("starting HARO-Chat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	cancel()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
