package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cipherchat/cipherchat-back/internal/api"
	"github.com/cipherchat/cipherchat-back/internal/auth"
	"github.com/cipherchat/cipherchat-back/internal/cache"
	"github.com/cipherchat/cipherchat-back/internal/chat"
	"github.com/cipherchat/cipherchat-back/internal/config"
	"github.com/cipherchat/cipherchat-back/internal/db"
	"github.com/cipherchat/cipherchat-back/internal/observability"
	"github.com/cipherchat/cipherchat-back/internal/session"
	"github.com/cipherchat/cipherchat-back/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize OpenTelemetry
	otelCleanup, err := observability.InitOpenTelemetry("cipherchat-backend", "1.0.0")
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := otelCleanup(context.Background()); err != nil {
			log.Printf("Error shutting down OpenTelemetry: %v", err)
		}
	}()

	// Initialize structured logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(context.Background(), "Failed to initialize database: %v", err)
	}

	// Initialize cache (Redis). Optional: without it the service runs with
	// rate limiting disabled.
	var redisCache *cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err = cache.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal(context.Background(), "Failed to initialize cache: %v", err)
		}
	} else {
		logger.Info(context.Background(), "REDIS_URL not set, rate limiting disabled")
	}

	// Session registry and command handlers
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessExpiry)
	registry := session.NewRegistry()
	handlers := chat.NewHandlers(database, registry, logger)

	// Setup HTTP router
	server := api.NewServer(cfg, database, redisCache, tokens, registry, handlers, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info(context.Background(), "Starting server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(context.Background(), "Server error: %v", err)
		}
	}()

	// Graceful shutdown setup
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Block until a signal is received
	<-sigChan

	gracefulShutdown(logger, httpServer, database, redisCache, otelCleanup)

	logger.Info(context.Background(), "Application stopped.")
}

// gracefulShutdown drains the HTTP server, then closes the stores and
// flushes telemetry.
func gracefulShutdown(logger *utils.Logger, server *http.Server, database *db.Database, redisCache *cache.Cache, otelCleanup func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info(ctx, "Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error: %v", err)
	}

	if err := database.Close(); err != nil {
		logger.Error(ctx, "Database close error: %v", err)
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Error(ctx, "Redis close error: %v", err)
		}
	}

	if err := otelCleanup(ctx); err != nil {
		logger.Error(ctx, "OpenTelemetry shutdown error: %v", err)
	}
}
