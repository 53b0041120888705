package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irgordon/locker/api/internal/api/handlers"
	"github.com/irgordon/locker/api/internal/api/middleware"
	"github.com/irgordon/locker/api/internal/api/router"
	"github.com/irgordon/locker/api/internal/config"
	"github.com/irgordon/locker/api/internal/core/services"
	"github.com/irgordon/locker/api/internal/db/postgres"
	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
	"github.com/irgordon/locker/api/internal/telemetry"
)

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("🚀 Booting locker API...")

	if err := run(logger); err != nil {
		logger.Error("FATAL: startup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("✅ locker API shutdown complete")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. Outbound Infrastructure ---
	dbPool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	sqlDB := postgres.NewSQLX(dbPool)
	defer sqlDB.Close()

	if cfg.MigrationsEnabled {
		if err := postgres.Migrate(ctx, sqlDB, logger); err != nil {
			return err
		}
	}

	// --- 3. Hardened Dependency Injection ---
	atRest, err := crypto.NewAtRestCipher(cfg.MasterKeyHex)
	if err != nil {
		return err
	}

	entryRepo := postgres.NewEntryRepository(dbPool)
	userRepo := postgres.NewUserRepository(sqlDB)

	// 🛡️ Per-user change feed (memory bus)
	hub := telemetry.NewHub()

	tokenService := services.NewTokenService(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, tokenService, logger)
	entryService := services.NewEntryService(entryRepo, atRest, hub, logger)

	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthHandler:    handlers.NewAuthHandler(authService, logger, cfg.IsProduction()),
		EntryHandler:   handlers.NewEntryHandler(entryService, logger),
		FeedHandler:    handlers.NewEntryFeedHandler(hub, cfg.AllowedOrigins, logger),
		HealthHandler:  handlers.NewHealthHandler(postgres.Healthcheck(dbPool), logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, userRepo, logger),
		RateLimiter:    middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:         logger,
	})

	// --- 4. HTTP Gateway ---
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🌐 locker API active", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- 5. Graceful Exit ---
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", "error", err)
	}
	return nil
}
