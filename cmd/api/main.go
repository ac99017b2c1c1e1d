// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

// Command api is the entry point for the Paisa identity HTTP server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect the configured account store (PostgreSQL or MongoDB).
//  4. Run schema migrations / index creation (idempotent).
//  5. Wire the token service, mailer, and HTTP handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/paisa-app/identity/internal/account"
	"github.com/paisa-app/identity/internal/api"
	"github.com/paisa-app/identity/internal/mailer"
	"github.com/paisa-app/identity/internal/platform/config"
	"github.com/paisa-app/identity/internal/platform/constants"
	"github.com/paisa-app/identity/internal/platform/migration"
	"github.com/paisa-app/identity/internal/platform/mongodb"
	pgstore "github.com/paisa-app/identity/internal/platform/postgres"
	"github.com/paisa-app/identity/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Account Store ──────────────────────────────────────────────────
	var store account.Store
	var closeStore func()

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		closeStore = func() {
			log.Info("closing postgres pool")
			pool.Close()
		}

		// ── 4. Migrations ─────────────────────────────────────────────────
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		store = account.NewPostgresStore(pool)

	case config.DriverMongo:
		client, err := mongodb.Connect(startupCtx, cfg.MongoURL, log)
		must(log, err, "connect to mongodb")
		closeStore = func() {
			log.Info("closing mongodb client")
			if cerr := client.Disconnect(context.Background()); cerr != nil {
				log.Error("mongodb close error", slog.Any("error", cerr))
			}
		}

		// ── 4. Indexes ────────────────────────────────────────────────────
		mongoStore := account.NewMongoStore(client.Database(cfg.MongoDatabase))
		must(log, mongoStore.EnsureIndexes(startupCtx), "ensure mongodb indexes")

		store = mongoStore
	}
	defer closeStore()

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	tokenService := sec.NewTokenService(
		cfg.SessionSecret,
		constants.AuthIssuer,
		cfg.SessionTokenTTL,
		cfg.PendingTokenTTL,
	)
	mailSender := mailer.New(cfg, log)

	accountService := account.NewService(store, tokenService, mailSender, cfg.VerificationBaseURL, cfg.ResetCodeTTL)
	accountGuard := account.NewGuard(store, tokenService)
	accountHandler := account.NewHandler(accountService, accountGuard)

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		StoreName: cfg.StorageDriver,
		CheckStore: func() error {
			return store.Ping(context.Background())
		},
	}, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   accountHandler,
	}

	server := api.NewServer(context.Background(), cfg, log, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
