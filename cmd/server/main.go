// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomtom215/villasync/internal/api"
	"github.com/tomtom215/villasync/internal/auth"
	"github.com/tomtom215/villasync/internal/availability"
	"github.com/tomtom215/villasync/internal/booking"
	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/diagnostics"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/notify"
	"github.com/tomtom215/villasync/internal/store"
	"github.com/tomtom215/villasync/internal/supervisor"
	"github.com/tomtom215/villasync/internal/supervisor/services"
	"github.com/tomtom215/villasync/internal/sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Villasync exited with error")
	}
}

//nolint:gocyclo // Sequential wiring of every component
func run() error {
	// A missing .env is normal in containers.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Str("token_cache", cfg.Guesty.TokenCache).
		Str("notify", cfg.Notify.Provider).
		Bool("guesty_credentials", cfg.Guesty.ClientID != "" && cfg.Guesty.ClientSecret != "").
		Bool("reservation_forwarding", cfg.Reservation.Configured()).
		Msg("Starting Villasync")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// Guesty clients
	limiter := guesty.NewLimiter(cfg.Guesty)
	provider := guesty.NewTokenProvider(cfg.Guesty, guesty.WithLimiter(limiter))
	tokens, closeTokenCache, err := newTokenSource(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer closeTokenCache()

	client := guesty.NewClient(cfg.Guesty, guesty.WithLimiter(limiter))
	breaker := guesty.NewBreakerClient(client, guesty.BreakerSettings{})

	// Domain services
	coordinator := sync.NewCoordinator(st, tokens, breaker, cfg.Sync)
	resolver := availability.NewResolver(coordinator, st, tokens, breaker, cfg.Availability)

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		return fmt.Errorf("configure notifications: %w", err)
	}
	intake := booking.NewIntake(st, st, guesty.NewReservationClient(cfg.Reservation),
		notify.NewBestEffort(notifier, cfg.Notify.Timeout), cfg.Booking)
	webhooks := booking.NewWebhookProcessor(st, cfg.Guesty.WebhookSecret)
	if cfg.Guesty.WebhookSecret == "" {
		logging.Warn().Msg("GUESTY_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}

	admin, err := auth.NewAdmin(cfg.Security)
	switch {
	case errors.Is(err, auth.ErrAdminDisabled):
		logging.Info().Msg("Admin API disabled (ADMIN_USERNAME or ADMIN_PASSWORD_HASH not set)")
	case err != nil:
		return fmt.Errorf("configure admin login: %w", err)
	}

	// HTTP
	handler := api.NewHandler(api.Deps{
		Store:        st,
		Catalog:      st,
		Bookings:     st,
		Availability: resolver,
		Intake:       intake,
		Webhooks:     webhooks,
		Syncer:       coordinator,
		Tokens:       tokens,
		Calendar:     breaker,
		Prober:       diagnostics.NewProber(provider, client),
		Admin:        admin,
		SyncTimeout:  cfg.Sync.RunTimeout,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))

	// Inline and admin-triggered syncs may run up to the sync timeout.
	writeTimeout := cfg.Server.Timeout
	if cfg.Sync.RunTimeout > writeTimeout {
		writeTimeout = cfg.Sync.RunTimeout
	}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if cfg.Sync.Schedule != "" {
		scheduler, err := services.NewSyncSchedulerService(coordinator, cfg.Sync.Schedule, cfg.Sync.RunTimeout, true)
		if err != nil {
			return err
		}
		tree.AddSyncService(scheduler)
	} else {
		logging.Info().Msg("No sync schedule configured, the cache refreshes on demand")
	}

	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	logging.Info().Msg("Villasync stopped")
	return nil
}
