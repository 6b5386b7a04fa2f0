// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree is the Villasync process tree. It has two layers:
//   - sync: the background cache warmer
//   - api: the HTTP server
//
// A sync scheduler that keeps failing backs off on its own without taking
// the API down, which can keep serving the cached catalog.
type SupervisorTree struct {
	root   *suture.Supervisor
	sync   *suture.Supervisor
	api    *suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewSupervisorTree creates a supervisor tree. Zero config fields take the
// defaults.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the event hook from the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("villasync", rootSpec)
	syncLayer := suture.New("sync-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(syncLayer)
	root.Add(api)

	return &SupervisorTree{
		root:   root,
		sync:   syncLayer,
		api:    api,
		logger: logger,
		config: config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddSyncService adds a service to the sync layer.
func (t *SupervisorTree) AddSyncService(svc suture.Service) suture.ServiceToken {
	return t.sync.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
