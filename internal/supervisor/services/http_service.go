// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/villasync/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under suture. ListenAndServe runs in
// a goroutine; when the context is canceled the server is shut down with a
// fresh timeout context so in-flight booking requests can finish.
//
//	server := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService creates the service. A non-positive shutdownTimeout
// becomes 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		logging.Info().Dur("timeout", h.shutdownTimeout).Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return h.name
}
