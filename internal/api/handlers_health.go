// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/villasync/internal/logging"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status         string  `json:"status"`
	StoreConnected bool    `json:"storeConnected,omitempty"`
	Uptime         float64 `json:"uptimeSeconds"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{
		Status: "alive",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports whether the store answers a ping. Kubernetes-style
// probes treat a 503 as not ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.deps.Store == nil {
		rw.ServiceUnavailable("Store is not configured")
		return
	}
	if err := h.deps.Store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		rw.ServiceUnavailable("Store is not reachable")
		return
	}

	rw.Success(HealthStatus{
		Status:         "ready",
		StoreConnected: true,
		Uptime:         time.Since(h.startTime).Seconds(),
	})
}
