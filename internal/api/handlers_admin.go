// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"context"
	"net"
	"net/http"

	"github.com/tomtom215/villasync/internal/auth"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/models"
)

// AdminLogin exchanges the admin username and password for a bearer token.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Admin == nil {
		rw.NotFound("Admin API is not enabled")
		return
	}

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}
	if req.Username == "" || req.Password == "" {
		verr := &models.ValidationError{}
		verr.Add("credentials", "Username and password are required")
		rw.Fail(verr)
		return
	}

	session, err := h.deps.Admin.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(session)
}

// AdminSyncState returns the sync state row.
func (h *Handler) AdminSyncState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status, err := h.deps.Syncer.State(r.Context())
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(status)
}

// AdminSyncRun forces a coordinator run. The run is detached from the client
// connection so a dropped request cannot leave a half-written cache, but it
// stays bounded by the sync timeout. A run skipped because another holds the
// lock still answers 200 with skipped set.
func (h *Handler) AdminSyncRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.deps.SyncTimeout)
	defer cancel()

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		logging.Ctx(ctx).Info().Str("username", claims.Username).Msg("Manual sync requested")
	}

	result, err := h.deps.Syncer.Run(ctx)
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(result)
}

// AdminDiagnostics probes Guesty authentication and one read endpoint.
//
//	GET /api/v1/admin/diagnostics?endpoint=v1/listings?limit=1
func (h *Handler) AdminDiagnostics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.deps.Prober.Run(r.Context(), r.URL.Query().Get("endpoint"))
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(report)
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP has
// already rewritten from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
