// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	syncRunIDKey contextKey = "sync_run_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateSyncRunID creates a short id that ties together the log lines of
// one sync run, whichever request or schedule triggered it.
func GenerateSyncRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSyncRunID returns a new context carrying a sync run id.
func ContextWithSyncRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, syncRunIDKey, id)
}

// SyncRunIDFromContext retrieves the sync run id from context.
func SyncRunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(syncRunIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with request_id and sync_run_id added when present.
//
//	logging.Ctx(ctx).Info().Msg("Processing availability request")
//	// {"level":"info","request_id":"…","message":"Processing availability request"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if runID := SyncRunIDFromContext(ctx); runID != "" {
		logCtx = logCtx.Str("sync_run_id", runID)
	}

	logger := logCtx.Logger()
	return &logger
}
