// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package cache provides the short-lived key/value stores used to share
// upstream access tokens between requests.
//
// Two implementations satisfy Store:
//
//   - Memory: a process-local TTL map, for single-instance deployments
//   - Redis: a go-redis backed store, shared by every instance behind a load balancer
//
// Values are strings; callers that need structure encode it themselves.
package cache

import (
	"context"
	"time"
)

// Store is a string cache with per-entry expiry.
//
// Get reports a miss as ("", false, nil). An error means the backend could
// not be reached; callers treat it as a miss.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Verify interface implementations at compile time
var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
