// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/villasync/internal/cache"
	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
)

// newTokenSource picks the token cache named by guesty.token_cache. The
// returned func releases the cache's resources.
func newTokenSource(ctx context.Context, cfg *config.Config, provider *guesty.TokenProvider) (guesty.TokenSource, func(), error) {
	key := guesty.TokenCacheKey(cfg.Guesty.ClientID)

	switch cfg.Guesty.TokenCache {
	case "none":
		logging.Warn().Msg("Guesty token cache disabled, every request exchanges a new token")
		return provider, func() {}, nil

	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect token cache: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing Redis client")
			}
		}
		return guesty.NewCachingTokenSource(provider, cache.NewRedis(client, "villasync:"), key), closeFn, nil

	default:
		mem := cache.NewMemory()
		closeFn := func() {
			if err := mem.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing token cache")
			}
		}
		return guesty.NewCachingTokenSource(provider, mem, key), closeFn, nil
	}
}
