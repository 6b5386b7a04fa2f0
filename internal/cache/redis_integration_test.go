// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/testinfra"
)

func TestRedisStore(t *testing.T) {
	addr := testinfra.StartRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedis(client, "villasync:test:")

	t.Run("miss", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "token", "abc", time.Minute))

		val, ok, err := store.Get(ctx, "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", val)

		ttl, err := client.TTL(ctx, "villasync:test:token").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", "x", 1100*time.Millisecond))
		assert.Eventually(t, func() bool {
			_, ok, err := store.Get(ctx, "short")
			return err == nil && !ok
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", "x", time.Minute))
		require.NoError(t, store.Delete(ctx, "gone"))
		_, ok, err := store.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
