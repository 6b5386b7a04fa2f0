// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package cache

import (
	"context"
	"sync"
	"time"
)

// entry represents a cached item with expiration
type entry struct {
	value     string
	expiresAt time.Time
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Memory is a thread-safe in-process cache with per-entry TTL.
//
// Expired entries are dropped lazily on Get and by a background sweep that
// runs every cleanupInterval until Close is called.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	statsMu sync.Mutex
	stats   Stats

	now       func() time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

const cleanupInterval = 5 * time.Minute

// NewMemory creates a Memory cache and starts its cleanup goroutine.
//
//	tokens := cache.NewMemory()
//	defer tokens.Close()
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	m.stats.LastCleanup = m.now()

	go m.cleanupLoop()

	return m
}

// Get returns the value for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.record(func(s *Stats) { s.Misses++ })
		return "", false, nil
	}

	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := m.entries[key]; ok && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		m.record(func(s *Stats) {
			s.Misses++
			s.Evictions++
		})
		return "", false, nil
	}

	m.record(func(s *Stats) { s.Hits++ })
	return e.value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return m.Delete(ctx, key)
	}

	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.record(func(s *Stats) { s.TotalKeys = total })
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.entries[key]
	delete(m.entries, key)
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.record(func(s *Stats) {
		if existed {
			s.Evictions++
		}
		s.TotalKeys = total
	})
	return nil
}

// GetStats returns a snapshot of the cache counters.
func (m *Memory) GetStats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// HitRate returns the cache hit rate as a percentage
func (m *Memory) HitRate() float64 {
	stats := m.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// cleanupLoop periodically removes expired entries
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (m *Memory) cleanup() {
	now := m.now()

	m.mu.Lock()
	var evictions int64
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
			evictions++
		}
	}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.record(func(s *Stats) {
		s.Evictions += evictions
		s.TotalKeys = total
		s.LastCleanup = now
	})
}

func (m *Memory) record(fn func(*Stats)) {
	m.statsMu.Lock()
	fn(&m.stats)
	m.statsMu.Unlock()
}
