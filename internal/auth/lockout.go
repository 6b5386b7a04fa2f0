// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package auth

import (
	"sync"
	"time"

	"github.com/tomtom215/villasync/internal/logging"
)

// LockoutConfig holds configuration for the login lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period.
	LockoutDuration time.Duration

	// MaxLockoutDuration caps the doubling applied to repeat lockouts.
	MaxLockoutDuration time.Duration
}

// DefaultLockoutConfig returns the lockout used for admin login.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		MaxLockoutDuration: 24 * time.Hour,
	}
}

// lockoutEntry tracks failed login attempts for a subject (username or IP).
type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int
	lockedUntil    time.Time
}

// Lockout counts failed logins per subject and locks subjects that fail too
// often. State is per process.
type Lockout struct {
	cfg     LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

// NewLockout creates a Lockout. Zero fields in cfg take the defaults.
func NewLockout(cfg LockoutConfig) *Lockout {
	def := DefaultLockoutConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.MaxLockoutDuration <= 0 {
		cfg.MaxLockoutDuration = def.MaxLockoutDuration
	}
	return &Lockout{cfg: cfg, entries: make(map[string]*lockoutEntry)}
}

// Locked reports whether subject is locked at now and for how much longer.
func (l *Lockout) Locked(subject string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[subject]
	if !ok || !now.Before(e.lockedUntil) {
		return false, 0
	}
	return true, e.lockedUntil.Sub(now)
}

// Fail records a failed attempt and reports whether subject is now locked.
func (l *Lockout) Fail(subject string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[subject]
	if !ok {
		e = &lockoutEntry{}
		l.entries[subject] = e
	}
	if now.Before(e.lockedUntil) {
		return true
	}

	e.failedAttempts++
	if e.failedAttempts < l.cfg.MaxAttempts {
		return false
	}

	d := lockoutDuration(l.cfg, e.lockoutCount)
	e.lockedUntil = now.Add(d)
	e.lockoutCount++
	e.failedAttempts = 0

	logging.Warn().
		Str("subject", subject).
		Dur("duration", d).
		Int("lockout_count", e.lockoutCount).
		Msg("Admin login locked")
	return true
}

// Reset clears the state of subject after a successful login.
func (l *Lockout) Reset(subject string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, subject)
}

// lockoutDuration doubles the base period for each previous lockout.
func lockoutDuration(cfg LockoutConfig, lockoutCount int) time.Duration {
	d := cfg.LockoutDuration
	for i := 0; i < lockoutCount; i++ {
		d *= 2
		if d >= cfg.MaxLockoutDuration {
			return cfg.MaxLockoutDuration
		}
	}
	return d
}
