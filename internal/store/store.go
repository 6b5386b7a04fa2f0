// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package store is the local persistence layer for Villasync.

Two implementations satisfy the same interfaces:

  - Memory: in-process maps under a mutex, for development and single-instance use
  - Postgres: gorm on PostgreSQL, shared by every instance of the service

Sync Lock:

The sync state row doubles as the cluster-wide sync lock. TryAcquireSync is a
single compare-and-swap (a conditional UPDATE in PostgreSQL, a check under the
mutex in memory); callers never read the row and then write it.

Errors:

Lookups of absent records return *models.NotFoundError. Any other failure is
returned as *models.PersistenceError. Booking status transitions that do not
start from pending return models.ErrInvalidTransition.
*/
package store

import (
	"context"
	"time"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/models"
)

// PropertyStore persists the local property cache.
type PropertyStore interface {
	// GetPropertyHash returns the stored fingerprint of a property, reporting
	// false when no row exists.
	GetPropertyHash(ctx context.Context, id string) (string, bool, error)
	UpsertProperty(ctx context.Context, p *models.Property) error
	GetActiveProperty(ctx context.Context, id string) (*models.Property, error)
	// ListActiveProperties returns active properties ordered by title.
	ListActiveProperties(ctx context.Context) ([]*models.Property, error)
}

// SyncStateStore persists the singleton sync state row.
type SyncStateStore interface {
	// TryAcquireSync marks the sync as running if no sync is running and no
	// backoff is in force at now. It returns the state as seen after the
	// attempt and whether this caller acquired the lock.
	TryAcquireSync(ctx context.Context, now time.Time) (*models.SyncState, bool, error)
	// ReleaseSync clears the running flag without touching anything else.
	ReleaseSync(ctx context.Context) error
	// CompleteSync records a successful run and releases the lock.
	CompleteSync(ctx context.Context, at time.Time, rateLimitRemaining int) error
	// FailSync records a failed run, sets the backoff and releases the lock.
	FailSync(ctx context.Context, backoffUntil time.Time, lastError string) error
	GetSyncState(ctx context.Context) (*models.SyncState, error)
}

// BookingStore persists booking requests.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.BookingRequest) error
	// MarkBookingSent moves a pending booking to sent_to_guesty.
	MarkBookingSent(ctx context.Context, id, guestyBookingID string) error
	// MarkBookingFailed moves a pending booking to guesty_failed and replaces
	// its special requests with the annotated text.
	MarkBookingFailed(ctx context.Context, id, specialRequests string) error
	GetBooking(ctx context.Context, id string) (*models.BookingRequest, error)
}

// ReservationStore persists reservations mirrored from Guesty webhooks.
type ReservationStore interface {
	// UpsertReservation inserts or updates by GuestyBookingID and reports
	// whether a new row was created.
	UpsertReservation(ctx context.Context, r *models.Reservation) (bool, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	PropertyStore
	SyncStateStore
	BookingStore
	ReservationStore
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "postgres":
		return OpenPostgres(ctx, cfg)
	default:
		return nil, &models.ConfigurationError{Setting: "DATABASE_DRIVER"}
	}
}

// Compile-time interface checks.
var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)

func persistErr(op string, err error) error {
	return &models.PersistenceError{Operation: op, Err: err}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneBooking(b *models.BookingRequest) *models.BookingRequest {
	c := *b
	c.GuestPhone = cloneString(b.GuestPhone)
	c.TotalAmount = cloneFloat(b.TotalAmount)
	c.SpecialRequests = cloneString(b.SpecialRequests)
	c.GuestyBookingID = cloneString(b.GuestyBookingID)
	return &c
}

func cloneReservation(r *models.Reservation) *models.Reservation {
	c := *r
	c.GuestPhone = cloneString(r.GuestPhone)
	c.SpecialRequests = cloneString(r.SpecialRequests)
	return &c
}

func cloneSyncState(s *models.SyncState) *models.SyncState {
	c := *s
	c.LastFullSyncAt = cloneTime(s.LastFullSyncAt)
	c.BackoffUntil = cloneTime(s.BackoffUntil)
	c.LastError = cloneString(s.LastError)
	return &c
}
