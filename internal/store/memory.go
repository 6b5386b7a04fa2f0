// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/villasync/internal/models"
)

// defaultRateLimitBudget seeds rate_limit_remaining on a new sync state row.
const defaultRateLimitBudget = 1000

// Memory is an in-process Store. Values are copied on the way in and out,
// so callers never share memory with the store.
type Memory struct {
	mu           sync.RWMutex
	properties   map[string]*models.Property
	syncState    *models.SyncState
	bookings     map[string]*models.BookingRequest
	reservations map[string]*models.Reservation // keyed by GuestyBookingID
}

// NewMemory creates an empty in-memory store with the singleton sync row.
func NewMemory() *Memory {
	return &Memory{
		properties: make(map[string]*models.Property),
		syncState: &models.SyncState{
			ID:                 models.SyncStateID,
			RateLimitRemaining: defaultRateLimitBudget,
		},
		bookings:     make(map[string]*models.BookingRequest),
		reservations: make(map[string]*models.Reservation),
	}
}

func (m *Memory) GetPropertyHash(_ context.Context, id string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return "", false, nil
	}
	return p.DataHash, true, nil
}

func (m *Memory) UpsertProperty(_ context.Context, p *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.properties[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetActiveProperty(_ context.Context, id string) (*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok || !p.IsActive {
		return nil, &models.NotFoundError{Resource: "property", ID: id}
	}
	return p.Clone(), nil
}

func (m *Memory) ListActiveProperties(_ context.Context) ([]*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Property, 0, len(m.properties))
	for _, p := range m.properties {
		if p.IsActive {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) TryAcquireSync(_ context.Context, now time.Time) (*models.SyncState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.syncState.Running || m.syncState.InBackoff(now) {
		return cloneSyncState(m.syncState), false, nil
	}

	m.syncState.Running = true
	m.syncState.UpdatedAt = now
	return cloneSyncState(m.syncState), true, nil
}

func (m *Memory) ReleaseSync(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncState.Running = false
	m.syncState.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) CompleteSync(_ context.Context, at time.Time, rateLimitRemaining int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncState.LastFullSyncAt = &at
	m.syncState.Running = false
	m.syncState.BackoffUntil = nil
	m.syncState.LastError = nil
	m.syncState.RateLimitRemaining = rateLimitRemaining
	m.syncState.UpdatedAt = at
	return nil
}

func (m *Memory) FailSync(_ context.Context, backoffUntil time.Time, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncState.Running = false
	m.syncState.BackoffUntil = &backoffUntil
	m.syncState.LastError = &lastError
	m.syncState.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetSyncState(_ context.Context) (*models.SyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSyncState(m.syncState), nil
}

func (m *Memory) CreateBooking(_ context.Context, b *models.BookingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *Memory) MarkBookingSent(_ context.Context, id, guestyBookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.pendingBooking(id)
	if err != nil {
		return err
	}
	b.Status = models.BookingSentToGuesty
	b.GuestyBookingID = &guestyBookingID
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) MarkBookingFailed(_ context.Context, id, specialRequests string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.pendingBooking(id)
	if err != nil {
		return err
	}
	b.Status = models.BookingGuestyFailed
	b.SpecialRequests = &specialRequests
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// pendingBooking must be called with mu held.
func (m *Memory) pendingBooking(id string) (*models.BookingRequest, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "booking request", ID: id}
	}
	if b.Status != models.BookingPending {
		return nil, models.ErrInvalidTransition
	}
	return b, nil
}

func (m *Memory) GetBooking(_ context.Context, id string) (*models.BookingRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "booking request", ID: id}
	}
	return cloneBooking(b), nil
}

func (m *Memory) UpsertReservation(_ context.Context, r *models.Reservation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := m.reservations[r.GuestyBookingID]
	if ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	m.reservations[r.GuestyBookingID] = cloneReservation(r)
	return !ok, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
