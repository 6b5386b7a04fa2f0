// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/villasync/internal/models"
)

// runStoreContract exercises behaviour every Store implementation must share.
// newStore must return an empty store for each call.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("properties", func(t *testing.T) { testProperties(t, newStore(t)) })
	t.Run("sync lock", func(t *testing.T) { testSyncLock(t, newStore(t)) })
	t.Run("concurrent sync lock", func(t *testing.T) { testConcurrentSyncLock(t, newStore(t)) })
	t.Run("sync backoff", func(t *testing.T) { testSyncBackoff(t, newStore(t)) })
	t.Run("booking transitions", func(t *testing.T) { testBookingTransitions(t, newStore(t)) })
	t.Run("reservation upsert", func(t *testing.T) { testReservationUpsert(t, newStore(t)) })
}

func testProperty(id, title, hash string, active bool) *models.Property {
	return &models.Property{
		ID:              id,
		Title:           title,
		BasePrice:       199,
		Currency:        "USD",
		MaxGuests:       6,
		MinNights:       1,
		MaxNights:       30,
		Amenities:       []byte(`["pool"]`),
		SourceRaw:       []byte(`{"_id":"` + id + `"}`),
		SourceUpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		LastSyncedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DataHash:        hash,
		IsActive:        active,
	}
}

func testProperties(t *testing.T, s Store) {
	ctx := context.Background()

	if _, ok, err := s.GetPropertyHash(ctx, "p1"); err != nil || ok {
		t.Fatalf("GetPropertyHash(missing) = (%v, %v)", ok, err)
	}

	for _, p := range []*models.Property{
		testProperty("p1", "Beach House", "hash-1", true),
		testProperty("p2", "Apple Cottage", "hash-2", true),
		testProperty("p3", "Closed Villa", "hash-3", false),
	} {
		if err := s.UpsertProperty(ctx, p); err != nil {
			t.Fatalf("UpsertProperty(%s) error = %v", p.ID, err)
		}
	}

	hash, ok, err := s.GetPropertyHash(ctx, "p1")
	if err != nil || !ok || hash != "hash-1" {
		t.Errorf("GetPropertyHash(p1) = (%q, %v, %v)", hash, ok, err)
	}

	updated := testProperty("p1", "Beach House II", "hash-1b", true)
	if err := s.UpsertProperty(ctx, updated); err != nil {
		t.Fatalf("UpsertProperty(update) error = %v", err)
	}

	got, err := s.GetActiveProperty(ctx, "p1")
	if err != nil {
		t.Fatalf("GetActiveProperty(p1) error = %v", err)
	}
	if got.Title != "Beach House II" || got.DataHash != "hash-1b" {
		t.Errorf("GetActiveProperty(p1) = %+v", got)
	}

	list, err := s.ListActiveProperties(ctx)
	if err != nil {
		t.Fatalf("ListActiveProperties() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "p2" || list[1].ID != "p1" {
		ids := make([]string, len(list))
		for i, p := range list {
			ids[i] = p.ID
		}
		t.Errorf("ListActiveProperties() ids = %v, want [p2 p1]", ids)
	}

	for _, id := range []string{"p3", "missing"} {
		if _, err := s.GetActiveProperty(ctx, id); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetActiveProperty(%s) error = %v, want ErrNotFound", id, err)
		}
	}
}

// acquireConcurrently races n TryAcquireSync calls and returns the winners.
func acquireConcurrently(t *testing.T, s Store, n int, now time.Time) int32 {
	t.Helper()
	var wins atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, ok, err := s.TryAcquireSync(ctx, now)
			if ok {
				wins.Add(1)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent TryAcquireSync() error = %v", err)
	}
	return wins.Load()
}

func testConcurrentSyncLock(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	const racers = 16

	if wins := acquireConcurrently(t, s, racers, now); wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	state, err := s.GetSyncState(ctx)
	if err != nil || !state.Running {
		t.Fatalf("GetSyncState() = (%+v, %v), want running", state, err)
	}

	// Released: the next race again has a single winner.
	if err := s.ReleaseSync(ctx); err != nil {
		t.Fatalf("ReleaseSync() error = %v", err)
	}
	if wins := acquireConcurrently(t, s, racers, now); wins != 1 {
		t.Fatalf("winners after release = %d, want exactly 1", wins)
	}

	// Failed with a backoff: nobody wins until it expires.
	if err := s.FailSync(ctx, now.Add(15*time.Minute), "listings returned 503"); err != nil {
		t.Fatalf("FailSync() error = %v", err)
	}
	if wins := acquireConcurrently(t, s, racers, now.Add(time.Minute)); wins != 0 {
		t.Fatalf("winners during backoff = %d, want 0", wins)
	}
	if wins := acquireConcurrently(t, s, racers, now.Add(16*time.Minute)); wins != 1 {
		t.Fatalf("winners after backoff = %d, want exactly 1", wins)
	}
}

func testSyncLock(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	state, ok, err := s.TryAcquireSync(ctx, now)
	if err != nil || !ok {
		t.Fatalf("first TryAcquireSync() = (%v, %v)", ok, err)
	}
	if !state.Running {
		t.Error("acquired state should be running")
	}

	if _, ok, err := s.TryAcquireSync(ctx, now); err != nil || ok {
		t.Fatalf("second TryAcquireSync() = (%v, %v), want not acquired", ok, err)
	}

	if err := s.ReleaseSync(ctx); err != nil {
		t.Fatalf("ReleaseSync() error = %v", err)
	}
	if _, ok, _ := s.TryAcquireSync(ctx, now); !ok {
		t.Fatal("TryAcquireSync() after release should succeed")
	}

	if err := s.CompleteSync(ctx, now, 1000); err != nil {
		t.Fatalf("CompleteSync() error = %v", err)
	}

	state, err = s.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() error = %v", err)
	}
	if state.Running {
		t.Error("CompleteSync should release the lock")
	}
	if state.LastFullSyncAt == nil || !state.LastFullSyncAt.Equal(now) {
		t.Errorf("LastFullSyncAt = %v, want %v", state.LastFullSyncAt, now)
	}
	if state.RateLimitRemaining != 1000 {
		t.Errorf("RateLimitRemaining = %d, want 1000", state.RateLimitRemaining)
	}
}

func testSyncBackoff(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, _ := s.TryAcquireSync(ctx, now); !ok {
		t.Fatal("TryAcquireSync() should succeed on a fresh store")
	}
	if err := s.FailSync(ctx, now.Add(15*time.Minute), "listings returned 503"); err != nil {
		t.Fatalf("FailSync() error = %v", err)
	}

	state, err := s.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() error = %v", err)
	}
	if state.Running {
		t.Error("FailSync should release the lock")
	}
	if state.LastError == nil || *state.LastError != "listings returned 503" {
		t.Errorf("LastError = %v", state.LastError)
	}

	if _, ok, _ := s.TryAcquireSync(ctx, now.Add(5*time.Minute)); ok {
		t.Error("TryAcquireSync() during backoff should not acquire")
	}
	if _, ok, _ := s.TryAcquireSync(ctx, now.Add(16*time.Minute)); !ok {
		t.Fatal("TryAcquireSync() after backoff should acquire")
	}

	if err := s.CompleteSync(ctx, now.Add(17*time.Minute), 1000); err != nil {
		t.Fatalf("CompleteSync() error = %v", err)
	}
	state, _ = s.GetSyncState(ctx)
	if state.LastError != nil || state.BackoffUntil != nil {
		t.Errorf("CompleteSync should clear error and backoff, got %v / %v", state.LastError, state.BackoffUntil)
	}
}

func testBooking(name string) *models.BookingRequest {
	special := "Late arrival"
	return &models.BookingRequest{
		PropertyID:      "p1",
		GuestName:       name,
		GuestEmail:      "jane@example.com",
		CheckIn:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:        time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		GuestsCount:     2,
		Nights:          3,
		Currency:        "USD",
		SpecialRequests: &special,
		Status:          models.BookingPending,
	}
}

func testBookingTransitions(t *testing.T, s Store) {
	ctx := context.Background()

	sent := testBooking("Jane Doe")
	if err := s.CreateBooking(ctx, sent); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if sent.ID == "" {
		t.Fatal("CreateBooking should assign an id")
	}

	if err := s.MarkBookingSent(ctx, sent.ID, "G-1"); err != nil {
		t.Fatalf("MarkBookingSent() error = %v", err)
	}
	if err := s.MarkBookingFailed(ctx, sent.ID, "too late"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second transition error = %v, want ErrInvalidTransition", err)
	}

	got, err := s.GetBooking(ctx, sent.ID)
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.Status != models.BookingSentToGuesty || got.GuestyBookingID == nil || *got.GuestyBookingID != "G-1" {
		t.Errorf("sent booking = status %s, guesty id %v", got.Status, got.GuestyBookingID)
	}

	failed := testBooking("John Roe")
	if err := s.CreateBooking(ctx, failed); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if err := s.MarkBookingFailed(ctx, failed.ID, "Late arrival\n\nGuesty Error: boom"); err != nil {
		t.Fatalf("MarkBookingFailed() error = %v", err)
	}

	got, err = s.GetBooking(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.Status != models.BookingGuestyFailed {
		t.Errorf("Status = %s, want guesty_failed", got.Status)
	}
	if got.GuestName != "John Roe" || got.SpecialRequests == nil || *got.SpecialRequests != "Late arrival\n\nGuesty Error: boom" {
		t.Errorf("failed booking lost data: %+v", got)
	}

	missing := "00000000-0000-0000-0000-000000000000"
	if _, err := s.GetBooking(ctx, missing); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetBooking(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.MarkBookingSent(ctx, missing, "G-2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("MarkBookingSent(missing) error = %v, want ErrNotFound", err)
	}
}

func testReservationUpsert(t *testing.T, s Store) {
	ctx := context.Background()

	r := &models.Reservation{
		GuestyBookingID: "G-100",
		BookingStatus:   "inquiry",
		CheckIn:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:        time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		GuestName:       "Jane Doe",
		GuestEmail:      "jane@example.com",
		GuestsCount:     2,
		TotalAmount:     320,
	}

	created, err := s.UpsertReservation(ctx, r)
	if err != nil || !created {
		t.Fatalf("first UpsertReservation() = (%v, %v), want created", created, err)
	}
	firstID := r.ID

	again := *r
	again.ID = ""
	again.BookingStatus = "confirmed"
	created, err = s.UpsertReservation(ctx, &again)
	if err != nil || created {
		t.Fatalf("second UpsertReservation() = (%v, %v), want updated", created, err)
	}
	if again.ID != firstID {
		t.Errorf("update changed id from %s to %s", firstID, again.ID)
	}
}
