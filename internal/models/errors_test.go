// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNotFoundErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &NotFoundError{Resource: "property", ID: "abc"})
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapped NotFoundError should match ErrNotFound")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "abc" {
		t.Errorf("errors.As failed, got %+v", nf)
	}
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	if v.OrNil() != nil {
		t.Error("empty ValidationError should be nil")
	}

	v.Add("checkIn", "Check-in date is required")
	other := &ValidationError{}
	other.Add("guests", "Guest count must be between 1 and 20")
	v.Merge(other)
	v.Merge(nil)

	err := v.OrNil()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(v.Problems) != 2 {
		t.Errorf("Problems = %d, want 2", len(v.Problems))
	}
	if !strings.Contains(err.Error(), "Guest count must be between 1 and 20") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUpstreamErrorsUnwrap(t *testing.T) {
	auth := &UpstreamAuthError{Err: context.DeadlineExceeded}
	if !errors.Is(auth, context.DeadlineExceeded) {
		t.Error("UpstreamAuthError should unwrap its cause")
	}
	if got := (&UpstreamAuthError{StatusCode: 401}).Error(); !strings.Contains(got, "401") {
		t.Errorf("Error() = %q, want status code", got)
	}

	unavailable := &UpstreamUnavailableError{Operation: "calendar", StatusCode: 503}
	if !strings.Contains(unavailable.Error(), "calendar") || !strings.Contains(unavailable.Error(), "503") {
		t.Errorf("Error() = %q", unavailable.Error())
	}

	persist := &PersistenceError{Operation: "upsert property", Err: errors.New("disk full")}
	if !strings.Contains(persist.Error(), "disk full") {
		t.Errorf("Error() = %q", persist.Error())
	}
}

func TestSyncStateFreshness(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * time.Minute)
	old := now.Add(-11 * time.Minute)

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never synced", nil, false},
		{"within ttl", &recent, true},
		{"expired", &old, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SyncState{LastFullSyncAt: tt.last}
			if got := s.Fresh(now, 10*time.Minute); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncStateBackoff(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	if (&SyncState{}).InBackoff(now) {
		t.Error("no backoff should not block")
	}
	if !(&SyncState{BackoffUntil: &future}).InBackoff(now) {
		t.Error("future backoff should block")
	}
	if (&SyncState{BackoffUntil: &past}).InBackoff(now) {
		t.Error("expired backoff should not block")
	}
}

func TestPropertyCloneIsDeep(t *testing.T) {
	beds := 3
	p := &Property{ID: "p1", Beds: &beds, Amenities: []byte(`["pool"]`)}
	c := p.Clone()

	*c.Beds = 4
	c.Amenities[2] = 'X'

	if *p.Beds != 3 {
		t.Error("Clone shares Beds pointer")
	}
	if string(p.Amenities) != `["pool"]` {
		t.Errorf("Clone shares Amenities buffer: %s", p.Amenities)
	}
}
