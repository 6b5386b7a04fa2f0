// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/villasync/internal/models"
)

// stubAPI returns err from every call.
type stubAPI struct {
	err   error
	calls int
}

func (s *stubAPI) ListListings(context.Context, string, int, int) ([]Listing, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []Listing{{ID: "L1"}}, nil
}

func (s *stubAPI) GetCalendar(context.Context, string, string, time.Time, time.Time) ([]CalendarDay, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []CalendarDay{{Date: "2025-03-01", Status: DayAvailable}}, nil
}

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{MinRequests: 2, FailureRate: 0.5, Timeout: time.Hour}
}

func TestBreakerClient_PassesThrough(t *testing.T) {
	api := &stubAPI{}
	b := NewBreakerClient(api, testBreakerSettings())

	listings, err := b.ListListings(context.Background(), "tok", 50, 0)
	if err != nil || len(listings) != 1 {
		t.Fatalf("ListListings() = (%v, %v)", listings, err)
	}

	days, err := b.GetCalendar(context.Background(), "tok", "L1", time.Now(), time.Now())
	if err != nil || len(days) != 1 {
		t.Fatalf("GetCalendar() = (%v, %v)", days, err)
	}
}

func TestBreakerClient_OpensOnServerErrors(t *testing.T) {
	api := &stubAPI{err: &models.UpstreamUnavailableError{Operation: "list listings", StatusCode: http.StatusBadGateway}}
	b := NewBreakerClient(api, testBreakerSettings())

	for i := 0; i < 2; i++ {
		if _, err := b.ListListings(context.Background(), "tok", 50, 0); err == nil {
			t.Fatal("expected upstream error")
		}
	}

	if b.State() != "open" {
		t.Fatalf("State() = %s, want open", b.State())
	}

	callsBefore := api.calls
	_, err := b.ListListings(context.Background(), "tok", 50, 0)

	var upErr *models.UpstreamUnavailableError
	if !errors.As(err, &upErr) {
		t.Fatalf("error = %v, want UpstreamUnavailableError", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want it to wrap ErrOpenState", err)
	}
	if api.calls != callsBefore {
		t.Error("open breaker should not call the upstream")
	}
}

func TestBreakerClient_ClientErrorsDoNotTrip(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", &models.UpstreamUnavailableError{Operation: "calendar", StatusCode: http.StatusNotFound}},
		{"bad request", fmt.Errorf("wrapped: %w", &models.UpstreamUnavailableError{Operation: "calendar", StatusCode: http.StatusBadRequest})},
		{"token rejected", &models.UpstreamAuthError{StatusCode: http.StatusUnauthorized}},
		{"caller cancelled", &models.UpstreamUnavailableError{Operation: "calendar", Err: context.Canceled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBreakerClient(&stubAPI{err: tt.err}, testBreakerSettings())

			for i := 0; i < 5; i++ {
				_, _ = b.GetCalendar(context.Background(), "tok", "L1", time.Now(), time.Now())
			}

			if b.State() != "closed" {
				t.Errorf("State() = %s, want closed", b.State())
			}
		})
	}
}

func TestIsBreakerSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"429", &models.UpstreamUnavailableError{StatusCode: http.StatusTooManyRequests}, false},
		{"500", &models.UpstreamUnavailableError{StatusCode: http.StatusInternalServerError}, false},
		{"transport", &models.UpstreamUnavailableError{Err: errors.New("connection reset")}, false},
		{"422", &models.UpstreamUnavailableError{StatusCode: http.StatusUnprocessableEntity}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBreakerSuccess(tt.err); got != tt.want {
				t.Errorf("isBreakerSuccess(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStateConversions(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		num   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.num {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.num)
		}
	}
}
