// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"context"
	"errors"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
)

// BreakerClient wraps an API with the circuit breaker pattern so a failing
// upstream is not hammered by every availability request.
//
// Client errors (4xx other than 429) and caller cancellation do not count
// as failures. While open, calls fail fast with UpstreamUnavailableError.
type BreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// BreakerSettings tunes the breaker. Zero values fall back to the defaults
// listed on NewBreakerClient.
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MinRequests uint32
	FailureRate float64
}

// NewBreakerClient creates a circuit-breaking wrapper around api.
// Circuit breaker configuration defaults:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(api API, s BreakerSettings) *BreakerClient {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 2 * time.Minute
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRate == 0 {
		s.FailureRate = 0.6
	}

	cbName := "guesty-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRate

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		IsSuccessful: isBreakerSuccess,

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{api: api, cb: cb, name: cbName}
}

// isBreakerSuccess decides which errors count against the upstream.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	var authErr *models.UpstreamAuthError
	if errors.As(err, &authErr) {
		return true
	}

	var upErr *models.UpstreamUnavailableError
	if errors.As(err, &upErr) {
		code := upErr.StatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

// execute wraps an upstream call with circuit breaker protection
func (b *BreakerClient) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("operation", operation).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, &models.UpstreamUnavailableError{Operation: operation, Err: err}
		}

		if isBreakerSuccess(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)

	return result, nil
}

// State reports the current breaker state ("closed", "half-open", "open").
func (b *BreakerClient) State() string {
	return stateToString(b.cb.State())
}

// ListListings fetches one page of listings with circuit breaker protection.
func (b *BreakerClient) ListListings(ctx context.Context, token string, limit, skip int) ([]Listing, error) {
	result, err := b.execute("list listings", func() (interface{}, error) {
		return b.api.ListListings(ctx, token, limit, skip)
	})
	if err != nil {
		return nil, err
	}
	listings, _ := result.([]Listing)
	return listings, nil
}

// GetCalendar fetches a calendar with circuit breaker protection.
func (b *BreakerClient) GetCalendar(ctx context.Context, token, listingID string, start, end time.Time) ([]CalendarDay, error) {
	result, err := b.execute("calendar", func() (interface{}, error) {
		return b.api.GetCalendar(ctx, token, listingID, start, end)
	})
	if err != nil {
		return nil, err
	}
	days, _ := result.([]CalendarDay)
	return days, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	_ API = (*Client)(nil)
	_ API = (*BreakerClient)(nil)
)
