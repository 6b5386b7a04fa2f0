// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package metrics defines the Prometheus instrumentation for Villasync.
//
// Metrics are registered with the default registry through promauto and are
// served by the /metrics endpoint. The Record* helpers keep label values
// consistent across call sites.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/villasync/internal/models"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Guesty Upstream Metrics
	GuestyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guesty_requests_total",
			Help: "Total number of Guesty API calls",
		},
		[]string{"operation", "status_code"}, // status_code "error" when no response arrived
	)

	GuestyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guesty_request_duration_seconds",
			Help:    "Guesty API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"operation"},
	)

	GuestyRateLimitRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guesty_rate_limit_retries_total",
			Help: "Total number of Guesty calls retried after HTTP 429",
		},
		[]string{"operation"},
	)

	GuestyTokenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guesty_token_requests_total",
			Help: "Access tokens served, by source",
		},
		[]string{"source"}, // "upstream", "cache"
	)

	// Sync Operation Metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync attempts by outcome",
		},
		[]string{"outcome"}, // "completed", "skipped_locked", "skipped_fresh", "failed"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncProperties = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_properties_total",
			Help: "Properties examined during sync by result",
		},
		[]string{"result"}, // "updated", "unchanged", "failed"
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of failed sync runs by cause",
		},
		[]string{"error_type"}, // "auth", "upstream", "persistence", "configuration", "other"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
	)

	// Availability and Booking Metrics
	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_checks_total",
			Help: "Availability checks by outcome",
		},
		[]string{"outcome"}, // "available", "unavailable", "degraded"
	)

	BookingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_total",
			Help: "Booking requests by final status",
		},
		[]string{"status"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Booking notifications by channel and outcome",
		},
		[]string{"channel", "outcome"}, // outcome: "sent", "failed"
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Reservation webhook deliveries by result",
		},
		[]string{"result"}, // "created", "updated", "rejected"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// Sync outcomes used as label values.
const (
	SyncOutcomeCompleted     = "completed"
	SyncOutcomeSkippedLocked = "skipped_locked"
	SyncOutcomeSkippedFresh  = "skipped_fresh"
	SyncOutcomeFailed        = "failed"
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordGuestyRequest records one upstream call. statusCode is "error" when
// the call produced no HTTP response.
func RecordGuestyRequest(operation, statusCode string, duration time.Duration) {
	GuestyRequestsTotal.WithLabelValues(operation, statusCode).Inc()
	GuestyRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSyncOperation records the result of one coordinator run.
func RecordSyncOperation(outcome string, duration time.Duration, updated, unchanged, failed int, err error) {
	SyncRuns.WithLabelValues(outcome).Inc()

	switch outcome {
	case SyncOutcomeSkippedLocked, SyncOutcomeSkippedFresh:
		return
	}

	SyncDuration.Observe(duration.Seconds())
	SyncProperties.WithLabelValues("updated").Add(float64(updated))
	SyncProperties.WithLabelValues("unchanged").Add(float64(unchanged))
	SyncProperties.WithLabelValues("failed").Add(float64(failed))

	if err != nil {
		SyncErrors.WithLabelValues(categorizeError(err)).Inc()
		return
	}
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

// categorizeError maps an error onto a bounded label value.
func categorizeError(err error) string {
	var (
		authErr     *models.UpstreamAuthError
		upstreamErr *models.UpstreamUnavailableError
		persistErr  *models.PersistenceError
		configErr   *models.ConfigurationError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &upstreamErr):
		return "upstream"
	case errors.As(err, &persistErr):
		return "persistence"
	case errors.As(err, &configErr):
		return "configuration"
	default:
		return "other"
	}
}
