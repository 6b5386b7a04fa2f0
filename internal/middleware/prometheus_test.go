// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/villasync/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Run("labels requests with the route pattern", func(t *testing.T) {
		r := chi.NewRouter()
		r.Use(PrometheusMetrics)
		r.Get("/api/v1/properties/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		counter := metrics.APIRequestsTotal.WithLabelValues("GET", "/api/v1/properties/{id}", "404")
		before := testutil.ToFloat64(counter)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/abc123", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if got := testutil.ToFloat64(counter); got != before+1 {
			t.Errorf("api_requests_total = %v, want %v", got, before+1)
		}
	})

	t.Run("defaults status to 200", func(t *testing.T) {
		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		counter := metrics.APIRequestsTotal.WithLabelValues("POST", "unmatched", "200")
		before := testutil.ToFloat64(counter)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/anything", nil))

		if got := testutil.ToFloat64(counter); got != before+1 {
			t.Errorf("api_requests_total = %v, want %v", got, before+1)
		}
	})

	t.Run("first status wins", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusInternalServerError)
		if rw.statusCode != http.StatusCreated {
			t.Errorf("statusCode = %d, want 201", rw.statusCode)
		}
	})
}
