// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/villasync/internal/logging"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generates when absent", "", false},
		{"keeps well-formed id", "abc-123_DEF.4", true},
		{"replaces id with spaces", "abc 123", false},
		{"replaces oversized id", strings.Repeat("a", 65), false},
		{"replaces id with newline", "abc\ninjected", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = logging.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			if header == "" {
				t.Fatal("response is missing X-Request-ID")
			}
			if header != seen {
				t.Errorf("context id %q does not match header %q", seen, header)
			}
			if tt.keep && header != tt.incoming {
				t.Errorf("id = %q, want caller id %q", header, tt.incoming)
			}
			if !tt.keep && header == tt.incoming {
				t.Errorf("caller id %q should have been replaced", tt.incoming)
			}
		})
	}
}
