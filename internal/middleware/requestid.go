// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package middleware

import (
	"net/http"
	"regexp"

	"github.com/tomtom215/villasync/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Caller-supplied ids are echoed into logs, so only short safe tokens are kept.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID reuses a well-formed X-Request-ID from the caller (or a proxy)
// or generates a new one, sets it on the response and stores it in the
// logging context so logging.Ctx picks it up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !requestIDPattern.MatchString(requestID) {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
