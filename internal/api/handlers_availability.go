// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"net/http"
)

// Availability answers whether a property can be booked for a stay.
//
// Request body:
//
//	{"property_id":"L1","check_in":"2025-03-01","check_out":"2025-03-04","adults":2,"children":0}
//
// Unknown or inactive properties are 404, validation problems are an
// itemized 400, and a Guesty calendar outage degrades to unavailable.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req AvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.Fail(err)
		return
	}

	answer, err := h.deps.Availability.Resolve(r.Context(), req.toDomain())
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(answer)
}
