// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/villasync/internal/booking"
	"github.com/tomtom215/villasync/internal/logging"
)

// CreateBooking stores a booking request from the website and, when asked,
// forwards it to the Guesty reservation API. The request is stored even when
// forwarding fails; the status in the response tells the two apart.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body BookingRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		rw.Fail(err)
		return
	}

	result, err := h.deps.Intake.Submit(r.Context(), body.toDomain())
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Created(result)
}

// GuestyWebhook receives reservation events from Guesty. The signature is
// checked over the raw body, so the body is read before any decoding.
func (h *Handler) GuestyWebhook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := readBody(w, r)
	if err != nil {
		rw.Fail(err)
		return
	}

	result, err := h.deps.Webhooks.Process(r.Context(), body, r.Header.Get(booking.SignatureHeader))
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(result)
}

// AdminGetBooking returns one stored booking request.
func (h *Handler) AdminGetBooking(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		rw.NotFound("Booking request not found")
		return
	}

	b, err := h.deps.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		rw.Fail(err)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("booking_id", id).Msg("Admin booking lookup")
	rw.Success(b)
}
