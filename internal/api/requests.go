// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/availability"
	"github.com/tomtom215/villasync/internal/booking"
	"github.com/tomtom215/villasync/internal/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// AvailabilityRequest is the body of POST /api/v1/availability.
// room_type_id is the legacy name of property_id.
type AvailabilityRequest struct {
	PropertyID string `json:"property_id"`
	RoomTypeID string `json:"room_type_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
}

func (a AvailabilityRequest) toDomain() availability.Request {
	id := a.PropertyID
	if id == "" {
		id = a.RoomTypeID
	}
	return availability.Request{
		PropertyID: id,
		CheckIn:    a.CheckIn,
		CheckOut:   a.CheckOut,
		Adults:     a.Adults,
		Children:   a.Children,
	}
}

// BookingRequestBody is the body of POST /api/v1/bookings. guestsCount is
// accepted as an alias of guests.
type BookingRequestBody struct {
	PropertyID      string `json:"propertyId"`
	CheckIn         string `json:"checkIn"`
	CheckOut        string `json:"checkOut"`
	Guests          any    `json:"guests"`
	GuestsCount     any    `json:"guestsCount"`
	GuestName       string `json:"guestName"`
	GuestEmail      string `json:"guestEmail"`
	GuestPhone      string `json:"guestPhone"`
	SpecialRequests string `json:"specialRequests"`
	SendToGuesty    bool   `json:"sendToGuesty"`
}

func (b BookingRequestBody) toDomain() booking.Request {
	guests := b.Guests
	if guests == nil {
		guests = b.GuestsCount
	}
	return booking.Request{
		PropertyID:      b.PropertyID,
		CheckIn:         b.CheckIn,
		CheckOut:        b.CheckOut,
		Guests:          guests,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		GuestPhone:      b.GuestPhone,
		SpecialRequests: b.SpecialRequests,
		SendToGuesty:    b.SendToGuesty,
	}
}

// LoginRequest is the body of POST /api/v1/admin/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// decodeJSON decodes a bounded JSON body into dst. Malformed bodies come back
// as a *models.ValidationError on field "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		verr := &models.ValidationError{}
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			verr.Add("body", "Request body is too large")
		case errors.Is(err, io.EOF):
			verr.Add("body", "Request body is required")
		default:
			verr.Add("body", "Request body must be valid JSON")
		}
		return verr
	}
	return nil
}

// readBody reads a bounded raw body, for handlers that verify signatures
// over the exact bytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		verr := &models.ValidationError{}
		verr.Add("body", "Request body is too large or unreadable")
		return nil, verr
	}
	return body, nil
}
