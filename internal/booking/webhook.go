// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package booking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
	"github.com/tomtom215/villasync/internal/store"
	"github.com/tomtom215/villasync/internal/validation"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Guesty-Signature"

// ErrBadSignature is returned when a webhook signature is missing or wrong.
var ErrBadSignature = errors.New("invalid webhook signature")

// Webhook actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

type webhookGuest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type webhookOccupancy struct {
	NumberOfGuests json.RawMessage `json:"numberOfGuests"`
}

type webhookMoney struct {
	FinalPrice json.RawMessage `json:"finalPrice"`
	Currency   string          `json:"currency"`
}

// webhookPayload is the subset of a Guesty reservation event that is kept.
// Numeric fields stay raw so a wrongly typed value is reported as a
// validation problem instead of failing the whole decode.
type webhookPayload struct {
	ID              string           `json:"_id"`
	ListingID       string           `json:"listingId"`
	Status          string           `json:"status"`
	CheckIn         string           `json:"checkIn"`
	CheckOut        string           `json:"checkOut"`
	Guest           *webhookGuest    `json:"guest"`
	Occupancy       webhookOccupancy `json:"occupancy"`
	Money           webhookMoney     `json:"money"`
	SpecialRequests string           `json:"specialRequests"`
}

// WebhookResult reports what an accepted event did.
type WebhookResult struct {
	Action          string `json:"action"`
	GuestyBookingID string `json:"guestyBookingId"`
}

// WebhookProcessor validates and applies reservation webhooks.
type WebhookProcessor struct {
	reservations store.ReservationStore
	secret       []byte
}

// NewWebhookProcessor creates a processor. An empty secret disables
// signature checks.
func NewWebhookProcessor(reservations store.ReservationStore, secret string) *WebhookProcessor {
	p := &WebhookProcessor{reservations: reservations}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Verify checks signature against body when a secret is configured.
func (p *WebhookProcessor) Verify(body []byte, signature string) error {
	if p.secret == nil {
		return nil
	}
	if signature == "" {
		return ErrBadSignature
	}
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(Sign(p.secret, body))) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Process verifies, validates and upserts one webhook delivery.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := p.Verify(body, signature); err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		verr := &models.ValidationError{}
		verr.Add("body", "Request body must be a JSON object")
		return nil, verr
	}

	r, err := toReservation(&payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	created, err := p.reservations.UpsertReservation(ctx, r)
	if err != nil {
		return nil, err
	}

	action := ActionUpdated
	if created {
		action = ActionCreated
	}
	metrics.WebhookEvents.WithLabelValues(action).Inc()
	logging.Ctx(ctx).Info().
		Str("guesty_booking_id", r.GuestyBookingID).
		Str("status", r.BookingStatus).
		Str("action", action).
		Msg("Reservation webhook applied")

	return &WebhookResult{Action: action, GuestyBookingID: r.GuestyBookingID}, nil
}

func toReservation(p *webhookPayload) (*models.Reservation, error) {
	verr := &models.ValidationError{}
	r := &models.Reservation{
		ID:              uuid.New().String(),
		GuestyBookingID: strings.TrimSpace(p.ID),
		ListingID:       p.ListingID,
		BookingStatus:   strings.TrimSpace(p.Status),
		Currency:        p.Money.Currency,
	}

	if r.GuestyBookingID == "" {
		verr.Add("_id", "Invalid or missing booking ID")
	}
	if r.BookingStatus == "" {
		verr.Add("status", "Invalid or missing booking status")
	}

	if p.CheckIn == "" || p.CheckOut == "" {
		verr.Add("checkIn", "Check-in and check-out dates are required")
	} else {
		var inErr, outErr error
		r.CheckIn, inErr = validation.ParseDate(p.CheckIn)
		r.CheckOut, outErr = validation.ParseDate(p.CheckOut)
		if inErr != nil || outErr != nil {
			verr.Add("checkIn", "Invalid check-in or check-out date format")
		}
	}

	if p.Guest == nil || strings.TrimSpace(p.Guest.FullName) == "" || strings.TrimSpace(p.Guest.Email) == "" {
		verr.Add("guest", "Guest information (name and email) is required")
	} else {
		r.GuestName = strings.TrimSpace(p.Guest.FullName)
		r.GuestEmail = strings.TrimSpace(p.Guest.Email)
		r.GuestPhone = optional(strings.TrimSpace(p.Guest.Phone))
		if !validation.IsEmail(r.GuestEmail) {
			verr.Add("guest.email", "Invalid guest email format")
		}
	}

	guests, ok := number(p.Occupancy.NumberOfGuests)
	if !ok || guests < 1 || guests != math.Trunc(guests) {
		verr.Add("occupancy.numberOfGuests", "Valid guest count is required")
	}
	r.GuestsCount = int(guests)

	price, ok := number(p.Money.FinalPrice)
	if !ok || price < 0 {
		verr.Add("money.finalPrice", "Valid final price is required")
	}
	r.TotalAmount = price

	r.SpecialRequests = optional(strings.TrimSpace(p.SpecialRequests))

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return r, nil
}

// number decodes a raw JSON number. Strings, null and missing values are
// rejected.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	// null decodes into the zero value without error.
	if strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	return f, true
}
