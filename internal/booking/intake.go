// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
	"github.com/tomtom215/villasync/internal/notify"
	"github.com/tomtom215/villasync/internal/store"
	"github.com/tomtom215/villasync/internal/validation"
)

// Forwarder creates reservations upstream. *guesty.ReservationClient
// implements it.
type Forwarder interface {
	Configured() bool
	DefaultListingID() string
	Create(ctx context.Context, r *guesty.ReservationRequest) (string, error)
}

// PropertyLookup reads cached properties for pricing.
type PropertyLookup interface {
	GetActiveProperty(ctx context.Context, id string) (*models.Property, error)
}

// Request is a guest booking request as submitted by the website.
//
// Guests holds the decoded JSON value of "guests" (or "guestsCount"); it is
// checked here rather than at decode time so that a non-numeric value is
// reported alongside every other problem.
type Request struct {
	PropertyID      string
	CheckIn         string
	CheckOut        string
	Guests          any
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	SpecialRequests string
	SendToGuesty    bool
}

// GuestyBooking identifies the upstream reservation created for a request.
type GuestyBooking struct {
	ID string `json:"id"`
}

// Result is the outcome of a submission.
type Result struct {
	BookingID     string               `json:"bookingId"`
	Status        models.BookingStatus `json:"status"`
	GuestyBooking *GuestyBooking       `json:"guestyBooking"`
}

// guestFields carries the free-text fields through the struct validator.
type guestFields struct {
	GuestName       string `json:"guestName" validate:"required,min=2,max=100,guestname"`
	GuestEmail      string `json:"guestEmail" validate:"required,max=254,simpleemail"`
	GuestPhone      string `json:"guestPhone" validate:"omitempty,guestphone"`
	SpecialRequests string `json:"specialRequests" validate:"max=1000"`
}

// Intake validates, stores and forwards booking requests.
type Intake struct {
	bookings   store.BookingStore
	properties PropertyLookup
	forwarder  Forwarder
	notifier   *notify.BestEffort
	cfg        config.BookingConfig
	now        func() time.Time
}

// NewIntake creates an Intake. forwarder and notifier may be nil.
func NewIntake(bookings store.BookingStore, properties PropertyLookup, forwarder Forwarder, notifier *notify.BestEffort, cfg config.BookingConfig) *Intake {
	return &Intake{
		bookings:   bookings,
		properties: properties,
		forwarder:  forwarder,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// validated is a Request that passed every check.
type validated struct {
	propertyID string
	checkIn    time.Time
	checkOut   time.Time
	nights     int
	guests     int
	name       string
	email      string
	phone      string
	special    string
}

// Submit validates req, stores it as pending and optionally forwards it to
// Guesty. The stored row survives any forwarding or notification failure.
func (in *Intake) Submit(ctx context.Context, req Request) (*Result, error) {
	v, err := in.validate(req)
	if err != nil {
		return nil, err
	}

	if v.propertyID == "" && in.forwarder != nil {
		v.propertyID = in.forwarder.DefaultListingID()
	}

	b := &models.BookingRequest{
		ID:          uuid.New().String(),
		PropertyID:  v.propertyID,
		GuestName:   v.name,
		GuestEmail:  v.email,
		GuestPhone:  optional(v.phone),
		CheckIn:     v.checkIn,
		CheckOut:    v.checkOut,
		GuestsCount: v.guests,
		Nights:      v.nights,
		Status:      models.BookingPending,
	}
	b.SpecialRequests = optional(v.special)

	propertyTitle := ""
	if property := in.lookupProperty(ctx, v.propertyID); property != nil {
		total := property.BasePrice * float64(v.nights)
		b.TotalAmount = &total
		b.Currency = property.Currency
		propertyTitle = property.Title
	}

	logger := logging.Ctx(ctx).With().
		Str("booking_id", b.ID).
		Str("property_id", b.PropertyID).
		Logger()

	if err := in.bookings.CreateBooking(ctx, b); err != nil {
		metrics.BookingRequests.WithLabelValues("store_failed").Inc()
		return nil, err
	}
	logger.Info().
		Int("nights", v.nights).
		Int("guests", v.guests).
		Str("guest_email", logging.MaskEmail(v.email)).
		Msg("Booking request stored")

	result := &Result{BookingID: b.ID, Status: models.BookingPending}

	if req.SendToGuesty {
		in.forward(ctx, b, result)
	}

	metrics.BookingRequests.WithLabelValues(string(result.Status)).Inc()

	notice := &notify.Notice{
		BookingID:       b.ID,
		PropertyTitle:   propertyTitle,
		GuestName:       v.name,
		GuestEmail:      v.email,
		GuestPhone:      v.phone,
		CheckIn:         v.checkIn.Format(validation.DateLayout),
		CheckOut:        v.checkOut.Format(validation.DateLayout),
		Nights:          v.nights,
		Guests:          v.guests,
		TotalAmount:     b.TotalAmount,
		Currency:        b.Currency,
		SpecialRequests: v.special,
		Status:          string(result.Status),
	}
	if result.GuestyBooking != nil {
		notice.GuestyBookingID = result.GuestyBooking.ID
	}
	in.notifier.Notify(ctx, notice)

	return result, nil
}

// forward sends b upstream and records the outcome on the stored row.
func (in *Intake) forward(ctx context.Context, b *models.BookingRequest, result *Result) {
	logger := logging.Ctx(ctx).With().Str("booking_id", b.ID).Logger()

	if in.forwarder == nil || !in.forwarder.Configured() {
		logger.Warn().Msg("Forwarding requested but the reservation API is not configured")
		return
	}

	phone := ""
	if b.GuestPhone != nil {
		phone = *b.GuestPhone
	}
	special := ""
	if b.SpecialRequests != nil {
		special = *b.SpecialRequests
	}

	guestyID, err := in.forwarder.Create(ctx, &guesty.ReservationRequest{
		ListingID: b.PropertyID,
		CheckIn:   b.CheckIn.Format(validation.DateLayout),
		CheckOut:  b.CheckOut.Format(validation.DateLayout),
		Guest: guesty.ReservationGuest{
			FullName: b.GuestName,
			Email:    b.GuestEmail,
			Phone:    phone,
		},
		Occupancy:       guesty.ReservationOccupancy{NumberOfGuests: b.GuestsCount},
		SpecialRequests: special,
	})

	// The outcome is recorded even if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		logger.Error().Err(err).Msg("Forwarding booking to Guesty failed")
		annotated := FailureNote(special, err)
		if markErr := in.bookings.MarkBookingFailed(recordCtx, b.ID, annotated); markErr != nil {
			logger.Error().Err(markErr).Msg("Failed to record forwarding failure")
			return
		}
		result.Status = models.BookingGuestyFailed
		return
	}

	result.GuestyBooking = &GuestyBooking{ID: guestyID}
	if markErr := in.bookings.MarkBookingSent(recordCtx, b.ID, guestyID); markErr != nil {
		logger.Error().Err(markErr).Str("guesty_booking_id", guestyID).Msg("Failed to record Guesty booking id")
		return
	}
	result.Status = models.BookingSentToGuesty
	logger.Info().Str("guesty_booking_id", guestyID).Msg("Booking forwarded to Guesty")
}

// FailureNote appends a forwarding error to the guest's special requests.
func FailureNote(special string, err error) string {
	return strings.TrimSpace(special + "\n\nGuesty Error: " + err.Error())
}

func (in *Intake) lookupProperty(ctx context.Context, id string) *models.Property {
	if id == "" || in.properties == nil {
		return nil
	}
	property, err := in.properties.GetActiveProperty(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("property_id", id).Msg("Property lookup failed, booking continues without a total")
		}
		return nil
	}
	return property
}

func (in *Intake) validate(req Request) (*validated, error) {
	verr := &models.ValidationError{}
	v := &validated{
		propertyID: strings.TrimSpace(req.PropertyID),
		name:       strings.TrimSpace(req.GuestName),
		email:      strings.TrimSpace(req.GuestEmail),
		phone:      strings.TrimSpace(req.GuestPhone),
		special:    strings.TrimSpace(req.SpecialRequests),
	}

	in.validateDates(req, v, verr)

	guests, msg := guestCount(req.Guests, in.cfg.MinGuests, in.cfg.MaxGuests)
	if msg != "" {
		verr.Add("guests", msg)
	}
	v.guests = guests

	verr.Merge(validation.ValidateStruct(&guestFields{
		GuestName:       v.name,
		GuestEmail:      v.email,
		GuestPhone:      v.phone,
		SpecialRequests: v.special,
	}))

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Intake) validateDates(req Request, v *validated, verr *models.ValidationError) {
	if strings.TrimSpace(req.CheckIn) == "" || strings.TrimSpace(req.CheckOut) == "" {
		verr.Add("checkIn", "Check-in and check-out dates are required")
		return
	}

	var inErr, outErr error
	v.checkIn, inErr = validation.ParseDate(req.CheckIn)
	if inErr != nil {
		verr.Add("checkIn", "Invalid check-in date format")
	}
	v.checkOut, outErr = validation.ParseDate(req.CheckOut)
	if outErr != nil {
		verr.Add("checkOut", "Invalid check-out date format")
	}
	if inErr != nil || outErr != nil {
		return
	}

	if v.checkIn.Before(validation.Today(in.now())) {
		verr.Add("checkIn", "Check-in date cannot be in the past")
	}

	v.nights = validation.Nights(v.checkIn, v.checkOut)
	switch {
	case v.nights <= 0:
		verr.Add("checkOut", "Check-out date must be after check-in date")
	case v.nights > in.cfg.MaxNights:
		verr.Add("checkOut", fmt.Sprintf("Booking duration cannot exceed %d days", in.cfg.MaxNights))
	}
}

// guestCount checks a decoded guest count. It returns the count and an empty
// message, or a message describing the problem.
func guestCount(raw any, lo, hi int) (int, string) {
	var n float64
	switch g := raw.(type) {
	case float64:
		n = g
	case int:
		n = float64(g)
	default:
		return 0, "Guest count must be a number"
	}

	if n != math.Trunc(n) || n < float64(lo) || n > float64(hi) {
		return 0, fmt.Sprintf("Guest count must be between %d and %d", lo, hi)
	}
	return int(n), ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
