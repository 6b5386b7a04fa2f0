// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package availability answers stay availability and pricing queries from the
// live Guesty calendar, backed by the local property cache.
package availability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
	"github.com/tomtom215/villasync/internal/sync"
	"github.com/tomtom215/villasync/internal/validation"
)

// Syncer refreshes the property cache. *sync.Coordinator implements it.
type Syncer interface {
	Run(ctx context.Context) (*sync.Result, error)
}

// PropertyLookup reads cached properties.
type PropertyLookup interface {
	GetActiveProperty(ctx context.Context, id string) (*models.Property, error)
}

// CalendarAPI reads the per-day Guesty calendar.
type CalendarAPI interface {
	GetCalendar(ctx context.Context, token, listingID string, start, end time.Time) ([]guesty.CalendarDay, error)
}

// Request is an availability query. Dates are YYYY-MM-DD.
type Request struct {
	PropertyID string
	CheckIn    string
	CheckOut   string
	Adults     int
	Children   int
}

// Answer is the resolved availability of a stay. TotalPrice is nil whenever
// the stay is unavailable. Degraded is set when the calendar could not be
// read and the stay was reported unavailable as a result.
type Answer struct {
	Available  bool     `json:"available"`
	TotalPrice *float64 `json:"totalPrice"`
	Currency   string   `json:"currency"`
	ListingID  string   `json:"listingId"`
	BookingURL string   `json:"bookingUrl"`
	Nights     int      `json:"nights"`
	Degraded   bool     `json:"degraded,omitempty"`
}

// Resolver resolves availability queries.
type Resolver struct {
	syncer     Syncer
	properties PropertyLookup
	tokens     guesty.TokenSource
	calendar   CalendarAPI
	cfg        config.AvailabilityConfig
	now        func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(syncer Syncer, properties PropertyLookup, tokens guesty.TokenSource, calendar CalendarAPI, cfg config.AvailabilityConfig) *Resolver {
	return &Resolver{
		syncer:     syncer,
		properties: properties,
		tokens:     tokens,
		calendar:   calendar,
		cfg:        cfg,
		now:        time.Now,
	}
}

// stay is a validated Request.
type stay struct {
	propertyID string
	checkIn    time.Time
	checkOut   time.Time
	nights     int
	adults     int
	children   int
}

// Resolve answers req. Validation problems are returned as a
// *models.ValidationError before any I/O happens.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Answer, error) {
	s, err := r.validate(req)
	if err != nil {
		return nil, err
	}
	logger := logging.Ctx(ctx).With().Str("property_id", s.propertyID).Logger()

	if err := guesty.CheckCredentials(r.tokens); err != nil {
		return nil, err
	}

	// A failed refresh leaves the existing cache serving, unless the service
	// is not configured to reach Guesty at all.
	if _, err := r.syncer.Run(ctx); err != nil {
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("Property sync failed, continuing with cached data")
	}

	property, err := r.properties.GetActiveProperty(ctx, s.propertyID)
	if err != nil {
		return nil, err
	}

	token, err := r.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get guesty token: %w", err)
	}

	answer := &Answer{
		ListingID:  s.propertyID,
		BookingURL: bookingURL(property, s),
		Nights:     s.nights,
	}

	days, err := r.calendar.GetCalendar(ctx, token, s.propertyID, s.checkIn, s.checkOut)
	fresh, renewed, tokenErr := guesty.RenewRejectedToken(ctx, r.tokens, err)
	if tokenErr != nil {
		return nil, fmt.Errorf("renew guesty token: %w", tokenErr)
	}
	if renewed {
		days, err = r.calendar.GetCalendar(ctx, fresh, s.propertyID, s.checkIn, s.checkOut)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("Calendar unavailable, reporting stay as unavailable")
		answer.Currency = currencyOf(nil, property)
		answer.Degraded = true
		metrics.AvailabilityChecks.WithLabelValues("degraded").Inc()
		return answer, nil
	}

	answer.Available, answer.TotalPrice, answer.Currency = reduce(days, property, s)

	outcome := "unavailable"
	if answer.Available {
		outcome = "available"
	}
	metrics.AvailabilityChecks.WithLabelValues(outcome).Inc()
	logger.Debug().
		Bool("available", answer.Available).
		Int("nights", s.nights).
		Int("calendar_days", len(days)).
		Msg("Availability resolved")
	return answer, nil
}

func (r *Resolver) validate(req Request) (*stay, error) {
	verr := &models.ValidationError{}
	s := &stay{propertyID: req.PropertyID, adults: req.Adults, children: req.Children}

	if req.PropertyID == "" {
		verr.Add("property_id", "property_id (or room_type_id) is required")
	}

	var checkInErr, checkOutErr error
	s.checkIn, checkInErr = validation.ParseDate(req.CheckIn)
	if checkInErr != nil {
		verr.Add("check_in", "check_in must be a valid date (YYYY-MM-DD)")
	}
	s.checkOut, checkOutErr = validation.ParseDate(req.CheckOut)
	if checkOutErr != nil {
		verr.Add("check_out", "check_out must be a valid date (YYYY-MM-DD)")
	}

	if checkInErr == nil && s.checkIn.Before(validation.Today(r.now())) {
		verr.Add("check_in", "Check-in date cannot be in the past")
	}
	if checkInErr == nil && checkOutErr == nil {
		s.nights = validation.Nights(s.checkIn, s.checkOut)
		switch {
		case s.nights <= 0:
			verr.Add("check_out", "Check-out must be after check-in")
		case s.nights > r.cfg.MaxNights:
			verr.Add("check_out", fmt.Sprintf("Maximum stay length is %d days", r.cfg.MaxNights))
		}
	}

	if req.Adults < r.cfg.MinAdults || req.Adults > r.cfg.MaxAdults {
		verr.Add("adults", fmt.Sprintf("adults must be between %d and %d", r.cfg.MinAdults, r.cfg.MaxAdults))
	}
	if req.Children < 0 || req.Children > r.cfg.MaxChildren {
		verr.Add("children", fmt.Sprintf("children must be between 0 and %d", r.cfg.MaxChildren))
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// reduce applies the availability rule to the calendar days of the stay: the
// stay is available only if every night is available, and the total is the
// average nightly price times the number of nights.
func reduce(days []guesty.CalendarDay, property *models.Property, s *stay) (bool, *float64, string) {
	inStay := make([]guesty.CalendarDay, 0, len(days))
	for _, d := range days {
		date, err := validation.ParseDate(d.Date)
		if err != nil {
			continue
		}
		if !date.Before(s.checkIn) && date.Before(s.checkOut) {
			inStay = append(inStay, d)
		}
	}

	currency := currencyOf(inStay, property)
	if len(inStay) == 0 {
		return false, nil, currency
	}

	var sum float64
	for _, d := range inStay {
		if d.Status != guesty.DayAvailable {
			return false, nil, currency
		}
		sum += d.Price
	}

	total := round2(sum * float64(s.nights) / float64(len(inStay)))
	return true, &total, currency
}

func currencyOf(days []guesty.CalendarDay, property *models.Property) string {
	if len(days) > 0 && days[0].Currency != "" {
		return days[0].Currency
	}
	if property != nil && property.Currency != "" {
		return property.Currency
	}
	return "USD"
}

func bookingURL(property *models.Property, s *stay) string {
	base := property.BookingURLTemplate
	if base == "" {
		base = sync.BookingURLTemplate("", s.propertyID)
	}
	return base +
		"?checkIn=" + url.QueryEscape(s.checkIn.Format(validation.DateLayout)) +
		"&checkOut=" + url.QueryEscape(s.checkOut.Format(validation.DateLayout)) +
		"&adults=" + strconv.Itoa(s.adults) +
		"&children=" + strconv.Itoa(s.children)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
