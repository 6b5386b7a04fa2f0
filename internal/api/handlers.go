// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"context"
	"time"

	"github.com/tomtom215/villasync/internal/auth"
	"github.com/tomtom215/villasync/internal/availability"
	"github.com/tomtom215/villasync/internal/booking"
	"github.com/tomtom215/villasync/internal/diagnostics"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/models"
	"github.com/tomtom215/villasync/internal/sync"
)

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Catalog reads cached properties.
type Catalog interface {
	GetActiveProperty(ctx context.Context, id string) (*models.Property, error)
	ListActiveProperties(ctx context.Context) ([]*models.Property, error)
}

// BookingReader reads stored booking requests.
type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*models.BookingRequest, error)
}

// AvailabilityResolver answers availability queries.
type AvailabilityResolver interface {
	Resolve(ctx context.Context, req availability.Request) (*availability.Answer, error)
}

// BookingIntake accepts booking requests.
type BookingIntake interface {
	Submit(ctx context.Context, req booking.Request) (*booking.Result, error)
}

// WebhookHandler processes Guesty reservation webhooks.
type WebhookHandler interface {
	Process(ctx context.Context, body []byte, signature string) (*booking.WebhookResult, error)
}

// Syncer runs and reports property syncs.
type Syncer interface {
	Run(ctx context.Context) (*sync.Result, error)
	State(ctx context.Context) (*sync.SyncStatus, error)
}

// CalendarAPI reads the live Guesty calendar.
type CalendarAPI interface {
	GetCalendar(ctx context.Context, token, listingID string, start, end time.Time) ([]guesty.CalendarDay, error)
}

// Prober runs admin diagnostics.
type Prober interface {
	Run(ctx context.Context, endpoint string) (*diagnostics.Report, error)
}

// Deps are the collaborators of Handler. Admin may be nil, which leaves the
// admin routes answering 404.
type Deps struct {
	Store        Pinger
	Catalog      Catalog
	Bookings     BookingReader
	Availability AvailabilityResolver
	Intake       BookingIntake
	Webhooks     WebhookHandler
	Syncer       Syncer
	Tokens       guesty.TokenSource
	Calendar     CalendarAPI
	Prober       Prober
	Admin        *auth.Admin

	// SyncTimeout bounds admin-triggered sync runs.
	SyncTimeout time.Duration
}

// Handler holds the HTTP handlers.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.SyncTimeout <= 0 {
		deps.SyncTimeout = 2 * time.Minute
	}
	return &Handler{
		deps:      deps,
		startTime: time.Now(),
	}
}
