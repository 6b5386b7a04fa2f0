// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package notify delivers booking request notifications to the villa owner.

Channels:

  - SendGrid: v3 mail/send API over HTTPS
  - SMTP: any mail relay, with optional STARTTLS and PLAIN auth
  - none: notifications disabled

A Notifier reports delivery errors to its caller. BestEffort wraps a Notifier
for callers that must not fail because of a notification: its Notify method
has no error result, and outcomes are only logged and counted.
*/
package notify

import (
	"context"
	"fmt"

	"github.com/tomtom215/villasync/internal/config"
)

// Notice is the content of a booking notification.
type Notice struct {
	BookingID       string
	PropertyTitle   string
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	CheckIn         string
	CheckOut        string
	Nights          int
	Guests          int
	TotalAmount     *float64
	Currency        string
	SpecialRequests string
	GuestyBookingID string
	Status          string
}

// Notifier sends a notice through one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notice) error
}

// Subject is the subject line of every booking notification.
const Subject = "New Booking Request"

// New returns the notifier selected by cfg.Provider.
func New(cfg config.NotifyConfig) (Notifier, error) {
	switch cfg.Provider {
	case "", "none":
		return Noop{}, nil
	case "sendgrid":
		return NewSendGrid(cfg), nil
	case "smtp":
		return NewSMTP(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Provider)
	}
}

// Noop discards every notice.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Send(context.Context, *Notice) error { return nil }
