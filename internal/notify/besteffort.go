// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package notify

import (
	"context"
	"time"

	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// BestEffort sends notices without ever failing its caller.
type BestEffort struct {
	notifier Notifier
	timeout  time.Duration
}

// NewBestEffort wraps n. A nil notifier disables notifications.
func NewBestEffort(n Notifier, timeout time.Duration) *BestEffort {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BestEffort{notifier: n, timeout: timeout}
}

// Notify sends n with its own timeout, detached from the caller's
// cancellation. The outcome is logged and counted only.
func (b *BestEffort) Notify(ctx context.Context, n *Notice) {
	if b == nil || b.notifier == nil {
		return
	}
	if _, disabled := b.notifier.(Noop); disabled {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	channel := b.notifier.Name()
	logger := logging.Ctx(ctx).With().
		Str("channel", channel).
		Str("booking_id", n.BookingID).
		Logger()

	if err := b.notifier.Send(sendCtx, n); err != nil {
		metrics.Notifications.WithLabelValues(channel, "failed").Inc()
		logger.Warn().Err(err).Msg("Booking notification failed")
		return
	}

	metrics.Notifications.WithLabelValues(channel, "sent").Inc()
	logger.Info().Msg("Booking notification sent")
}
