// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tomtom215/villasync/internal/config"
)

// Option customizes the clients in this package.
type Option func(*options)

type options struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// WithHTTPClient replaces the default HTTP client. Tests use it to point at
// an httptest server with a short timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLimiter shares one token bucket between several clients so the
// combined call rate stays under the upstream quota.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// NewLimiter builds the outbound limiter from configuration. A non-positive
// rate disables limiting.
func NewLimiter(cfg config.GuestyConfig) *rate.Limiter {
	if cfg.RateLimitPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), burst)
}

func applyOptions(cfg config.GuestyConfig, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if o.limiter == nil {
		o.limiter = NewLimiter(cfg)
	}
	return o
}
