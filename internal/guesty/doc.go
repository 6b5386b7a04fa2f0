// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package guesty is the HTTP client layer for the Guesty Open API and the
legacy reservations API.

Components:
  - TokenProvider: OAuth2 client-credentials exchange against the token URL
  - CachingTokenSource: reuses tokens through a cache.Store until shortly before expiry
  - Client: listings and calendar endpoints, with a shared token-bucket limiter
    and exponential backoff on HTTP 429
  - BreakerClient: wraps Client in a sony/gobreaker circuit breaker
  - ReservationClient: forwards booking requests to the reservations API

Errors are returned as the typed errors from internal/models so the HTTP
layer can map them without string matching:

	*models.ConfigurationError       credentials are missing
	*models.UpstreamAuthError        the token exchange failed
	*models.UpstreamUnavailableError any other upstream failure, including an open breaker

All methods take a context and are safe for concurrent use.
*/
package guesty
