// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package api serves the Villasync HTTP API on a chi router.

# Envelope

Every response, success or failure, has the same shape:

	{
	  "success": true,
	  "data": {...},
	  "error": {"code": "VALIDATION_FAILED", "message": "...", "details": {...}, "request_id": "..."},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Domain errors are mapped onto status codes in one place, ResponseWriter.Fail:

	ValidationError           400 VALIDATION_FAILED (details.problems)
	NotFoundError             404 NOT_FOUND
	ConfigurationError        500 CONFIGURATION_ERROR
	UpstreamAuthError         502 UPSTREAM_AUTH_FAILED
	UpstreamUnavailableError  502 EXTERNAL_SERVICE_FAILED
	PersistenceError          500 DATABASE_ERROR

# Routes

Public (rate limited per IP, CORS restricted to the configured origins):

	POST /api/v1/availability
	POST /api/v1/bookings
	GET  /api/v1/properties
	GET  /api/v1/properties/{id}
	GET  /api/v1/properties/{id}/calendar
	POST /api/v1/webhooks/guesty

Admin (bearer token from POST /api/v1/admin/login):

	GET  /api/v1/admin/sync
	POST /api/v1/admin/sync
	GET  /api/v1/admin/diagnostics
	GET  /api/v1/admin/bookings/{id}

Health checks live under /api/v1/health and Prometheus metrics under /metrics.
*/
package api
