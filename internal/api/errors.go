// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/tomtom215/villasync/internal/auth"
	"github.com/tomtom215/villasync/internal/booking"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/models"
)

// validationDetails is the details object of a VALIDATION_FAILED error.
type validationDetails struct {
	Problems []models.FieldError `json:"problems"`
}

// Fail maps err onto the error taxonomy and writes the matching envelope.
// Server-side failures are logged with their full text while the client only
// sees a generic message.
func (rw *ResponseWriter) Fail(err error) {
	var (
		validationErr  *models.ValidationError
		notFoundErr    *models.NotFoundError
		configErr      *models.ConfigurationError
		upstreamAuth   *models.UpstreamAuthError
		upstreamDown   *models.UpstreamUnavailableError
		persistenceErr *models.PersistenceError
		lockedErr      *auth.LockedError
	)
	log := logging.Ctx(rw.r.Context())

	switch {
	case errors.As(err, &validationErr):
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed,
			validationMessage(validationErr), validationDetails{Problems: validationErr.Problems})

	case errors.As(err, &notFoundErr):
		rw.NotFound(notFoundErr.Error())

	case errors.Is(err, models.ErrNotFound):
		rw.NotFound("Resource not found")

	case errors.As(err, &configErr):
		log.Error().Err(err).Msg("Missing configuration")
		rw.Error(http.StatusInternalServerError, ErrCodeConfiguration,
			"Service is not configured: "+configErr.Setting)

	case errors.As(err, &upstreamAuth):
		log.Error().Err(err).Int("upstream_status", upstreamAuth.StatusCode).Msg("Guesty authentication failed")
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamAuth, "Guesty authentication failed")

	case errors.As(err, &upstreamDown):
		log.Error().Err(err).Str("operation", upstreamDown.Operation).Msg("Guesty request failed")
		rw.Error(http.StatusBadGateway, ErrCodeExternalServiceFail, "External service unavailable: guesty")

	case errors.As(err, &persistenceErr):
		log.Error().Err(err).Str("operation", persistenceErr.Operation).Msg("Database error")
		rw.Error(http.StatusInternalServerError, ErrCodeDatabaseError, "A database error occurred")

	case errors.As(err, &lockedErr):
		rw.w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(lockedErr.Remaining.Seconds()))))
		rw.TooManyRequests(lockedErr.Error())

	case errors.Is(err, auth.ErrInvalidCredentials):
		rw.Unauthorized("Invalid username or password")

	case errors.Is(err, booking.ErrBadSignature):
		rw.Unauthorized("Invalid webhook signature")

	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("Request timed out")
		rw.Error(http.StatusGatewayTimeout, ErrCodeServiceUnavailable, "Request timed out")

	default:
		log.Error().Err(err).Msg("Unhandled request error")
		rw.InternalError("An internal error occurred")
	}
}

// validationMessage is the first problem, which is what single-field
// clients display.
func validationMessage(e *models.ValidationError) string {
	if len(e.Problems) == 0 {
		return "Validation failed"
	}
	return e.Problems[0].Message
}
