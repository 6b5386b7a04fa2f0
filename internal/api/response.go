// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/logging"
)

// APIResponse is the envelope for every API response.
type APIResponse struct {
	// Success indicates whether the request was successful
	Success bool `json:"success"`

	// Data contains the response payload (omitted on error)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (omitted on success)
	Error *APIError `json:"error,omitempty"`

	// Meta contains metadata about the response
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains additional error details (optional)
	Details interface{} `json:"details,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`

	// Message is an optional human-readable note on a successful response
	Message string `json:"message,omitempty"`

	// Count is the number of items in list responses
	Count *int `json:"count,omitempty"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
	ErrCodeUpstreamAuth        = "UPSTREAM_AUTH_FAILED"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
)

// ResponseWriter provides methods for writing standardized API responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.SuccessWithMeta(data, nil)
}

// SuccessWithMeta writes a 200 response with data and metadata.
func (rw *ResponseWriter) SuccessWithMeta(data interface{}, meta *APIMeta) {
	rw.writeSuccess(http.StatusOK, data, meta)
}

// Created writes a 201 Created response.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.writeSuccess(http.StatusCreated, data, nil)
}

func (rw *ResponseWriter) writeSuccess(statusCode int, data interface{}, meta *APIMeta) {
	rw.writeJSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Meta:    rw.meta(meta),
	})
}

func (rw *ResponseWriter) meta(meta *APIMeta) *APIMeta {
	if meta == nil {
		meta = &APIMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(rw.r.Context())
	return meta
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	meta := rw.meta(nil)
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// BadRequest writes a 400 Bad Request error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized writes a 401 Unauthorized error.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// NotFound writes a 404 Not Found error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// TooManyRequests writes a 429 Too Many Requests error.
func (rw *ResponseWriter) TooManyRequests(message string) {
	rw.Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

// InternalError writes a 500 Internal Server Error.
func (rw *ResponseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error.
func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.Header().Set("Cache-Control", "no-store")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}
