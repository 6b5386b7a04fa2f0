// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a missing credential or setting. It is fatal
// for the request that needed it, not for the process.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// FieldError is one itemized input problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every input problem found in a request.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a problem.
func (e *ValidationError) Add(field, message string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: message})
}

// Merge appends every problem from other.
func (e *ValidationError) Merge(other *ValidationError) {
	if other != nil {
		e.Problems = append(e.Problems, other.Problems...)
	}
}

// OrNil returns e when it holds at least one problem, otherwise nil.
// It exists so callers never return a typed-nil error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// UpstreamAuthError reports a failed Guesty token exchange. StatusCode is 0
// when the request never produced a response.
type UpstreamAuthError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamAuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("guesty token request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("guesty token request failed: %v", e.Err)
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// UpstreamUnavailableError reports a failed Guesty data call.
type UpstreamUnavailableError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *UpstreamUnavailableError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("guesty %s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("guesty %s failed with status %d", e.Operation, e.StatusCode)
	default:
		return fmt.Sprintf("guesty %s failed: %v", e.Operation, e.Err)
	}
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// NotFoundError reports a missing local record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError reports a failed local store operation.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
