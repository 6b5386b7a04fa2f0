// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
)

// ReservationGuest identifies the guest on a forwarded booking.
type ReservationGuest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// ReservationOccupancy is the party size on a forwarded booking.
type ReservationOccupancy struct {
	NumberOfGuests int `json:"numberOfGuests"`
}

// ReservationRequest is the body of POST {base}/bookings.
type ReservationRequest struct {
	ListingID       string               `json:"listingId"`
	CheckIn         string               `json:"checkIn"`
	CheckOut        string               `json:"checkOut"`
	Guest           ReservationGuest     `json:"guest"`
	Occupancy       ReservationOccupancy `json:"occupancy"`
	SpecialRequests string               `json:"specialRequests,omitempty"`
	Source          string               `json:"source"`
}

// ReservationResponse is the part of the upstream reply that is kept.
type ReservationResponse struct {
	ID string `json:"_id"`
}

// ReservationClient forwards booking requests to the reservations API.
type ReservationClient struct {
	baseURL    string
	apiKey     string
	listingID  string
	source     string
	userAgent  string
	httpClient *http.Client
}

// NewReservationClient creates a client from configuration. Use Configured
// to check whether forwarding is possible before calling Create.
func NewReservationClient(cfg config.ReservationConfig, opts ...Option) *ReservationClient {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ReservationClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		listingID:  cfg.ListingID,
		source:     cfg.Source,
		userAgent:  cfg.UserAgent,
		httpClient: o.httpClient,
	}
}

// Configured reports whether an API key, base URL and default listing exist.
func (c *ReservationClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != "" && c.listingID != ""
}

// DefaultListingID is the listing used when a booking names none.
func (c *ReservationClient) DefaultListingID() string {
	return c.listingID
}

// Source is the value sent in the source field.
func (c *ReservationClient) Source() string {
	return c.source
}

// Create posts a reservation and returns the upstream booking id.
func (c *ReservationClient) Create(ctx context.Context, r *ReservationRequest) (string, error) {
	if !c.Configured() {
		return "", &models.ConfigurationError{Setting: "GUESTY_API_KEY"}
	}
	if r.ListingID == "" {
		r.ListingID = c.listingID
	}
	if r.Source == "" {
		r.Source = c.source
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode reservation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordGuestyRequest("create reservation", "error", time.Since(start))
		return "", &models.UpstreamUnavailableError{Operation: "create reservation", Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordGuestyRequest("create reservation", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &models.UpstreamUnavailableError{
			Operation:  "create reservation",
			StatusCode: resp.StatusCode,
			Err:        errors.New(upstreamMessage(resp)),
		}
	}

	var out ReservationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &models.UpstreamUnavailableError{
			Operation:  "create reservation",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if out.ID == "" {
		return "", &models.UpstreamUnavailableError{
			Operation:  "create reservation",
			StatusCode: resp.StatusCode,
			Err:        errors.New("response has no _id"),
		}
	}
	return out.ID, nil
}

// upstreamMessage extracts {"message": ...} from an error body, falling back
// to the status text.
func upstreamMessage(resp *http.Response) string {
	body := readBodyForError(resp.Body)
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return http.StatusText(resp.StatusCode)
}
