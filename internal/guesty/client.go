// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
client.go - Guesty Open API client

Client Features:
  - Bearer token authentication (tokens come from a TokenSource)
  - Shared token-bucket limiter on every outbound call
  - Automatic HTTP 429 handling with exponential backoff and Retry-After
  - Bounded error body reads (64KB)
  - Context support for cancellation and timeouts

Endpoints:
  - GET /v1/listings?limit&skip
  - GET /v1/availability-pricing/api/calendar/listings/{id}?startDate&endDate
  - GET /{endpoint} (diagnostic probe, reported as-is)
*/

//nolint:staticcheck // File documentation, not package doc
package guesty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB)
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// DateLayout is the date format the calendar endpoint expects.
const DateLayout = "2006-01-02"

// API is the subset of the Open API the sync and availability paths use.
// Client and BreakerClient implement it.
type API interface {
	ListListings(ctx context.Context, token string, limit, skip int) ([]Listing, error)
	GetCalendar(ctx context.Context, token, listingID string, start, end time.Time) ([]CalendarDay, error)
}

// Client handles communication with the Guesty Open API.
//
// Thread Safety: Safe for concurrent use. Each request creates its own HTTP request.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int           // Maximum retries for rate limiting
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// NewClient creates an Open API client.
//
//	limiter := guesty.NewLimiter(cfg.Guesty)
//	client := guesty.NewClient(cfg.Guesty, guesty.WithLimiter(limiter))
func NewClient(cfg config.GuestyConfig, opts ...Option) *Client {
	o := applyOptions(cfg, opts)
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     o.httpClient,
		limiter:        o.limiter,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// doRequestWithRateLimit performs a GET with automatic rate limit handling.
// HTTP 429 is retried with exponential backoff (base, 2×base, 4×base, ...)
// unless the server sends Retry-After in seconds. Every attempt waits on
// the shared limiter first.
func (c *Client) doRequestWithRateLimit(ctx context.Context, operation, token, reqURL string) (*http.Response, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &models.UpstreamUnavailableError{Operation: operation, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, &models.UpstreamUnavailableError{Operation: operation, Err: fmt.Errorf("failed to create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordGuestyRequest(operation, "error", time.Since(start))
			return nil, &models.UpstreamUnavailableError{Operation: operation, Err: err}
		}
		metrics.RecordGuestyRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited (HTTP 429) - close body and retry with backoff
		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		metrics.GuestyRateLimitRetries.WithLabelValues(operation).Inc()
		logging.Ctx(ctx).Debug().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Guesty rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &models.UpstreamUnavailableError{Operation: operation, Err: ctx.Err()}
		}
	}

	return nil, &models.UpstreamUnavailableError{
		Operation:  operation,
		StatusCode: http.StatusTooManyRequests,
		Err:        fmt.Errorf("rate limit exceeded after %d retries", c.maxRetries),
	}
}

// getJSON performs a GET and decodes a 2xx body into result.
func (c *Client) getJSON(ctx context.Context, operation, token, reqURL string, result interface{}) error {
	resp, err := c.doRequestWithRateLimit(ctx, operation, token, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		statusErr := fmt.Errorf("%s request failed with status %d: %s", operation, resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusUnauthorized {
			return &models.UpstreamAuthError{StatusCode: resp.StatusCode, Err: statusErr}
		}
		return &models.UpstreamUnavailableError{Operation: operation, StatusCode: resp.StatusCode, Err: statusErr}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &models.UpstreamUnavailableError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode %s response: %w", operation, err),
		}
	}
	return nil
}

// ListListings fetches one page of listings. A record that fails to decode
// is returned with DecodeErr set instead of failing the page, so callers can
// skip it and still paginate on the page length.
func (c *Client) ListListings(ctx context.Context, token string, limit, skip int) ([]Listing, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(skip))

	reqURL := fmt.Sprintf("%s/v1/listings?%s", c.baseURL, params.Encode())

	var page listingsPage
	if err := c.getJSON(ctx, "list listings", token, reqURL, &page); err != nil {
		return nil, err
	}

	listings := make([]Listing, 0, len(page.Results))
	for _, raw := range page.Results {
		listings = append(listings, decodeListing(raw))
	}
	return listings, nil
}

// GetCalendar fetches per-day availability and pricing for [start, end].
func (c *Client) GetCalendar(ctx context.Context, token, listingID string, start, end time.Time) ([]CalendarDay, error) {
	params := url.Values{}
	params.Set("startDate", start.Format(DateLayout))
	params.Set("endDate", end.Format(DateLayout))

	reqURL := fmt.Sprintf("%s/v1/availability-pricing/api/calendar/listings/%s?%s",
		c.baseURL, url.PathEscape(listingID), params.Encode())

	var env calendarEnvelope
	if err := c.getJSON(ctx, "calendar", token, reqURL, &env); err != nil {
		return nil, err
	}

	days, err := env.days()
	if err != nil {
		return nil, &models.UpstreamUnavailableError{Operation: "calendar", Err: err}
	}
	return days, nil
}

// ProbeResult is the raw outcome of a diagnostic GET.
type ProbeResult struct {
	StatusCode int
	Body       json.RawMessage // decoded JSON when the body parses, else nil
	Text       string          // body text when it is not JSON (truncated at 64KB)
	Latency    time.Duration
}

// ErrInvalidEndpoint is returned by Probe for endpoints that are not plain
// relative paths.
var ErrInvalidEndpoint = errors.New("endpoint must be a relative API path")

// Probe performs a single GET against {base}/{endpoint} and reports the
// response as-is. Only transport failures are errors; any status is a result.
func (c *Client) Probe(ctx context.Context, token, endpoint string) (*ProbeResult, error) {
	endpoint, err := SanitizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.RecordGuestyRequest("probe", "error", latency)
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordGuestyRequest("probe", strconv.Itoa(resp.StatusCode), latency)

	body := readBodyForError(resp.Body)
	result := &ProbeResult{StatusCode: resp.StatusCode, Latency: latency}
	if json.Valid(body) {
		result.Body = json.RawMessage(body)
	} else {
		result.Text = string(body)
	}
	return result, nil
}

// SanitizeEndpoint accepts paths like "v1/listings?limit=1" and rejects
// absolute URLs, scheme-relative paths and parent traversal.
func SanitizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimLeft(endpoint, "/")
	if endpoint == "" {
		return "", ErrInvalidEndpoint
	}
	if strings.Contains(endpoint, "://") || strings.Contains(endpoint, "..") || strings.Contains(endpoint, "\\") {
		return "", ErrInvalidEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", ErrInvalidEndpoint
	}
	return endpoint, nil
}
