// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package diagnostics checks connectivity to the Guesty Open API.
//
// A run performs two probes: a token exchange, then a GET of one API
// endpoint with the fresh token. Every outcome is reported, including
// upstream error bodies, so operators can see exactly what Guesty answered.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/models"
)

// DefaultEndpoint is probed when none is given.
const DefaultEndpoint = "v1/listings?limit=1"

// TokenFetcher performs an uncached token exchange.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (*guesty.Token, error)
}

// ProbeAPI performs a raw GET against the Open API.
type ProbeAPI interface {
	Probe(ctx context.Context, token, endpoint string) (*guesty.ProbeResult, error)
}

// Check is the outcome of one probe.
type Check struct {
	OK         bool            `json:"ok"`
	StatusCode int             `json:"status,omitempty"`
	LatencyMS  int64           `json:"latencyMs"`
	Endpoint   string          `json:"endpoint,omitempty"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Report is the outcome of a diagnostics run. API is nil when the auth
// probe failed and the API probe was not attempted.
type Report struct {
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checkedAt"`
	Auth      Check     `json:"auth"`
	API       *Check    `json:"api"`
}

// Prober runs diagnostics.
type Prober struct {
	tokens TokenFetcher
	api    ProbeAPI
	now    func() time.Time
}

// NewProber creates a Prober.
func NewProber(tokens TokenFetcher, api ProbeAPI) *Prober {
	return &Prober{tokens: tokens, api: api, now: time.Now}
}

// Run probes authentication and then endpoint. It returns an error only for
// an unusable endpoint; upstream failures are part of the report.
func (p *Prober) Run(ctx context.Context, endpoint string) (*Report, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	endpoint, err := guesty.SanitizeEndpoint(endpoint)
	if err != nil {
		verr := &models.ValidationError{}
		verr.Add("endpoint", "endpoint must be a relative API path such as v1/listings?limit=1")
		return nil, verr
	}

	report := &Report{CheckedAt: p.now().UTC()}

	start := time.Now()
	token, err := p.tokens.FetchToken(ctx)
	report.Auth.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		report.Auth.Message = "Authentication failed: " + err.Error()
		var authErr *models.UpstreamAuthError
		if errors.As(err, &authErr) {
			report.Auth.StatusCode = authErr.StatusCode
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Diagnostics auth probe failed")
		return report, nil
	}
	report.Auth.OK = true
	report.Auth.Message = fmt.Sprintf("Authentication successful, token expires in %ds", token.ExpiresIn)

	api := &Check{Endpoint: "/" + endpoint}
	report.API = api

	res, err := p.api.Probe(ctx, token.AccessToken, endpoint)
	if err != nil {
		api.Message = "Network error during API call: " + err.Error()
		logging.Ctx(ctx).Warn().Err(err).Str("endpoint", endpoint).Msg("Diagnostics API probe failed")
		return report, nil
	}

	api.StatusCode = res.StatusCode
	api.LatencyMS = res.Latency.Milliseconds()
	api.Data = res.Body
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		api.OK = true
		api.Message = fmt.Sprintf("API endpoint /%s accessible", endpoint)
	} else {
		api.Message = fmt.Sprintf("API call failed: %d", res.StatusCode)
		if res.Text != "" {
			api.Message += ": " + res.Text
		}
	}

	report.OK = report.Auth.OK && api.OK
	return report, nil
}
