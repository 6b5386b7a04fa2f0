// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"context"
	"errors"
	"fmt"
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

// TokenSource yields a bearer token for the Open API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CredentialChecker is implemented by token sources that can tell, without a
// network call, whether credentials are configured at all.
type CredentialChecker interface {
	CheckCredentials() error
}

// CheckCredentials returns src's *models.ConfigurationError when it has no
// credentials. Sources that cannot tell report nil.
func CheckCredentials(src TokenSource) error {
	if c, ok := src.(CredentialChecker); ok {
		return c.CheckCredentials()
	}
	return nil
}

// Token is a decoded token response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// TokenProvider exchanges client credentials for an access token.
//
// Every call performs a fresh exchange; wrap it in a CachingTokenSource to
// reuse tokens. Failures are not retried.
type TokenProvider struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewTokenProvider creates a provider from the Guesty configuration.
// Missing credentials are reported on first use, not here.
func NewTokenProvider(cfg config.GuestyConfig, opts ...Option) *TokenProvider {
	o := applyOptions(cfg, opts)
	return &TokenProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.TokenURL,
		httpClient:   o.httpClient,
		limiter:      o.limiter,
	}
}

// CheckCredentials reports a missing client id or secret.
func (p *TokenProvider) CheckCredentials() error {
	if p.clientID == "" {
		return &models.ConfigurationError{Setting: "GUESTY_CLIENT_ID"}
	}
	if p.clientSecret == "" {
		return &models.ConfigurationError{Setting: "GUESTY_CLIENT_SECRET"}
	}
	return nil
}

// FetchToken performs one client-credentials exchange.
func (p *TokenProvider) FetchToken(ctx context.Context) (*Token, error) {
	if err := p.CheckCredentials(); err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &models.UpstreamAuthError{Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "open-api")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &models.UpstreamAuthError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.RecordGuestyRequest("token", "error", time.Since(start))
		return nil, &models.UpstreamAuthError{Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordGuestyRequest("token", strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		logging.Ctx(ctx).Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Guesty token exchange rejected")
		return nil, &models.UpstreamAuthError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("token request failed with status %d", resp.StatusCode),
		}
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, &models.UpstreamAuthError{Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tok.AccessToken == "" {
		return nil, &models.UpstreamAuthError{Err: errors.New("token response has no access_token")}
	}

	metrics.GuestyTokenRequests.WithLabelValues("upstream").Inc()
	return &tok, nil
}

// Token implements TokenSource with a fresh exchange per call.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	tok, err := p.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
