// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/villasync/internal/cache"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
)

// tokenExpiryMargin is subtracted from expires_in so a cached token is never
// handed out in the last minute of its life.
const tokenExpiryMargin = 60 * time.Second

// TokenFetcher performs a token exchange.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (*Token, error)
}

// TokenInvalidator is implemented by token sources that keep tokens between
// calls.
type TokenInvalidator interface {
	Invalidate(ctx context.Context)
}

// RenewRejectedToken handles a data call that failed with err. When the
// upstream rejected the token (*models.UpstreamAuthError) and src caches
// tokens, the cached token is dropped and a freshly exchanged one is returned
// with renewed set; the caller retries once with it. Any other error, or a
// source that does not cache, yields renewed=false. A failed exchange is
// returned as the error.
func RenewRejectedToken(ctx context.Context, src TokenSource, err error) (token string, renewed bool, tokenErr error) {
	var authErr *models.UpstreamAuthError
	if !errors.As(err, &authErr) {
		return "", false, nil
	}
	inv, ok := src.(TokenInvalidator)
	if !ok {
		return "", false, nil
	}

	logging.Ctx(ctx).Info().Int("status", authErr.StatusCode).Msg("Guesty rejected the cached token, exchanging credentials again")
	inv.Invalidate(ctx)

	token, tokenErr = src.Token(ctx)
	if tokenErr != nil {
		return "", false, tokenErr
	}
	return token, true, nil
}

// CachingTokenSource serves tokens from a cache.Store and only calls the
// fetcher on a miss. Concurrent misses share one exchange.
//
// Cache backend errors are logged and treated as misses; they never fail a
// request that could otherwise be served by a fresh exchange.
type CachingTokenSource struct {
	fetcher TokenFetcher
	store   cache.Store
	key     string
	group   singleflight.Group
}

// NewCachingTokenSource creates a caching source. key should be unique per
// set of credentials; see TokenCacheKey.
func NewCachingTokenSource(fetcher TokenFetcher, store cache.Store, key string) *CachingTokenSource {
	return &CachingTokenSource{fetcher: fetcher, store: store, key: key}
}

// TokenCacheKey derives a cache key from the client id without storing the
// id itself.
func TokenCacheKey(clientID string) string {
	sum := sha256.Sum256([]byte(clientID))
	return "guesty:token:" + hex.EncodeToString(sum[:8])
}

// Token returns a cached token or exchanges credentials for a new one.
func (s *CachingTokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(ctx); ok {
		return tok, nil
	}

	v, err, _ := s.group.Do(s.key, func() (interface{}, error) {
		// Another caller may have filled the cache while this one waited.
		if tok, ok := s.cached(ctx); ok {
			return tok, nil
		}

		tok, err := s.fetcher.FetchToken(ctx)
		if err != nil {
			return "", err
		}

		if ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin; ttl > 0 {
			if err := s.store.Set(ctx, s.key, tok.AccessToken, ttl); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Failed to cache Guesty token")
			}
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, for example after the upstream rejected it.
func (s *CachingTokenSource) Invalidate(ctx context.Context) {
	if err := s.store.Delete(ctx, s.key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to drop cached Guesty token")
	}
}

// CheckCredentials delegates to the fetcher when it can check credentials.
func (s *CachingTokenSource) CheckCredentials() error {
	if c, ok := s.fetcher.(CredentialChecker); ok {
		return c.CheckCredentials()
	}
	return nil
}

func (s *CachingTokenSource) cached(ctx context.Context) (string, bool) {
	tok, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Token cache unavailable")
		return "", false
	}
	if ok {
		metrics.GuestyTokenRequests.WithLabelValues("cache").Inc()
	}
	return tok, ok
}

var (
	_ TokenInvalidator  = (*CachingTokenSource)(nil)
	_ CredentialChecker = (*CachingTokenSource)(nil)
	_ CredentialChecker = (*TokenProvider)(nil)
)
