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
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/villasync/internal/cache"
	"github.com/tomtom215/villasync/internal/models"
)

type fakeFetcher struct {
	calls     atomic.Int32
	expiresIn int
	err       error
	delay     time.Duration
}

func (f *fakeFetcher) FetchToken(context.Context) (*Token, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Token{AccessToken: "tok-" + string(rune('0'+n)), ExpiresIn: f.expiresIn}, nil
}

// recordingStore captures the ttl of every Set.
type recordingStore struct {
	*cache.Memory
	mu   sync.Mutex
	ttls []time.Duration
}

func (s *recordingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.ttls = append(s.ttls, ttl)
	s.mu.Unlock()
	return s.Memory.Set(ctx, key, value, ttl)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestCachingTokenSource_ReusesToken(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	store := &recordingStore{Memory: mem}

	fetcher := &fakeFetcher{expiresIn: 3600}
	src := NewCachingTokenSource(fetcher, store, TokenCacheKey("client-id"))

	for i := 0; i < 3; i++ {
		tok, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok != "tok-1" {
			t.Errorf("Token() = %q, want tok-1", tok)
		}
	}

	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("fetcher calls = %d, want 1", got)
	}
	if len(store.ttls) != 1 || store.ttls[0] != 3540*time.Second {
		t.Errorf("cached ttls = %v, want [59m0s]", store.ttls)
	}
}

func TestCachingTokenSource_ShortLivedTokenNotCached(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	fetcher := &fakeFetcher{expiresIn: 60}
	src := NewCachingTokenSource(fetcher, mem, "k")

	_, _ = src.Token(context.Background())
	_, _ = src.Token(context.Background())

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("fetcher calls = %d, want 2 for a token that expires within the margin", got)
	}
}

func TestCachingTokenSource_FetchErrorPropagates(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	want := errors.New("upstream down")
	src := NewCachingTokenSource(&fakeFetcher{err: want}, mem, "k")

	if _, err := src.Token(context.Background()); !errors.Is(err, want) {
		t.Errorf("Token() error = %v, want %v", err, want)
	}
}

func TestCachingTokenSource_BrokenStoreFallsBack(t *testing.T) {
	fetcher := &fakeFetcher{expiresIn: 3600}
	src := NewCachingTokenSource(fetcher, brokenStore{}, "k")

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok == "" {
		t.Error("Token() returned empty token")
	}
}

func TestCachingTokenSource_ConcurrentMissesShareFetch(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	fetcher := &fakeFetcher{expiresIn: 3600, delay: 50 * time.Millisecond}
	src := NewCachingTokenSource(fetcher, mem, "k")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := src.Token(context.Background()); err != nil {
				t.Errorf("Token() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("fetcher calls = %d, want 1", got)
	}
}

func TestCachingTokenSource_Invalidate(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	fetcher := &fakeFetcher{expiresIn: 3600}
	src := NewCachingTokenSource(fetcher, mem, "k")

	_, _ = src.Token(context.Background())
	src.Invalidate(context.Background())
	tok, _ := src.Token(context.Background())

	if tok != "tok-2" {
		t.Errorf("Token() after Invalidate = %q, want tok-2", tok)
	}
}

func TestTokenCacheKey(t *testing.T) {
	a, b := TokenCacheKey("one"), TokenCacheKey("two")
	if a == b {
		t.Error("different client ids should give different keys")
	}
	if a != TokenCacheKey("one") {
		t.Error("key should be deterministic")
	}
}

func TestRenewRejectedToken_RecoversRevokedToken(t *testing.T) {
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		tok := "good"
		if exchanges.Add(1) == 1 {
			tok = "revoked"
		}
		_, _ = w.Write([]byte(`{"access_token":"` + tok + `","expires_in":86400}`))
	})
	mux.HandleFunc("/v1/availability-pricing/api/calendar/listings/L1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"date":"2025-03-01","status":"available","price":100}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mem := cache.NewMemory()
	defer mem.Close()

	cfg := testConfig(server.URL)
	src := NewCachingTokenSource(NewTokenProvider(cfg), mem, TokenCacheKey(cfg.ClientID))
	client := NewClient(cfg)
	ctx := context.Background()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tok, err := src.Token(ctx)
		if err != nil {
			t.Fatalf("round %d: Token() error = %v", i, err)
		}
		days, err := client.GetCalendar(ctx, tok, "L1", day, day)
		fresh, renewed, tokenErr := RenewRejectedToken(ctx, src, err)
		if tokenErr != nil {
			t.Fatalf("round %d: RenewRejectedToken() error = %v", i, tokenErr)
		}
		if renewed {
			days, err = client.GetCalendar(ctx, fresh, "L1", day, day)
		}
		if err != nil || len(days) != 1 {
			t.Fatalf("round %d: GetCalendar() = (%v, %v)", i, days, err)
		}
		if wantRenewed := i == 0; renewed != wantRenewed {
			t.Errorf("round %d: renewed = %v, want %v", i, renewed, wantRenewed)
		}
	}

	if got := exchanges.Load(); got != 2 {
		t.Errorf("token exchanges = %d, want 2", got)
	}
}

// plainSource hands out a token without caching it.
type plainSource struct{ calls int }

func (p *plainSource) Token(context.Context) (string, error) {
	p.calls++
	return "tok", nil
}

func TestRenewRejectedToken_OnlyForRejectedCachedTokens(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	rejected := fmt.Errorf("fetch listings page 1: %w", &models.UpstreamAuthError{StatusCode: http.StatusUnauthorized})

	tests := []struct {
		name        string
		err         error
		plain       bool
		wantRenewed bool
	}{
		{"no error", nil, false, false},
		{"server error", &models.UpstreamUnavailableError{Operation: "calendar", StatusCode: http.StatusBadGateway}, false, false},
		{"rejected token without cache", rejected, true, false},
		{"rejected cached token", rejected, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src TokenSource
			plain := &plainSource{}
			fetcher := &fakeFetcher{expiresIn: 3600}
			if tt.plain {
				src = plain
			} else {
				src = NewCachingTokenSource(fetcher, mem, "k-"+tt.name)
			}

			_, renewed, err := RenewRejectedToken(context.Background(), src, tt.err)
			if err != nil {
				t.Fatalf("RenewRejectedToken() error = %v", err)
			}
			if renewed != tt.wantRenewed {
				t.Errorf("renewed = %v, want %v", renewed, tt.wantRenewed)
			}
			if calls := int(fetcher.calls.Load()) + plain.calls; (calls > 0) != tt.wantRenewed {
				t.Errorf("token requests = %d, want a request only when renewed", calls)
			}
		})
	}
}

func TestRenewRejectedToken_ExchangeFailure(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	fetcher := &fakeFetcher{expiresIn: 3600, err: &models.UpstreamAuthError{StatusCode: http.StatusForbidden}}
	src := NewCachingTokenSource(fetcher, mem, "k")

	_, renewed, err := RenewRejectedToken(context.Background(), src, &models.UpstreamAuthError{StatusCode: http.StatusUnauthorized})
	if renewed {
		t.Error("renewed should be false when the exchange fails")
	}
	var authErr *models.UpstreamAuthError
	if !errors.As(err, &authErr) || authErr.StatusCode != http.StatusForbidden {
		t.Fatalf("error = %v, want the exchange's UpstreamAuthError", err)
	}
}

func TestCheckCredentials(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()

	missing := testConfig("http://127.0.0.1")
	missing.ClientSecret = ""

	tests := []struct {
		name        string
		src         TokenSource
		wantSetting string
	}{
		{"configured provider", NewTokenProvider(testConfig("http://127.0.0.1")), ""},
		{"missing secret", NewTokenProvider(missing), "GUESTY_CLIENT_SECRET"},
		{"cached missing secret", NewCachingTokenSource(NewTokenProvider(missing), mem, "k"), "GUESTY_CLIENT_SECRET"},
		{"source without check", &plainSource{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCredentials(tt.src)
			if tt.wantSetting == "" {
				if err != nil {
					t.Fatalf("CheckCredentials() error = %v", err)
				}
				return
			}
			var cfgErr *models.ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Setting != tt.wantSetting {
				t.Fatalf("CheckCredentials() = %v, want ConfigurationError{%s}", err, tt.wantSetting)
			}
		})
	}
}
