// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/fingerprint"
	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/store"
)

const (
	defaultPageSize = 50
	defaultMaxPages = 20
)

// SkipReason explains why a run did no work. The zero value means the run
// went ahead.
type SkipReason string

const (
	SkipNone   SkipReason = ""
	SkipLocked SkipReason = "locked" // another run holds the lock or a backoff is in force
	SkipFresh  SkipReason = "fresh"  // the cache is younger than the TTL
)

// Result summarises one call to Run.
type Result struct {
	RunID     string        `json:"runId"`
	Skipped   SkipReason    `json:"skipped,omitempty"`
	Fetched   int           `json:"fetched"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"durationNs"`
}

// Store is the persistence the coordinator needs.
type Store interface {
	store.PropertyStore
	store.SyncStateStore
}

// Coordinator runs property syncs. It is safe for concurrent use; concurrent
// callers are serialised by the store lock, not by the coordinator.
type Coordinator struct {
	store  Store
	tokens guesty.TokenSource
	api    guesty.API
	cfg    config.SyncConfig
	now    func() time.Time
}

// NewCoordinator creates a coordinator. Zero page settings fall back to 50
// listings per page and 20 pages.
func NewCoordinator(st Store, tokens guesty.TokenSource, api guesty.API, cfg config.SyncConfig) *Coordinator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Coordinator{
		store:  st,
		tokens: tokens,
		api:    api,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run performs one sync run. A skipped run returns a Result with Skipped set
// and a nil error. Any error after the lock is taken has already been
// recorded in the sync state with a backoff.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	start := c.now()
	result := &Result{RunID: logging.GenerateSyncRunID()}
	ctx = logging.ContextWithSyncRunID(ctx, result.RunID)
	logger := logging.Ctx(ctx)

	// Missing credentials are not an upstream failure and must not start a backoff.
	if err := guesty.CheckCredentials(c.tokens); err != nil {
		c.record(metrics.SyncOutcomeFailed, start, result, err)
		return result, err
	}

	state, acquired, err := c.store.TryAcquireSync(ctx, start)
	if err != nil {
		c.record(metrics.SyncOutcomeFailed, start, result, err)
		return result, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		result.Skipped = SkipLocked
		logger.Debug().Msg("Sync already running or in backoff, skipping")
		c.record(metrics.SyncOutcomeSkippedLocked, start, result, nil)
		return result, nil
	}

	if state.Fresh(start, c.cfg.TTL) {
		result.Skipped = SkipFresh
		if err := c.store.ReleaseSync(context.WithoutCancel(ctx)); err != nil {
			logger.Error().Err(err).Msg("Failed to release sync lock")
			c.record(metrics.SyncOutcomeFailed, start, result, err)
			return result, fmt.Errorf("release sync lock: %w", err)
		}
		logger.Debug().Msg("Property cache within TTL, skipping sync")
		c.record(metrics.SyncOutcomeSkippedFresh, start, result, nil)
		return result, nil
	}

	logger.Info().Msg("Starting Guesty property sync")

	if err := c.sync(ctx, result); err != nil {
		c.fail(ctx, start, result, err)
		return result, err
	}

	finished := c.now()
	if err := c.store.CompleteSync(ctx, finished, c.cfg.RateLimitBudget); err != nil {
		err = fmt.Errorf("commit sync state: %w", err)
		c.fail(ctx, start, result, err)
		return result, err
	}

	c.record(metrics.SyncOutcomeCompleted, start, result, nil)
	logger.Info().
		Int("fetched", result.Fetched).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Property sync completed")
	return result, nil
}

// sync fetches every page and applies it. Only token and fetch failures are
// returned; per-record failures are counted in result.
func (c *Coordinator) sync(ctx context.Context, result *Result) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get guesty token: %w", err)
	}

	listings, err := c.fetchAll(ctx, token)
	fresh, renewed, tokenErr := guesty.RenewRejectedToken(ctx, c.tokens, err)
	if tokenErr != nil {
		return fmt.Errorf("renew guesty token: %w", tokenErr)
	}
	if renewed {
		listings, err = c.fetchAll(ctx, fresh)
	}
	if err != nil {
		return err
	}
	result.Fetched = len(listings)
	logging.Ctx(ctx).Debug().Int("count", len(listings)).Msg("Fetched listings from Guesty")

	now := c.now()
	for i := range listings {
		switch c.apply(ctx, &listings[i], now) {
		case outcomeUpdated:
			result.Updated++
		case outcomeUnchanged:
			result.Unchanged++
		case outcomeFailed:
			result.Failed++
		}
	}
	return nil
}

func (c *Coordinator) fetchAll(ctx context.Context, token string) ([]guesty.Listing, error) {
	var all []guesty.Listing
	for page := 0; page < c.cfg.MaxPages; page++ {
		batch, err := c.api.ListListings(ctx, token, c.cfg.PageSize, page*c.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch listings page %d: %w", page+1, err)
		}
		if len(batch) == 0 {
			return all, nil
		}
		all = append(all, batch...)
	}

	logging.Ctx(ctx).Warn().Int("max_pages", c.cfg.MaxPages).Msg("Listing page ceiling reached, remaining listings not fetched")
	return all, nil
}

// upsertOutcome is the per-record result of apply. Failures are an outcome,
// not an error, so one bad record cannot abort a run.
type upsertOutcome int

const (
	outcomeUpdated upsertOutcome = iota
	outcomeUnchanged
	outcomeFailed
)

func (c *Coordinator) apply(ctx context.Context, l *guesty.Listing, now time.Time) upsertOutcome {
	logger := logging.Ctx(ctx).With().Str("listing_id", l.ID).Logger()

	if l.DecodeErr != nil {
		logger.Warn().Err(l.DecodeErr).Msg("Malformed listing, skipping")
		return outcomeFailed
	}
	if l.ID == "" {
		logger.Warn().Msg("Listing without id, skipping")
		return outcomeFailed
	}

	hash, err := fingerprint.Compute(l)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fingerprint listing")
		return outcomeFailed
	}

	stored, found, err := c.store.GetPropertyHash(ctx, l.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read stored fingerprint")
		return outcomeFailed
	}
	if found && stored == hash {
		return outcomeUnchanged
	}

	if err := c.store.UpsertProperty(ctx, toProperty(l, hash, c.cfg.BookingURLPattern, now)); err != nil {
		logger.Warn().Err(err).Msg("Failed to upsert property")
		return outcomeFailed
	}
	return outcomeUpdated
}

// fail records the failure and backoff. It runs detached from ctx so a
// cancelled request still releases the lock.
func (c *Coordinator) fail(ctx context.Context, start time.Time, result *Result, runErr error) {
	logger := logging.Ctx(ctx)
	logger.Error().Err(runErr).Dur("backoff", c.cfg.Backoff).Msg("Property sync failed")

	backoffUntil := c.now().Add(c.cfg.Backoff)
	if err := c.store.FailSync(context.WithoutCancel(ctx), backoffUntil, runErr.Error()); err != nil {
		logger.Error().Err(err).Msg("Failed to record sync failure")
	}
	c.record(metrics.SyncOutcomeFailed, start, result, runErr)
}

func (c *Coordinator) record(outcome string, start time.Time, result *Result, err error) {
	result.Duration = c.now().Sub(start)
	metrics.RecordSyncOperation(outcome, result.Duration, result.Updated, result.Unchanged, result.Failed, err)
}

// State returns the persisted sync state.
func (c *Coordinator) State(ctx context.Context) (*SyncStatus, error) {
	state, err := c.store.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()
	return &SyncStatus{
		LastFullSyncAt: state.LastFullSyncAt,
		Running:        state.Running,
		BackoffUntil:   state.BackoffUntil,
		InBackoff:      state.InBackoff(now),
		Fresh:          state.Fresh(now, c.cfg.TTL),
		LastError:      state.LastError,
	}, nil
}

// SyncStatus is the admin view of the sync state row.
type SyncStatus struct {
	LastFullSyncAt *time.Time `json:"lastFullSyncAt"`
	Running        bool       `json:"running"`
	BackoffUntil   *time.Time `json:"backoffUntil"`
	InBackoff      bool       `json:"inBackoff"`
	Fresh          bool       `json:"fresh"`
	LastError      *string    `json:"lastError"`
}
