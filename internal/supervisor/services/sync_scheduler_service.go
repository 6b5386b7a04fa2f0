// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/sync"
)

// SyncRunner runs one property sync. *sync.Coordinator satisfies it.
type SyncRunner interface {
	Run(ctx context.Context) (*sync.Result, error)
}

// SyncSchedulerService warms the property cache on a cron schedule so
// availability requests rarely pay for a sync. Ticks that arrive while a run
// is still going are skipped; the coordinator lock would skip them anyway.
type SyncSchedulerService struct {
	runner      SyncRunner
	spec        string
	schedule    cron.Schedule
	runTimeout  time.Duration
	warmOnStart bool
	name        string
}

// NewSyncSchedulerService parses spec (standard 5-field cron or a descriptor
// such as "@every 15m"). Each run is bounded by runTimeout. When warmOnStart
// is set the first run happens as soon as the service starts.
func NewSyncSchedulerService(runner SyncRunner, spec string, runTimeout time.Duration, warmOnStart bool) (*SyncSchedulerService, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &SyncSchedulerService{
		runner:      runner,
		spec:        spec,
		schedule:    schedule,
		runTimeout:  runTimeout,
		warmOnStart: warmOnStart,
		name:        "sync-scheduler",
	}, nil
}

// Serve implements suture.Service.
func (s *SyncSchedulerService) Serve(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.RunOnce(ctx) }))

	if s.warmOnStart {
		s.RunOnce(ctx)
	}

	c.Start()
	logging.Info().Str("schedule", s.spec).Msg("Sync scheduler started")

	<-ctx.Done()

	// Stop returns a context that is done once running jobs have returned;
	// they observe ctx and end promptly.
	<-c.Stop().Done()
	logging.Info().Msg("Sync scheduler stopped")
	return ctx.Err()
}

// RunOnce runs a single bounded sync and logs its outcome. Failures are
// logged, not returned: the coordinator has already recorded the backoff.
func (s *SyncSchedulerService) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result, err := s.runner.Run(runCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Scheduled sync failed")
		return
	}
	if result.Skipped != sync.SkipNone {
		logging.Debug().Str("reason", string(result.Skipped)).Msg("Scheduled sync skipped")
		return
	}
	logging.Info().
		Str("sync_run_id", result.RunID).
		Int("fetched", result.Fetched).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Scheduled sync completed")
}

// String names the service in supervisor logs.
func (s *SyncSchedulerService) String() string {
	return s.name
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
