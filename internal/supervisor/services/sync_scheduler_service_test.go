// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/villasync/internal/sync"
)

type fakeRunner struct {
	runs        atomic.Int32
	hadDeadline atomic.Bool
	ran         chan struct{}
	err         error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan struct{}, 8)}
}

func (f *fakeRunner) Run(ctx context.Context) (*sync.Result, error) {
	f.runs.Add(1)
	_, ok := ctx.Deadline()
	f.hadDeadline.Store(ok)
	f.ran <- struct{}{}
	if f.err != nil {
		return nil, f.err
	}
	return &sync.Result{RunID: "run-1", Fetched: 2, Updated: 1, Unchanged: 1}, nil
}

func TestNewSyncSchedulerService(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"*/15 * * * *", false},
		{"@every 10m", false},
		{"@hourly", false},
		{"not a schedule", true},
		{"* * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := NewSyncSchedulerService(newFakeRunner(), tt.spec, time.Minute, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSyncSchedulerService(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestSyncSchedulerService_RunOnce(t *testing.T) {
	runner := newFakeRunner()
	svc, err := NewSyncSchedulerService(runner, "@hourly", 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if svc.runTimeout != 2*time.Minute {
		t.Errorf("default runTimeout = %v", svc.runTimeout)
	}

	svc.RunOnce(context.Background())
	if runner.runs.Load() != 1 || !runner.hadDeadline.Load() {
		t.Errorf("runs = %d, deadline = %v", runner.runs.Load(), runner.hadDeadline.Load())
	}

	runner.err = errors.New("guesty down")
	svc.RunOnce(context.Background()) // logged, not panicking
	if runner.runs.Load() != 2 {
		t.Errorf("runs = %d, want 2", runner.runs.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.RunOnce(ctx)
	if runner.runs.Load() != 2 {
		t.Error("RunOnce ran with a canceled context")
	}
}

func TestSyncSchedulerService_ServeWarmsAndStops(t *testing.T) {
	runner := newFakeRunner()
	svc, err := NewSyncSchedulerService(runner, "@every 1h", time.Second, true)
	if err != nil {
		t.Fatal(err)
	}
	if svc.String() != "sync-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("warm-up run did not happen")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if runner.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runner.runs.Load())
	}
}
