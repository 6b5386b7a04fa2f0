// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

//go:build integration

// Package testinfra starts the throwaway PostgreSQL and Redis containers used
// by integration tests. Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/store/... ./internal/cache/...
//
// Tests call SkipIfNoDocker first so the suite degrades to a skip on hosts
// without a Docker daemon.
package testinfra

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable checks if Docker daemon is running and accessible.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "info")
	return cmd.Run() == nil
}
