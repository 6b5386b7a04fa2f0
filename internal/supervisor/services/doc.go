// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package services adapts long-running components to suture.Service:
// HTTPServerService for the API and SyncSchedulerService for the cron-driven
// cache warmer.
package services
