// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package supervisor builds the suture process tree for Villasync.

	villasync (root)
	├── sync-layer
	│   └── sync-scheduler   (cron-driven cache warmer, optional)
	└── api-layer
	    └── http-server

Supervisor events (restarts, backoff, panics) are logged through
sutureslog into the zerolog-backed slog handler from internal/logging.

The service wrappers themselves live in the services subpackage.
*/
package supervisor
