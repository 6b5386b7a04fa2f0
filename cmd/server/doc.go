// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Command server runs the Villasync HTTP API.
//
// Villasync keeps a local cache of Guesty listings, answers availability
// queries for the villa website, captures booking requests (optionally
// forwarding them to Guesty) and ingests Guesty reservation webhooks.
//
// # Startup
//
//  1. .env is loaded if present, then configuration (defaults, YAML, env)
//  2. Store: in-memory, or PostgreSQL via gorm with auto-migration
//  3. Guesty token source with an in-memory or Redis token cache
//  4. Guesty data client behind a circuit breaker
//  5. Sync coordinator, availability resolver, booking intake, webhooks
//  6. Optional admin login (bcrypt password hash, JWT sessions)
//  7. Supervisor tree: HTTP server and, when SYNC_SCHEDULE is set, the
//     cron-driven cache warmer
//
// # Configuration
//
// All credentials come from the environment or the config file:
//
//	export GUESTY_CLIENT_ID=...
//	export GUESTY_CLIENT_SECRET=...
//	export CORS_ORIGINS=https://kolakevilla.com,https://www.kolakevilla.com
//	export DATABASE_DRIVER=postgres
//	export DATABASE_URL=postgres://villasync@db/villasync?sslmode=disable
//	./server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains
// in-flight requests for up to 10s and the store is closed afterwards.
package main
