// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package sync refreshes the local property cache from the Guesty listings API.

Coordinator.Run performs one sync run:

 1. Acquire the cluster-wide lock with a single compare-and-swap on the sync
    state row. A caller that loses the race gets Result{Skipped: SkipLocked}
    and a nil error; nothing is fetched and no state changes.
 2. Skip the run (SkipFresh) when the last full sync is younger than the TTL.
 3. Fetch a token and page through the listings until an empty page or the
    configured page ceiling.
 4. Fingerprint every listing and upsert only those whose fingerprint differs
    from the stored one. A failed record is logged and counted, never fatal.
 5. Commit the run, or record the failure with a backoff that blocks further
    attempts until it expires.

Runs are triggered inline by availability queries, by the admin API and,
optionally, by the cron scheduler in the supervisor tree. All three go
through the same lock, so runs never overlap.

Field mapping from a Guesty listing to a local property lives in mapping.go
as an explicit table of fallback chains.
*/
package sync
