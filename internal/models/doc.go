// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package models defines the persisted entities and the error taxonomy shared by
every Villasync component.

Persisted Entities:

  - Property: Locally cached snapshot of a Guesty listing, keyed by the upstream id
  - SyncState: Singleton row coordinating cache refreshes across instances
  - BookingRequest: Guest booking request captured by the website
  - Reservation: Upstream reservation mirrored from Guesty webhooks

Error Taxonomy:

  - ConfigurationError: Required credentials or settings are missing
  - ValidationError: Itemized input problems, reported before any I/O
  - UpstreamAuthError: Token exchange with Guesty failed
  - UpstreamUnavailableError: A Guesty data call failed or the circuit is open
  - NotFoundError: A requested local record does not exist (matches ErrNotFound)
  - PersistenceError: A local store operation failed

Opaque upstream documents (amenities, pictures, fees, the raw listing) are kept
as gorm.io/datatypes.JSON so PostgreSQL stores them as jsonb.
*/
package models
