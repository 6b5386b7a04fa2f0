// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package booking captures guest booking requests and mirrors upstream
reservations.

Intake handles requests submitted by the website:

 1. Validate every field and report all problems at once
 2. Price the stay from the cached property, when one is known
 3. Store the request as pending
 4. Optionally forward it to the Guesty reservations API, recording
    sent_to_guesty or guesty_failed on the stored row
 5. Send a best-effort notification to the property owner

A forwarding failure never loses the request: the error text is appended to
the special requests of the stored row so staff can follow up by hand.

WebhookProcessor handles reservation events pushed by Guesty. When a webhook
secret is configured, the X-Guesty-Signature header must carry the hex
HMAC-SHA256 of the raw body. Valid events are upserted by Guesty booking id.
*/
package booking
