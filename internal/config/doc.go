// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package config provides centralized configuration management for Villasync.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. A .env file in the working directory is
loaded into the environment by the binaries before Load is called.

# Environment Variables

Guesty Open API:
  - GUESTY_CLIENT_ID, GUESTY_CLIENT_SECRET: OAuth client credentials (required per request)
  - GUESTY_BASE_URL: API root (default: https://open-api.guesty.com)
  - GUESTY_TOKEN_URL: Token endpoint (default: https://open-api.guesty.com/oauth2/token)
  - GUESTY_REQUEST_TIMEOUT: Token and calendar call timeout (default: 15s)
  - GUESTY_TOKEN_CACHE: none, memory or redis (default: memory)
  - GUESTY_WEBHOOK_SECRET: HMAC secret for reservation webhooks (optional)

Reservation forwarding:
  - GUESTY_API_KEY: Bearer key for the reservation API
  - GUESTY_RESERVATION_URL: Reservation API root (default: https://api.guesty.com/v1)
  - GUESTY_LISTING_ID: Listing used when a booking request names none

Sync:
  - SYNC_TTL: Cache freshness window (default: 10m)
  - SYNC_MAX_PAGES: Pagination ceiling (default: 20)
  - SYNC_BACKOFF: Backoff after a failed sync (default: 15m)
  - SYNC_SCHEDULE: Cron spec for background warming (default: disabled)

Notifications:
  - NOTIFY_PROVIDER: none, sendgrid or smtp (default: none)
  - NOTIFICATION_EMAIL, FROM_EMAIL: Recipient and sender
  - SENDGRID_API_KEY, SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD

Infrastructure:
  - DATABASE_DRIVER: memory or postgres (default: memory)
  - DATABASE_URL: PostgreSQL DSN (required for postgres)
  - REDIS_ADDR, REDIS_USER, REDIS_PASSWORD: Shared token cache
  - HTTP_HOST, HTTP_PORT: Listen address (default: 0.0.0.0:8080)

Security:
  - CORS_ORIGINS: Comma-separated allowed origins
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - ADMIN_USERNAME, ADMIN_PASSWORD_HASH (bcrypt), JWT_SECRET

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal("Failed to load config:", err)
	}
*/
package config
