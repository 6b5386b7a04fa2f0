// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that configuration values are present and consistent.
// Guesty credentials are deliberately not required here; their absence
// surfaces as a configuration error on the first request that needs them.
func (c *Config) Validate() error {
	if err := c.validateGuesty(); err != nil {
		return err
	}

	if err := c.validateReservation(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateBounds(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateGuesty() error {
	if err := validateHTTPURL(c.Guesty.BaseURL, "GUESTY_BASE_URL"); err != nil {
		return fmt.Errorf("GUESTY_BASE_URL is invalid: %w", err)
	}
	if err := validateEndpointURL(c.Guesty.TokenURL, "GUESTY_TOKEN_URL"); err != nil {
		return fmt.Errorf("GUESTY_TOKEN_URL is invalid: %w", err)
	}
	if c.Guesty.RequestTimeout <= 0 {
		return fmt.Errorf("GUESTY_REQUEST_TIMEOUT must be positive, got %v", c.Guesty.RequestTimeout)
	}
	if c.Guesty.RateLimitPerSecond <= 0 {
		return fmt.Errorf("GUESTY_RATE_LIMIT_PER_SECOND must be positive, got %v", c.Guesty.RateLimitPerSecond)
	}
	if c.Guesty.RateLimitBurst < 1 {
		return fmt.Errorf("GUESTY_RATE_LIMIT_BURST must be at least 1, got %d", c.Guesty.RateLimitBurst)
	}
	if c.Guesty.MaxRetries < 0 {
		return fmt.Errorf("GUESTY_MAX_RETRIES must be non-negative, got %d", c.Guesty.MaxRetries)
	}

	switch c.Guesty.TokenCache {
	case "none", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when GUESTY_TOKEN_CACHE=redis")
		}
	default:
		return fmt.Errorf("GUESTY_TOKEN_CACHE must be one of none, memory, redis; got %q", c.Guesty.TokenCache)
	}
	return nil
}

func (c *Config) validateReservation() error {
	if c.Reservation.BaseURL != "" {
		if err := validateEndpointURL(c.Reservation.BaseURL, "GUESTY_RESERVATION_URL"); err != nil {
			return fmt.Errorf("GUESTY_RESERVATION_URL is invalid: %w", err)
		}
	}
	if c.Reservation.Timeout <= 0 {
		return fmt.Errorf("RESERVATION_TIMEOUT must be positive, got %v", c.Reservation.Timeout)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.TTL <= 0 {
		return fmt.Errorf("SYNC_TTL must be positive, got %v", c.Sync.TTL)
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 100 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 100, got %d", c.Sync.PageSize)
	}
	if c.Sync.MaxPages < 1 {
		return fmt.Errorf("SYNC_MAX_PAGES must be at least 1, got %d", c.Sync.MaxPages)
	}
	if c.Sync.Backoff <= 0 {
		return fmt.Errorf("SYNC_BACKOFF must be positive, got %v", c.Sync.Backoff)
	}
	if c.Sync.RateLimitBudget < 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT_BUDGET must be non-negative, got %d", c.Sync.RateLimitBudget)
	}
	if !strings.Contains(c.Sync.BookingURLPattern, "{id}") {
		return fmt.Errorf("SYNC_BOOKING_URL_PATTERN must contain the {id} placeholder")
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("SYNC_SCHEDULE is not a valid cron spec: %w", err)
		}
	}
	if c.Sync.RunTimeout <= 0 {
		return fmt.Errorf("SYNC_RUN_TIMEOUT must be positive, got %v", c.Sync.RunTimeout)
	}
	return nil
}

// validateBounds checks availability and booking request bounds.
func (c *Config) validateBounds() error {
	a := c.Availability
	if a.MaxNights < 1 {
		return fmt.Errorf("AVAILABILITY_MAX_NIGHTS must be at least 1, got %d", a.MaxNights)
	}
	if a.MinAdults < 1 || a.MaxAdults < a.MinAdults {
		return fmt.Errorf("availability adult bounds are invalid: min %d, max %d", a.MinAdults, a.MaxAdults)
	}
	if a.MaxChildren < 0 {
		return fmt.Errorf("AVAILABILITY_MAX_CHILDREN must be non-negative, got %d", a.MaxChildren)
	}

	b := c.Booking
	if b.MaxNights < 1 {
		return fmt.Errorf("BOOKING_MAX_NIGHTS must be at least 1, got %d", b.MaxNights)
	}
	if b.MinGuests < 1 || b.MaxGuests < b.MinGuests {
		return fmt.Errorf("booking guest bounds are invalid: min %d, max %d", b.MinGuests, b.MaxGuests)
	}
	return nil
}

func (c *Config) validateNotify() error {
	n := c.Notify
	switch n.Provider {
	case "none", "":
		return nil
	case "sendgrid":
		if n.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when NOTIFY_PROVIDER=sendgrid")
		}
		if err := validateEndpointURL(n.SendGridURL, "SENDGRID_URL"); err != nil {
			return fmt.Errorf("SENDGRID_URL is invalid: %w", err)
		}
	case "smtp":
		if n.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when NOTIFY_PROVIDER=smtp")
		}
		if n.SMTPPort < 1 || n.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", n.SMTPPort)
		}
	default:
		return fmt.Errorf("NOTIFY_PROVIDER must be one of none, sendgrid, smtp; got %q", n.Provider)
	}

	if n.NotificationEmail == "" || n.FromEmail == "" {
		return fmt.Errorf("NOTIFICATION_EMAIL and FROM_EMAIL are required when NOTIFY_PROVIDER=%s", n.Provider)
	}
	if n.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %v", n.Timeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "memory":
		return nil
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
		if c.Database.MaxOpenConns < 1 {
			return fmt.Errorf("DATABASE_MAX_OPEN_CONNS must be at least 1, got %d", c.Database.MaxOpenConns)
		}
		return nil
	default:
		return fmt.Errorf("DATABASE_DRIVER must be memory or postgres, got %q", c.Database.Driver)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", s.RateLimitWindow)
		}
	}

	for _, origin := range s.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return fmt.Errorf("CORS_ORIGINS entry %q is invalid: %w", origin, err)
		}
	}

	if s.AdminUsername != "" || s.AdminPasswordHash != "" {
		if !s.AdminEnabled() {
			return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
		}
		if !strings.HasPrefix(s.AdminPasswordHash, "$2") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
		}
		if len(s.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when admin access is enabled")
		}
		if s.SessionTimeout <= 0 {
			return fmt.Errorf("SESSION_TIMEOUT must be positive, got %v", s.SessionTimeout)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
