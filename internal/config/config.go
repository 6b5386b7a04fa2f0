// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every optional setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Configuration Categories:
//
//  1. Upstream:
//     - Guesty: Open API credentials, endpoints, timeouts and rate limiting
//     - Reservation: Legacy reservation API used to forward booking requests
//
//  2. Domain:
//     - Sync: Cache freshness, pagination ceiling and failure backoff
//     - Availability: Stay and occupancy bounds for availability checks
//     - Booking: Stay and guest bounds for booking requests
//     - Notify: Booking notification channel (SendGrid or SMTP)
//
//  3. Infrastructure:
//     - Database: Local persistence (memory or PostgreSQL)
//     - Redis: Shared token cache
//     - Server: HTTP server configuration
//
//  4. Security & Observability:
//     - Security: CORS, rate limiting, admin authentication
//     - Logging: Log levels and output formats
//
// Secrets (Guesty client secret, reservation API key, SendGrid key, JWT secret)
// are never compiled in. They arrive through the config file or environment.
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Guesty       GuestyConfig       `koanf:"guesty"`
	Reservation  ReservationConfig  `koanf:"reservation"`
	Sync         SyncConfig         `koanf:"sync"`
	Availability AvailabilityConfig `koanf:"availability"`
	Booking      BookingConfig      `koanf:"booking"`
	Notify       NotifyConfig       `koanf:"notify"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Server       ServerConfig       `koanf:"server"`
	Security     SecurityConfig     `koanf:"security"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// GuestyConfig holds Guesty Open API settings.
// ClientID and ClientSecret are checked per request, not at load time, so the
// service can start (and serve cached catalog data) before credentials exist.
type GuestyConfig struct {
	ClientID           string        `koanf:"client_id"`
	ClientSecret       string        `koanf:"client_secret"`
	BaseURL            string        `koanf:"base_url"`
	TokenURL           string        `koanf:"token_url"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	RateLimitPerSecond float64       `koanf:"rate_limit_per_second"`
	RateLimitBurst     int           `koanf:"rate_limit_burst"`
	MaxRetries         int           `koanf:"max_retries"`
	RetryBaseDelay     time.Duration `koanf:"retry_base_delay"`
	TokenCache         string        `koanf:"token_cache"` // none, memory, redis
	WebhookSecret      string        `koanf:"webhook_secret"`
}

// ReservationConfig holds settings for forwarding booking requests upstream.
type ReservationConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	ListingID string        `koanf:"listing_id"` // Default listing when a request names none
	Timeout   time.Duration `koanf:"timeout"`
	Source    string        `koanf:"source"`
	UserAgent string        `koanf:"user_agent"`
}

// Configured reports whether booking requests can be forwarded.
func (r ReservationConfig) Configured() bool {
	return r.APIKey != "" && r.BaseURL != ""
}

// SyncConfig holds property cache synchronization settings.
type SyncConfig struct {
	TTL               time.Duration `koanf:"ttl"`
	PageSize          int           `koanf:"page_size"`
	MaxPages          int           `koanf:"max_pages"`
	Backoff           time.Duration `koanf:"backoff"`
	RateLimitBudget   int           `koanf:"rate_limit_budget"`
	BookingURLPattern string        `koanf:"booking_url_pattern"`
	Schedule          string        `koanf:"schedule"` // cron spec for the background warmer; empty disables it
	RunTimeout        time.Duration `koanf:"run_timeout"`
}

// AvailabilityConfig bounds availability queries.
type AvailabilityConfig struct {
	MaxNights   int `koanf:"max_nights"`
	MinAdults   int `koanf:"min_adults"`
	MaxAdults   int `koanf:"max_adults"`
	MaxChildren int `koanf:"max_children"`
}

// BookingConfig bounds booking requests.
type BookingConfig struct {
	MaxNights int `koanf:"max_nights"`
	MinGuests int `koanf:"min_guests"`
	MaxGuests int `koanf:"max_guests"`
}

// NotifyConfig selects and configures the booking notification channel.
type NotifyConfig struct {
	Provider          string        `koanf:"provider"` // none, sendgrid, smtp
	NotificationEmail string        `koanf:"notification_email"`
	FromEmail         string        `koanf:"from_email"`
	FromName          string        `koanf:"from_name"`
	Timeout           time.Duration `koanf:"timeout"`
	SendGridAPIKey    string        `koanf:"sendgrid_api_key"`
	SendGridURL       string        `koanf:"sendgrid_url"`
	SMTPHost          string        `koanf:"smtp_host"`
	SMTPPort          int           `koanf:"smtp_port"`
	SMTPUsername      string        `koanf:"smtp_username"`
	SMTPPassword      string        `koanf:"smtp_password"`
	SMTPUseTLS        bool          `koanf:"smtp_use_tls"`
}

// DatabaseConfig holds local persistence settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // memory, postgres
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// RedisConfig holds the shared cache connection.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds CORS, rate limiting and admin authentication settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"` // bcrypt hash
}

// AdminEnabled reports whether admin routes can authenticate anyone.
func (s SecurityConfig) AdminEnabled() bool {
	return s.AdminUsername != "" && s.AdminPasswordHash != ""
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
