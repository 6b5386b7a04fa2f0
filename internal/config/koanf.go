// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/villasync/config.yaml",
	"/etc/villasync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Guesty: GuestyConfig{
			BaseURL:            "https://open-api.guesty.com",
			TokenURL:           "https://open-api.guesty.com/oauth2/token",
			RequestTimeout:     15 * time.Second,
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
			MaxRetries:         3,
			RetryBaseDelay:     time.Second,
			TokenCache:         "memory",
		},
		Reservation: ReservationConfig{
			BaseURL:   "https://api.guesty.com/v1",
			Timeout:   30 * time.Second,
			Source:    "Villa Website",
			UserAgent: "Villasync/1.0",
		},
		Sync: SyncConfig{
			TTL:               10 * time.Minute,
			PageSize:          50,
			MaxPages:          20,
			Backoff:           15 * time.Minute,
			RateLimitBudget:   1000,
			BookingURLPattern: "https://www.guesty.com/book/{id}",
			Schedule:          "", // Inline sync only by default
			RunTimeout:        5 * time.Minute,
		},
		Availability: AvailabilityConfig{
			MaxNights:   30,
			MinAdults:   1,
			MaxAdults:   12,
			MaxChildren: 8,
		},
		Booking: BookingConfig{
			MaxNights: 30,
			MinGuests: 1,
			MaxGuests: 20,
		},
		Notify: NotifyConfig{
			Provider:    "none",
			FromName:    "Villa Booking System",
			Timeout:     10 * time.Second,
			SendGridURL: "https://api.sendgrid.com/v3/mail/send",
			SMTPPort:    587,
			SMTPUseTLS:  true,
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"http://localhost:8080"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			SessionTimeout:  12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// GUESTY_CLIENT_ID -> guesty.client_id
	// SYNC_MAX_PAGES -> sync.max_pages
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Names follow the deployment's existing secrets where one exists
// (GUESTY_CLIENT_ID, SENDGRID_API_KEY, NOTIFICATION_EMAIL, FROM_EMAIL).
var envMappings = map[string]string{
	// Guesty Open API
	"guesty_client_id":             "guesty.client_id",
	"guesty_client_secret":         "guesty.client_secret",
	"guesty_base_url":              "guesty.base_url",
	"guesty_token_url":             "guesty.token_url",
	"guesty_request_timeout":       "guesty.request_timeout",
	"guesty_rate_limit_per_second": "guesty.rate_limit_per_second",
	"guesty_rate_limit_burst":      "guesty.rate_limit_burst",
	"guesty_max_retries":           "guesty.max_retries",
	"guesty_retry_base_delay":      "guesty.retry_base_delay",
	"guesty_token_cache":           "guesty.token_cache",
	"guesty_webhook_secret":        "guesty.webhook_secret",

	// Reservation forwarding
	"guesty_api_key":            "reservation.api_key",
	"guesty_reservation_url":    "reservation.base_url",
	"guesty_listing_id":         "reservation.listing_id",
	"guesty_reservation_source": "reservation.source",
	"reservation_timeout":       "reservation.timeout",

	// Sync
	"sync_ttl":                 "sync.ttl",
	"sync_page_size":           "sync.page_size",
	"sync_max_pages":           "sync.max_pages",
	"sync_backoff":             "sync.backoff",
	"sync_rate_limit_budget":   "sync.rate_limit_budget",
	"sync_booking_url_pattern": "sync.booking_url_pattern",
	"sync_schedule":            "sync.schedule",
	"sync_run_timeout":         "sync.run_timeout",

	// Availability and booking bounds
	"availability_max_nights":   "availability.max_nights",
	"availability_min_adults":   "availability.min_adults",
	"availability_max_adults":   "availability.max_adults",
	"availability_max_children": "availability.max_children",
	"booking_max_nights":        "booking.max_nights",
	"booking_min_guests":        "booking.min_guests",
	"booking_max_guests":        "booking.max_guests",

	// Notifications
	"notify_provider":    "notify.provider",
	"notification_email": "notify.notification_email",
	"from_email":         "notify.from_email",
	"from_name":          "notify.from_name",
	"notify_timeout":     "notify.timeout",
	"sendgrid_api_key":   "notify.sendgrid_api_key",
	"sendgrid_url":       "notify.sendgrid_url",
	"smtp_host":          "notify.smtp_host",
	"smtp_port":          "notify.smtp_port",
	"smtp_username":      "notify.smtp_username",
	"smtp_password":      "notify.smtp_password",
	"smtp_use_tls":       "notify.smtp_use_tls",

	// Database
	"database_driver":            "database.driver",
	"database_url":               "database.dsn",
	"database_max_open_conns":    "database.max_open_conns",
	"database_max_idle_conns":    "database.max_idle_conns",
	"database_conn_max_lifetime": "database.conn_max_lifetime",
	"database_auto_migrate":      "database.auto_migrate",

	// Redis
	"redis_addr":     "redis.addr",
	"redis_user":     "redis.username",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password_hash": "security.admin_password_hash",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - GUESTY_CLIENT_ID -> guesty.client_id
//   - GUESTY_API_KEY -> reservation.api_key
//   - DATABASE_URL -> database.dsn
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables
	// cannot pollute the config.
	return ""
}
