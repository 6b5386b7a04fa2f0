// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"time"

	"github.com/tomtom215/villasync/internal/config"
)

func testConfig(serverURL string) config.GuestyConfig {
	return config.GuestyConfig{
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		BaseURL:        serverURL,
		TokenURL:       serverURL + "/oauth2/token",
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	}
}
