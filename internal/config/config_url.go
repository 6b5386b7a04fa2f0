// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package config

import (
	"fmt"
	"net/url"
)

// validateHTTPURL validates that a URL is a bare HTTP/HTTPS base URL.
// Validates: scheme (http/https), host present, no paths or query params.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := parseHTTPURL(rawURL, fieldName)
	if err != nil {
		return err
	}

	// Allow trailing slash but no other paths
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	return nil
}

// validateEndpointURL validates an HTTP/HTTPS URL that may carry a path,
// such as the OAuth token endpoint or a versioned API root.
func validateEndpointURL(rawURL, fieldName string) error {
	_, err := parseHTTPURL(rawURL, fieldName)
	return err
}

func parseHTTPURL(rawURL, fieldName string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return nil, fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return parsedURL, nil
}
