// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package logging

import "strings"

// MaskSecret masks a credential, showing only the first and last 4 characters.
// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9" -> "eyJh...VCJ9"
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// MaskEmail masks a guest email address.
// Example: "john.doe@example.com" -> "jo***@example.com"
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}

	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}
