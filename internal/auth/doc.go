// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

/*
Package auth protects the admin routes.

There is a single admin account configured through ADMIN_USERNAME and
ADMIN_PASSWORD_HASH (a bcrypt hash, never a plain password). A successful
login returns an HS256 JWT signed with JWT_SECRET; admin requests present it
as "Authorization: Bearer <token>".

Failed logins are counted per username and per client address. Five failures
lock the subject for 15 minutes, doubling on each repeat lockout up to a day.

Usage:

	admin, err := auth.NewAdmin(cfg.Security)
	if errors.Is(err, auth.ErrAdminDisabled) {
	    // leave admin routes unmounted
	}

	session, err := admin.Login(ctx, username, password, clientIP)
	claims, err := admin.Authenticate(r)
*/
package auth
