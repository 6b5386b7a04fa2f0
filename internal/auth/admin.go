// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/logging"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAdminDisabled is returned when no admin account is configured.
	ErrAdminDisabled = errors.New("admin login is not configured")

	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
)

// LockedError is returned while a username or client address is locked out.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed logins, retry in %s", e.Remaining.Round(time.Second))
}

// Session is an issued admin token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// Admin verifies the single configured admin account and issues tokens.
type Admin struct {
	username     string
	passwordHash []byte
	jwt          *JWTManager
	lockout      *Lockout
	now          func() time.Time
}

// NewAdmin creates an Admin from security settings. It returns
// ErrAdminDisabled when no admin account is configured, so callers can leave
// admin routes unmounted.
func NewAdmin(cfg config.SecurityConfig) (*Admin, error) {
	if !cfg.AdminEnabled() {
		return nil, ErrAdminDisabled
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash: %w", err)
	}

	jwtManager, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}

	return &Admin{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
		jwt:          jwtManager,
		lockout:      NewLockout(DefaultLockoutConfig()),
		now:          time.Now,
	}, nil
}

// Login checks credentials and returns a signed session. Failures are
// counted per username and per client address.
func (a *Admin) Login(ctx context.Context, username, password, clientIP string) (*Session, error) {
	now := a.now()
	subjects := []string{"user:" + username}
	if clientIP != "" {
		subjects = append(subjects, "ip:"+clientIP)
	}

	for _, s := range subjects {
		if locked, remaining := a.lockout.Locked(s, now); locked {
			return nil, &LockedError{Remaining: remaining}
		}
	}

	if !a.validate(username, password) {
		for _, s := range subjects {
			a.lockout.Fail(s, now)
		}
		logging.Ctx(ctx).Warn().Str("username", username).Str("client_ip", clientIP).Msg("Admin login failed")
		return nil, ErrInvalidCredentials
	}

	for _, s := range subjects {
		a.lockout.Reset(s)
	}

	token, expires, err := a.jwt.GenerateToken(username, RoleAdmin)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("username", username).Msg("Admin login succeeded")
	return &Session{Token: token, ExpiresAt: expires, Username: username}, nil
}

// validate compares both fields without short-circuiting.
func (a *Admin) validate(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// Authenticate validates the bearer token of r and returns its claims.
func (a *Admin) Authenticate(r *http.Request) (*Claims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("role %q is not allowed", claims.Role)
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}

type contextKey string

const claimsContextKey contextKey = "claims"

// ContextWithClaims stores verified claims on ctx.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext returns the claims stored by ContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok
}
