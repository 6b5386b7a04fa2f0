// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/villasync/internal/config"
)

// RoleAdmin is the only role Villasync issues.
const RoleAdmin = "admin"

const issuer = "villasync"

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager creates a token manager signing with HS256.
//
//	jwtManager, err := auth.NewJWTManager(cfg.Security)
//	if err != nil {
//	    return fmt.Errorf("admin auth: %w", err)
//	}
func NewJWTManager(cfg config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 12 * time.Hour
	}

	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// GenerateToken signs a token for username and returns it with its expiry.
func (m *JWTManager) GenerateToken(username, role string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.timeout)

	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, expires, nil
}

// ValidateToken checks signature, algorithm, issuer and expiry, and returns
// the claims. Tokens signed with anything other than HMAC are rejected.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
