// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/villasync/internal/auth"
	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/middleware"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSExposedHeaders []string
	CORSMaxAge         int // seconds

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns the defaults for the public booking
// widget. CORS origins are empty and must be configured.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		CORSAllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type", middleware.RequestIDHeader},
		CORSExposedHeaders: []string{middleware.RequestIDHeader},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddlewareConfigFromSecurity builds the middleware config from the
// security section, keeping defaults for anything left unset.
func ChiMiddlewareConfigFromSecurity(sec config.SecurityConfig) *ChiMiddlewareConfig {
	cfg := DefaultChiMiddlewareConfig()
	if len(sec.CORSOrigins) > 0 {
		cfg.CORSAllowedOrigins = sec.CORSOrigins
	}
	if sec.RateLimitReqs > 0 {
		cfg.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		cfg.RateLimitWindow = sec.RateLimitWindow
	}
	cfg.RateLimitDisabled = sec.RateLimitDisabled
	return cfg
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		ExposedHeaders: cfg.CORSExposedHeaders,
		MaxAge:         cfg.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: cfg,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits requests per client IP using the configured budget. The
// group names the route group in the rate limit metric.
func (m *ChiMiddleware) RateLimit(group string) func(http.Handler) http.Handler {
	return m.limit(group, m.config.RateLimitRequests, m.config.RateLimitWindow)
}

// RateLimitLogin is the strict limiter for admin login: 5 attempts per
// 5 minutes per IP, in addition to the account lockout.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit("admin_login", 5, 5*time.Minute)
}

func (m *ChiMiddleware) limit(group string, requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(group).Inc()
			logging.Ctx(r.Context()).Warn().
				Str("group", group).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rate limit exceeded")
			NewResponseWriter(w, r).TooManyRequests("Too many requests, please slow down")
		}),
	)
}

// APISecurityHeaders adds baseline security headers to API responses.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Behind a TLS-terminating proxy the scheme arrives in X-Forwarded-Proto
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging writes one access log line per request.
func RequestLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := logging.Ctx(r.Context())
			event := log.Info()
			if status >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// RequireAdmin rejects requests without a valid admin bearer token and
// stores the verified claims on the request context.
func RequireAdmin(admin *auth.Admin) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if admin == nil {
				NewResponseWriter(w, r).NotFound("Admin API is not enabled")
				return
			}
			claims, err := admin.Authenticate(r)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Admin authentication failed")
				NewResponseWriter(w, r).Unauthorized("Authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
		})
	}
}
