// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/villasync/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil chiMw uses the default middleware config.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Health checks skip rate limiting so monitors never trip it
		r.Get("/health/live", router.handler.HealthLive)
		r.Get("/health/ready", router.handler.HealthReady)

		// Public widget endpoints
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("public"))

			r.Post("/availability", router.handler.Availability)
			r.Post("/bookings", router.handler.CreateBooking)
			r.Get("/properties", router.handler.ListProperties)
			r.Get("/properties/{id}", router.handler.GetProperty)
			r.Get("/properties/{id}/calendar", router.handler.PropertyCalendar)
		})

		// Guesty webhooks authenticate by signature
		r.With(router.chiMiddleware.RateLimit("webhooks")).
			Post("/webhooks/guesty", router.handler.GuestyWebhook)

		router.registerAdminRoutes(r)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (router *Router) registerAdminRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("admin"))
			r.Use(RequireAdmin(router.handler.deps.Admin))

			r.Get("/sync", router.handler.AdminSyncState)
			r.Post("/sync", router.handler.AdminSyncRun)
			r.Get("/diagnostics", router.handler.AdminDiagnostics)
			r.Get("/bookings/{id}", router.handler.AdminGetBooking)
		})
	})
}
