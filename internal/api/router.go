// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/middleware"
)

// Router wires the handler set into the chi route tree.
type Router struct {
	handler *Handler
	cfg     *config.Config
}

// NewRouter creates a router over the given handlers.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the full route tree with the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health and metrics stay outside the rate limiter so monitoring is
	// never throttled away.
	r.Get("/api/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Admin surface.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/live", router.handler.AdminLive)
		r.Get("/live/stream", router.handler.AdminLiveStream)
		r.Get("/trail", router.handler.AdminTrail)

		r.Post("/devices", router.handler.DeviceCreate)
		r.Get("/devices", router.handler.DeviceList)
		r.Delete("/devices/{id}", router.handler.DeviceDelete)
	})

	// Public mirror surface.
	r.Route("/api/mirror", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Post("/", router.handler.MirrorCreate)
		r.Get("/{token}/latest", router.handler.MirrorLatest)
		r.Get("/{token}/trail", router.handler.MirrorTrail)
		r.Get("/{token}/stream", router.handler.MirrorStream)
		r.Delete("/{token}", router.handler.MirrorRevoke)
	})

	return r
}

// rateLimit returns the per-IP limiter, or a no-op when disabled.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(
		router.cfg.Security.RateLimitReqs,
		router.cfg.Security.RateLimitWindow,
	)
}
