// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the chi route tree.
//
// Review routes are mounted only when the handler has an AlertReviewer, and
// POST /actors only when it has an ActorRegistry.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(RequestLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/screening", func(r chi.Router) {
		r.Use(mw.RateLimit("screening"))
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)

		r.Post("/evaluate", h.Evaluate)
		r.Post("/outcomes", h.Outcomes)
		r.Get("/statistics", h.Statistics)
		r.Get("/actors/{actorID}/status", h.ActorStatus)

		if h.registry != nil {
			r.Post("/actors", h.RegisterActor)
		}
		if h.reviewer != nil {
			r.Get("/alerts", h.ListAlerts)
			r.Post("/alerts/{id}/resolve", h.ResolveAlert)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
