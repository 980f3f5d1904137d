// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/middleware"
)

// NewRouter assembles the route tree. Health probes, login and refresh are
// public; everything else sits behind requireAuth.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	rateReqs := cfg.Security.RateLimitReqs
	rateWindow := cfg.Security.RateLimitWindow
	if rateReqs <= 0 {
		rateReqs = 100
	}
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	r.Use(httprate.LimitByIP(rateReqs, rateWindow))
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", h.handleLive)
		r.Get("/health/ready", h.handleReady)
		r.Get("/health", h.handleHealth)

		r.Group(func(r chi.Router) {
			// Login gets a tighter limit to slow credential stuffing.
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/auth/login", h.handleLogin)
			r.Post("/auth/refresh", h.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Route("/companies", func(r chi.Router) {
				r.Post("/", h.handleCreateCompany)
				r.Get("/", h.handleListCompanies)
				r.Get("/{companyID}", h.handleGetCompany)
				r.Put("/{companyID}", h.handleUpdateCompany)
				r.Delete("/{companyID}", h.handleDeleteCompany)

				r.Post("/{companyID}/competitors", h.handleCreateCompetitor)
				r.Get("/{companyID}/competitors", h.handleListCompetitors)
			})

			r.Route("/competitors", func(r chi.Router) {
				r.Get("/{competitorID}", h.handleGetCompetitor)
				r.Put("/{competitorID}", h.handleUpdateCompetitor)
				r.Delete("/{competitorID}", h.handleDeleteCompetitor)
			})

			r.Route("/links", func(r chi.Router) {
				r.Get("/", h.handleListLinks)
				r.Post("/rededupe", h.handleRededupe)
				r.Get("/dedupe-log", h.handleListDedupeEntries)
				r.Get("/dedupe-log/{entryID}", h.handleGetDedupeEntry)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Post("/", h.handleCreateReport)
				r.Get("/", h.handleListReports)

				r.Route("/schedules", func(r chi.Router) {
					r.Post("/", h.handleCreateSchedule)
					r.Get("/", h.handleListSchedules)
					r.Get("/{scheduleID}", h.handleGetSchedule)
					r.Delete("/{scheduleID}", h.handleDeleteSchedule)
				})

				r.Get("/{reportID}", h.handleGetReport)
				r.Get("/{reportID}/download", h.handleDownloadReport)
			})

			r.Get("/usage", h.handleUsage)
		})
	})

	return r
}
