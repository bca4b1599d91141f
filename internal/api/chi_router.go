// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/affinity/internal/api/docs" // registers the OpenAPI document
)

// NewRouter builds the chi route tree.
//
//	/healthz, /metrics, /swagger/*           ops
//	/api/v1/...                              recommendations, feedback, tags
//	/admin/...                               manual triggers and cache control
//
// The shared per-IP limit covers /api and /admin; admin routes also get a
// local httprate budget.
func NewRouter(h *Handler, cfg Config, limiter IPLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.CORSAllowedOrigins))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	if cfg.SwaggerEnabled {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
			httpSwagger.DeepLinking(true),
			httpSwagger.DocExpansion("list"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(DistributedRateLimit(limiter))
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)
		r.Use(Timeout(cfg.RequestTimeout))

		r.Get("/users/{id}/recommendations", h.GetRecommendations)
		r.Post("/users/{id}/recommendations/refresh", h.RefreshRecommendations)
		r.Post("/feedback", h.PostFeedback)
		r.Get("/tag-categories", h.GetTagCategories)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(DistributedRateLimit(limiter))
		r.Use(AdminRateLimit(cfg.AdminRateLimit))
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)

		r.Route("/precompute", func(r chi.Router) {
			r.Post("/full", h.TriggerFullPrecompute)
			r.Post("/incremental", h.TriggerIncrementalPrecompute)
			r.Get("/status", h.PrecomputeStatus)
			r.With(Timeout(cfg.RequestTimeout)).Post("/users/{id}/{kind}", h.RecomputeUser)
		})
		r.Post("/jobs/{name}", h.TriggerJob)
		r.With(Timeout(cfg.RequestTimeout)).Post("/users/{id}/tags-updated", h.AnnounceTagsUpdated)
		r.With(Timeout(cfg.RequestTimeout)).Delete("/recommendations/cache", h.ClearRecommendationCache)
	})

	return r
}

// NewServer wraps handler in an http.Server configured from cfg.
func NewServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
