// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/metrics"
)

// IPLimiter is the shared per-IP limiter. *ratelimit.Limiter satisfies it.
type IPLimiter interface {
	AllowIP(ctx context.Context, ip string) bool
}

// CORS builds the go-chi/cors handler. An empty origin list rejects all
// cross-origin requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// RequestIDWithLogging propagates or assigns X-Request-ID and stores it,
// with a fresh correlation id, in the logging context.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(chimiddleware.RequestIDHeader)
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set(chimiddleware.RequestIDHeader, requestID)
			}
			w.Header().Set(chimiddleware.RequestIDHeader, requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APISecurityHeaders sets the headers every JSON response should carry.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// PrometheusMetrics records request counts and latency per route pattern.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start))
	})
}

// DistributedRateLimit applies the shared per-IP limit. It expects RealIP
// to have run so RemoteAddr holds the client address.
func DistributedRateLimit(limiter IPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowIP(r.Context(), clientIP(r)) {
				NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminRateLimit is a local httprate limiter for the admin routes.
func AdminRateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).TooManyRequests("Admin rate limit exceeded")
		}),
	)
}

// Timeout bounds the request context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
