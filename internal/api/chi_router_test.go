// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/affinity/internal/metrics"
)

func TestRouter_DistributedRateLimit(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *Config) { f.limiter.allow = false })

	rec := f.do(t, http.MethodGet, "/api/v1/tag-categories", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("api status = %d, want 429", rec.Code)
	}
	if env, _ := decode(t, rec); env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", env.Error)
	}
	if len(f.limiter.ips) != 1 || f.limiter.ips[0] != "192.0.2.1" {
		t.Errorf("limited ips = %v", f.limiter.ips)
	}

	if rec := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestRouter_AdminRateLimit(t *testing.T) {
	f := newFixture(t, func(_ *fixture, cfg *Config) {
		cfg.AdminRateLimit = RateLimitConfig{Requests: 1, Window: time.Minute}
	})

	if rec := f.do(t, http.MethodGet, "/admin/precompute/status", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/admin/precompute/status", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	// The public API keeps its own budget.
	if rec := f.do(t, http.MethodGet, "/api/v1/tag-categories", ""); rec.Code != http.StatusOK {
		t.Errorf("api status = %d, want 200", rec.Code)
	}
}

func TestRouter_RequestID(t *testing.T) {
	f := newFixture(t, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/tag-categories", http.NoBody)
	req.Header.Set("X-Request-ID", "req-123")
	rec := serve(f, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/tag-categories", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
	if env, _ := decode(t, rec); env.Meta == nil || env.Meta.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("meta = %+v", env.Meta)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/tag-categories", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("/metrics status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/swagger/doc.json", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Affinity API") {
		t.Errorf("/swagger/doc.json status = %d body = %.200s", rec.Code, rec.Body.String())
	}
}

func TestRouter_SwaggerDisabled(t *testing.T) {
	f := newFixture(t, func(_ *fixture, cfg *Config) { cfg.SwaggerEnabled = false })

	if rec := f.do(t, http.MethodGet, "/swagger/doc.json", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRouter_MetricsUseRoutePattern(t *testing.T) {
	f := newFixture(t, nil)
	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/users/{id}/recommendations", "200")
	before := testutil.ToFloat64(counter)

	f.do(t, http.MethodGet, "/api/v1/users/1/recommendations", "")
	f.do(t, http.MethodGet, "/api/v1/users/2/recommendations", "")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}
}

func TestRouter_CORS(t *testing.T) {
	f := newFixture(t, func(_ *fixture, cfg *Config) {
		cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	})

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/tag-categories", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(f, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNewServer(t *testing.T) {
	cfg := DefaultConfig()
	srv := NewServer(cfg, http.NotFoundHandler())
	if srv.Addr != ":8080" || srv.ReadTimeout != cfg.ReadTimeout || srv.IdleTimeout != cfg.IdleTimeout {
		t.Errorf("server = %+v", srv)
	}
}
