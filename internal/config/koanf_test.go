// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/affinity/internal/events"
)

// TestDefaultConfig verifies the built-in defaults and that they validate.
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if !slices.Equal(cfg.Redis.Addrs, []string{"127.0.0.1:6379"}) {
		t.Errorf("Redis.Addrs = %v", cfg.Redis.Addrs)
	}
	if cfg.Redis.Prefix != "microde:" {
		t.Errorf("Redis.Prefix = %q, want microde:", cfg.Redis.Prefix)
	}
	if cfg.Cache.SnapshotTTL != 10*time.Minute || cfg.Cache.FreshnessWindow != 5*time.Minute {
		t.Errorf("Cache TTLs = %v / %v", cfg.Cache.SnapshotTTL, cfg.Cache.FreshnessWindow)
	}
	if cfg.Jobs.FullPrecompute.Cron != "0 2 * * *" {
		t.Errorf("Jobs.FullPrecompute.Cron = %q", cfg.Jobs.FullPrecompute.Cron)
	}
	if cfg.Jobs.CacheSync.Interval != 5*time.Minute {
		t.Errorf("Jobs.CacheSync.Interval = %v, want 5m", cfg.Jobs.CacheSync.Interval)
	}
	if cfg.RateLimit.Recommend.Limit != 3 || cfg.RateLimit.Recommend.Window != 10*time.Second {
		t.Errorf("RateLimit.Recommend = %+v", cfg.RateLimit.Recommend)
	}
	if !cfg.Events.Enabled || cfg.Events.Transport != events.TransportChannel {
		t.Errorf("Events = enabled %v transport %q", cfg.Events.Enabled, cfg.Events.Transport)
	}
	if cfg.HTTP.ListenAddr != ":8080" {
		t.Errorf("HTTP.ListenAddr = %q", cfg.HTTP.ListenAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"REDIS_ADDRS", "redis.addrs"},
		{"REDIS_ADDR", "redis.addrs"},
		{"BADGER_PATH", "source.path"},
		{"FULL_PRECOMPUTE_CRON", "jobs.full_precompute.cron"},
		{"CACHE_SYNC_INTERVAL", "jobs.cache_sync.interval"},
		{"NATS_URL", "events.nats.url"},
		{"NATS_EMBEDDED", "events.nats.embedded.enabled"},
		{"CORS_ORIGINS", "http.cors_allowed_origins"},
		{"log_level", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.expected {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Precompute.SimilarityTopK != 200 || cfg.Recommend.DefaultPageSize < 1 {
		t.Errorf("precompute = %+v recommend = %+v", cfg.Precompute, cfg.Recommend)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
redis:
  addrs: ["redis-a:6379", "redis-b:6379"]
  password: secret
cache:
  result_ttl: 2m
jobs:
  full_precompute:
    cron: "0 0 2 * * ?"
  cache_sync:
    interval: 90s
logging:
  level: debug
http:
  cors_allowed_origins: ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("INCREMENTAL_PRECOMPUTE_ENABLED", "false")
	t.Setenv("NATS_URL", "nats://nats:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !slices.Equal(cfg.Redis.Addrs, []string{"redis-a:6379", "redis-b:6379"}) || cfg.Redis.Password != "secret" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Cache.ResultTTL != 2*time.Minute {
		t.Errorf("Cache.ResultTTL = %v, want 2m", cfg.Cache.ResultTTL)
	}
	// Untouched keys in a section keep their defaults.
	if cfg.Cache.SnapshotTTL != 10*time.Minute {
		t.Errorf("Cache.SnapshotTTL = %v, want 10m", cfg.Cache.SnapshotTTL)
	}
	if cfg.Jobs.FullPrecompute.Cron != "0 0 2 * * ?" || !cfg.Jobs.FullPrecompute.Enabled {
		t.Errorf("Jobs.FullPrecompute = %+v", cfg.Jobs.FullPrecompute)
	}
	if cfg.Jobs.CacheSync.Interval != 90*time.Second {
		t.Errorf("Jobs.CacheSync.Interval = %v", cfg.Jobs.CacheSync.Interval)
	}
	if cfg.Jobs.IncrementalPrecompute.Enabled {
		t.Error("INCREMENTAL_PRECOMPUTE_ENABLED=false was ignored")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, env should win over file", cfg.Logging.Level)
	}
	if cfg.Events.NATS.URL != "nats://nats:4222" {
		t.Errorf("Events.NATS.URL = %q", cfg.Events.NATS.URL)
	}
	if !slices.Equal(cfg.HTTP.CORSAllowedOrigins, []string{"https://app.example.com"}) {
		t.Errorf("HTTP.CORSAllowedOrigins = %v", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoad_CommaSeparatedEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("REDIS_ADDRS", "a:6379, b:6379,,c:6379")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []string{"a:6379", "b:6379", "c:6379"}; !slices.Equal(cfg.Redis.Addrs, want) {
		t.Errorf("Redis.Addrs = %v, want %v", cfg.Redis.Addrs, want)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 2 {
		t.Errorf("HTTP.CORSAllowedOrigins = %v", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidCron(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("FULL_PRECOMPUTE_CRON", "61 * * * *")

	if _, err := Load(); err == nil {
		t.Fatal("expected a validation error for minute 61")
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("redis: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestConverters(t *testing.T) {
	cfg := defaultConfig()

	store := cfg.Redis.Store()
	if store.Prefix != cfg.Redis.Prefix || store.BreakerFailureRatio != 0.6 {
		t.Errorf("Store() = %+v", store)
	}
	if opts := cfg.Redis.ClientOptions(); !slices.Equal(opts.Addrs, cfg.Redis.Addrs) || opts.PoolSize != 20 {
		t.Errorf("ClientOptions() = %+v", opts)
	}
	if layer := cfg.Cache.Layer(); layer.TopKTTL != 24*time.Hour {
		t.Errorf("Layer() = %+v", layer)
	}
	if sc := cfg.Scoring.Scorer(); sc.JitterWeight != cfg.Scoring.JitterWeight || sc.Activity != cfg.Scoring.Activity {
		t.Errorf("Scorer() = %+v", sc)
	}
	if l := cfg.RateLimit.Limiter(); l.IP != cfg.RateLimit.IP {
		t.Errorf("Limiter() = %+v", l)
	}
	if b := cfg.Source.Badger(); b.Path != "/data/badger" {
		t.Errorf("Badger() = %+v", b)
	}
}
