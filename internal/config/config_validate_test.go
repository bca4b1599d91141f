// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/affinity/internal/events"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no redis", func(c *Config) { c.Redis.Addrs = nil }, "redis.addrs"},
		{"redis without port", func(c *Config) { c.Redis.Addrs = []string{"redis"} }, "redis.addrs"},
		{"redis bad port", func(c *Config) { c.Redis.Addrs = []string{"redis:0"} }, "invalid port"},
		{"breaker ratio", func(c *Config) { c.Redis.Breaker.FailureRatio = 1.5 }, "failure_ratio"},
		{"badger path", func(c *Config) { c.Source.Path = "" }, "source.path"},
		{"badger in memory", func(c *Config) { c.Source.Path = ""; c.Source.InMemory = true }, ""},
		{"zero snapshot ttl", func(c *Config) { c.Cache.SnapshotTTL = 0 }, "cache.snapshot_ttl"},
		{"freshness over ttl", func(c *Config) { c.Cache.FreshnessWindow = time.Hour }, "freshness_window"},
		{"jitter", func(c *Config) { c.Scoring.JitterWeight = -0.1 }, "jitter_weight"},
		{"workers", func(c *Config) { c.Precompute.Workers = 0 }, "precompute.workers"},
		{"recommend", func(c *Config) { c.Recommend.MaxCandidates = 0 }, "recommend:"},
		{"ip limit", func(c *Config) { c.RateLimit.IP.Limit = 0 }, "ratelimit.ip"},
		{"lease", func(c *Config) { c.Coord.Lease = 0 }, "coord.lease"},
		{"cron", func(c *Config) { c.Jobs.CacheCleanup.Cron = "every day" }, "cache_cleanup"},
		{"events disabled skip checks", func(c *Config) { c.Events.Enabled = false; c.Events.Transport = "kafka" }, ""},
		{"events transport", func(c *Config) { c.Events.Enabled = true; c.Events.Transport = "kafka" }, "events.transport"},
		{"nats url scheme", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Transport = events.TransportNATS
			c.Events.NATS.URL = "http://nats:4222"
		}, "scheme"},
		{"embedded nats", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Transport = events.TransportNATS
			c.Events.NATS.URL = ""
			c.Events.NATS.Embedded.Enabled = true
		}, ""},
		{"http", func(c *Config) { c.HTTP.ListenAddr = "" }, "http.listen_addr"},
		{"supervisor", func(c *Config) { c.Supervisor.ShutdownTimeout = 0 }, "supervisor.shutdown_timeout"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNATSURL(t *testing.T) {
	for _, u := range []string{"nats://localhost:4222", "tls://nats.example.com", "wss://nats.example.com/ws"} {
		if err := validateNATSURL(u); err != nil {
			t.Errorf("validateNATSURL(%q) = %v", u, err)
		}
	}
	for _, u := range []string{"http://localhost:4222", "nats://", "::"} {
		if err := validateNATSURL(u); err == nil {
			t.Errorf("validateNATSURL(%q) = nil, want error", u)
		}
	}
}
