// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/logging"
)

// Validate checks every section. Component sections validate themselves.
func (c *Config) Validate() error {
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validatePrecompute(); err != nil {
		return err
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if c.Coord.Lease <= 0 {
		return fmt.Errorf("coord.lease must be positive")
	}
	if err := c.Jobs.Validate(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRedis() error {
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	for _, addr := range c.Redis.Addrs {
		if err := validateHostPort(addr); err != nil {
			return fmt.Errorf("redis.addrs: %w", err)
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	if c.Redis.Breaker.FailureRatio < 0 || c.Redis.Breaker.FailureRatio > 1 {
		return fmt.Errorf("redis.breaker.failure_ratio must be in [0, 1], got %f", c.Redis.Breaker.FailureRatio)
	}
	return nil
}

func (c *Config) validateSource() error {
	if !c.Source.InMemory && c.Source.Path == "" {
		return fmt.Errorf("source.path is required unless source.in_memory is set")
	}
	return nil
}

func (c *Config) validateCache() error {
	ttls := []struct {
		name string
		v    time.Duration
	}{
		{"cache.snapshot_ttl", c.Cache.SnapshotTTL},
		{"cache.topk_ttl", c.Cache.TopKTTL},
		{"cache.activity_ttl", c.Cache.ActivityTTL},
		{"cache.result_ttl", c.Cache.ResultTTL},
	}
	for _, ttl := range ttls {
		if ttl.v <= 0 {
			return fmt.Errorf("%s must be positive", ttl.name)
		}
	}
	if c.Cache.FreshnessWindow > c.Cache.SnapshotTTL {
		return fmt.Errorf("cache.freshness_window (%s) must not exceed cache.snapshot_ttl (%s)",
			c.Cache.FreshnessWindow, c.Cache.SnapshotTTL)
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.JitterWeight < 0 || c.Scoring.JitterWeight > 1 {
		return fmt.Errorf("scoring.jitter_weight must be in [0, 1], got %f", c.Scoring.JitterWeight)
	}
	return nil
}

func (c *Config) validatePrecompute() error {
	p := c.Precompute
	if p.SimilarityTopK < 1 || p.ComplementTopK < 1 {
		return fmt.Errorf("precompute top-k sizes must be positive")
	}
	if p.Workers < 1 {
		return fmt.Errorf("precompute.workers must be positive, got %d", p.Workers)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if r := c.RateLimit.Recommend; r.Limit < 1 || r.Window <= 0 {
		return fmt.Errorf("ratelimit.recommend needs a positive limit and window")
	}
	if r := c.RateLimit.IP; r.Limit < 1 || r.Window <= 0 {
		return fmt.Errorf("ratelimit.ip needs a positive limit and window")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	if c.Events.NATS.URL != "" && c.Events.Transport == "nats" && !c.Events.NATS.Embedded.Enabled {
		if err := validateNATSURL(c.Events.NATS.URL); err != nil {
			return fmt.Errorf("events.nats.url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 || c.Supervisor.FailureDecay <= 0 {
		return fmt.Errorf("supervisor failure threshold and decay must be positive")
	}
	if c.Supervisor.ShutdownTimeout <= 0 {
		return fmt.Errorf("supervisor.shutdown_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
