// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"time"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/events"
	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/ratelimit"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/scoring"
	"github.com/tomtom215/affinity/internal/source"
	"github.com/tomtom215/affinity/internal/supervisor"
)

// Config is the whole service configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig
//  2. YAML file from CONFIG_PATH or the default search paths
//  3. Environment variables listed in envMappings
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Redis      RedisConfig           `koanf:"redis"`
	Source     SourceConfig          `koanf:"source"`
	Cache      CacheConfig           `koanf:"cache"`
	Scoring    ScoringConfig         `koanf:"scoring"`
	Precompute precompute.Config     `koanf:"precompute"`
	Recommend  recommend.Config      `koanf:"recommend"`
	RateLimit  RateLimitConfig       `koanf:"ratelimit"`
	Coord      CoordConfig           `koanf:"coord"`
	Jobs       jobs.Config           `koanf:"jobs"`
	Events     events.Config         `koanf:"events"`
	HTTP       api.Config            `koanf:"http"`
	Supervisor supervisor.TreeConfig `koanf:"supervisor"`
	Logging    logging.Config        `koanf:"logging"`
}

// RedisConfig is the shared cache connection.
type RedisConfig struct {
	// Addrs holds one address for a standalone server or several for a
	// cluster.
	Addrs        []string      `koanf:"addrs"`
	MasterName   string        `koanf:"master_name"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// Prefix namespaces every key.
	Prefix    string        `koanf:"prefix"`
	OpTimeout time.Duration `koanf:"op_timeout"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of Redis.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// ClientOptions returns the connection settings.
func (c *RedisConfig) ClientOptions() kvstore.ClientOptions {
	return kvstore.ClientOptions{
		Addrs:        c.Addrs,
		MasterName:   c.MasterName,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// Store returns the kvstore settings.
func (c *RedisConfig) Store() kvstore.Config {
	return kvstore.Config{
		Prefix:              c.Prefix,
		OpTimeout:           c.OpTimeout,
		BreakerMaxRequests:  c.Breaker.MaxRequests,
		BreakerInterval:     c.Breaker.Interval,
		BreakerTimeout:      c.Breaker.Timeout,
		BreakerMinRequests:  c.Breaker.MinRequests,
		BreakerFailureRatio: c.Breaker.FailureRatio,
	}
}

// SourceConfig is the BadgerDB user store.
type SourceConfig struct {
	Path       string  `koanf:"path"`
	InMemory   bool    `koanf:"in_memory"`
	SyncWrites bool    `koanf:"sync_writes"`
	GCRatio    float64 `koanf:"gc_ratio"`
}

// Badger returns the store settings.
func (c *SourceConfig) Badger() source.Config {
	return source.Config{
		Path:       c.Path,
		InMemory:   c.InMemory,
		SyncWrites: c.SyncWrites,
		GCRatio:    c.GCRatio,
	}
}

// CacheConfig holds key lifetimes.
type CacheConfig struct {
	SnapshotTTL     time.Duration `koanf:"snapshot_ttl"`
	FreshnessWindow time.Duration `koanf:"freshness_window"`
	TopKTTL         time.Duration `koanf:"topk_ttl"`
	ActivityTTL     time.Duration `koanf:"activity_ttl"`
	TagIndexTTL     time.Duration `koanf:"tag_index_ttl"`
	ResultTTL       time.Duration `koanf:"result_ttl"`
	ResyncTimeout   time.Duration `koanf:"resync_timeout"`
	UserMemoSize    int           `koanf:"user_memo_size"`
	UserMemoTTL     time.Duration `koanf:"user_memo_ttl"`
}

// Layer returns the cache layer settings.
func (c *CacheConfig) Layer() cache.Config {
	return cache.Config{
		SnapshotTTL:     c.SnapshotTTL,
		FreshnessWindow: c.FreshnessWindow,
		TopKTTL:         c.TopKTTL,
		ActivityTTL:     c.ActivityTTL,
		TagIndexTTL:     c.TagIndexTTL,
		ResultTTL:       c.ResultTTL,
		ResyncTimeout:   c.ResyncTimeout,
		UserMemoSize:    c.UserMemoSize,
		UserMemoTTL:     c.UserMemoTTL,
	}
}

// ScoringConfig tunes the online scorer.
type ScoringConfig struct {
	// JitterWeight replaces the jitter column of every strategy. 0 makes
	// scoring deterministic.
	JitterWeight float64                 `koanf:"jitter_weight"`
	Activity     scoring.ActivityWeights `koanf:"activity"`
}

// Scorer returns the scorer settings. The affinity table, clock and random
// source keep their defaults.
func (c *ScoringConfig) Scorer() scoring.Config {
	return scoring.Config{
		JitterWeight: c.JitterWeight,
		Activity:     c.Activity,
	}
}

// RateLimitConfig holds the shared counters' limits.
type RateLimitConfig struct {
	Timeout   time.Duration  `koanf:"timeout"`
	Recommend ratelimit.Rule `koanf:"recommend"`
	IP        ratelimit.Rule `koanf:"ip"`
}

// Limiter returns the limiter settings.
func (c *RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Timeout: c.Timeout, Recommend: c.Recommend, IP: c.IP}
}

// CoordConfig configures the job locks.
type CoordConfig struct {
	// Lease is the lock TTL. Held locks are extended at a third of it.
	Lease time.Duration `koanf:"lease"`
}
