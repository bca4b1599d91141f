// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/events"
	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/ratelimit"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/scoring"
	"github.com/tomtom215/affinity/internal/supervisor"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. Config file and environment
// values are layered on top.
func defaultConfig() *Config {
	rl := ratelimit.DefaultConfig()
	return &Config{
		Redis: RedisConfig{
			Addrs:        []string{"127.0.0.1:6379"},
			PoolSize:     20,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Prefix:       kvstore.DefaultPrefix,
			OpTimeout:    2 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Source: SourceConfig{
			Path:    "/data/badger",
			GCRatio: 0.5,
		},
		Cache: CacheConfig{
			SnapshotTTL:     10 * time.Minute,
			FreshnessWindow: 5 * time.Minute,
			TopKTTL:         24 * time.Hour,
			ActivityTTL:     24 * time.Hour,
			TagIndexTTL:     time.Hour,
			ResultTTL:       5 * time.Minute,
			ResyncTimeout:   time.Minute,
			UserMemoSize:    10000,
			UserMemoTTL:     time.Minute,
		},
		Scoring: ScoringConfig{
			JitterWeight: scoring.DefaultJitterWeight,
			Activity:     scoring.StandardActivity,
		},
		Precompute: precompute.DefaultConfig(),
		Recommend:  recommend.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Timeout:   rl.Timeout,
			Recommend: rl.Recommend,
			IP:        rl.IP,
		},
		Coord:      CoordConfig{Lease: 30 * time.Second},
		Jobs:       jobs.DefaultConfig(),
		Events:     events.DefaultConfig(),
		HTTP:       api.DefaultConfig(),
		Supervisor: supervisor.DefaultTreeConfig(),
		Logging: logging.Config{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
	}
}

// Load reads the configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := FindConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FindConfigFile returns CONFIG_PATH when it exists, else the first default
// path that exists, else "".
func FindConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"redis.addrs",
	"events.nats.stream_subjects",
	"http.cors_allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables (lower-cased) to config paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	// Redis
	"redis_addrs":       "redis.addrs",
	"redis_addr":        "redis.addrs",
	"redis_master_name": "redis.master_name",
	"redis_username":    "redis.username",
	"redis_password":    "redis.password",
	"redis_db":          "redis.db",
	"redis_pool_size":   "redis.pool_size",
	"redis_key_prefix":  "redis.prefix",
	"redis_op_timeout":  "redis.op_timeout",

	// User store
	"badger_path":      "source.path",
	"badger_in_memory": "source.in_memory",

	// Cache lifetimes
	"cache_snapshot_ttl":     "cache.snapshot_ttl",
	"cache_freshness_window": "cache.freshness_window",
	"cache_topk_ttl":         "cache.topk_ttl",
	"cache_result_ttl":       "cache.result_ttl",

	// Scoring and precompute
	"scoring_jitter_weight":      "scoring.jitter_weight",
	"precompute_workers":         "precompute.workers",
	"precompute_similarity_topk": "precompute.similarity_top_k",
	"precompute_complement_topk": "precompute.complement_top_k",

	// Rate limits
	"recommend_rate_limit":        "ratelimit.recommend.limit",
	"recommend_rate_limit_window": "ratelimit.recommend.window",
	"ip_rate_limit":               "ratelimit.ip.limit",
	"ip_rate_limit_window":        "ratelimit.ip.window",

	// Coordination
	"lock_lease": "coord.lease",

	// Jobs
	"full_precompute_enabled":        "jobs.full_precompute.enabled",
	"full_precompute_cron":           "jobs.full_precompute.cron",
	"incremental_precompute_enabled": "jobs.incremental_precompute.enabled",
	"incremental_precompute_cron":    "jobs.incremental_precompute.cron",
	"activity_precompute_enabled":    "jobs.activity_precompute.enabled",
	"activity_precompute_cron":       "jobs.activity_precompute.cron",
	"cache_cleanup_enabled":          "jobs.cache_cleanup.enabled",
	"cache_cleanup_cron":             "jobs.cache_cleanup.cron",
	"cache_sync_enabled":             "jobs.cache_sync.enabled",
	"cache_sync_interval":            "jobs.cache_sync.interval",
	"storage_gc_enabled":             "jobs.storage_gc.enabled",
	"storage_gc_interval":            "jobs.storage_gc.interval",
	"startup_precompute_enabled":     "jobs.startup.enabled",
	"startup_precompute_delay":       "jobs.startup.delay",
	"job_timeout":                    "jobs.timeout",

	// Events
	"events_enabled":       "events.enabled",
	"events_transport":     "events.transport",
	"nats_url":             "events.nats.url",
	"nats_embedded":        "events.nats.embedded.enabled",
	"nats_store_dir":       "events.nats.embedded.store_dir",
	"nats_stream_name":     "events.nats.stream_name",
	"nats_queue_group":     "events.nats.queue_group",
	"nats_durable_name":    "events.nats.durable_name",
	"nats_subscribers":     "events.nats.subscribers_count",
	"events_throttle":      "events.throttle_per_second",
	"events_handler_limit": "events.handler_timeout",

	// HTTP
	"http_listen_addr":     "http.listen_addr",
	"http_request_timeout": "http.request_timeout",
	"cors_origins":         "http.cors_allowed_origins",
	"swagger_enabled":      "http.swagger_enabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever path changes. The caller reloads
// and swaps configuration under its own lock.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
