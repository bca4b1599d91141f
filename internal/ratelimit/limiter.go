// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package ratelimit implements a fixed-window request limiter on the shared
// cache. Every decision is a single atomic increment-with-expiry, so all
// instances share one counter per key. The limiter fails open: if the cache
// call errors or times out the request is allowed.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/metrics"
)

const (
	keyRecommend = "rate:limit:recommend:"
	keyIP        = "rate:limit:ip:"
)

// Store is the subset of *kvstore.Store the limiter needs.
type Store interface {
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// Rule is a limit per window.
type Rule struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

// Config configures a Limiter.
type Config struct {
	Timeout   time.Duration
	Recommend Rule
	IP        Rule
}

// DefaultConfig returns 3 recommendations per 10s per user and 60 requests
// per minute per IP.
func DefaultConfig() Config {
	return Config{
		Timeout:   200 * time.Millisecond,
		Recommend: Rule{Limit: 3, Window: 10 * time.Second},
		IP:        Rule{Limit: 60, Window: time.Minute},
	}
}

// Limiter is safe for concurrent use.
type Limiter struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New creates a Limiter. Zero config fields take the defaults.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(store Store, cfg Config, logger zerolog.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Recommend.Limit <= 0 || cfg.Recommend.Window <= 0 {
		cfg.Recommend = def.Recommend
	}
	if cfg.IP.Limit <= 0 || cfg.IP.Window <= 0 {
		cfg.IP = def.IP
	}
	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow counts one call against key and reports whether it is within limit
// for the current window. Calls over the limit still count.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	return l.allow(ctx, "custom", key, limit, window)
}

func (l *Limiter) allow(ctx context.Context, scope, key string, limit int, window time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	count, err := l.store.IncrWithExpire(ctx, key, window)
	if err != nil {
		metrics.RateLimitFailOpen.Inc()
		l.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
		return true
	}

	allowed := count <= int64(limit)
	metrics.RecordRateLimit(scope, allowed)
	if !allowed {
		l.logger.Debug().Str("key", key).Int64("count", count).Int("limit", limit).Msg("rate limit exceeded")
	}
	return allowed
}

// AllowRecommend applies the per-user recommendation rule.
func (l *Limiter) AllowRecommend(ctx context.Context, userID int64) bool {
	r := l.cfg.Recommend
	return l.allow(ctx, "recommend", RecommendKey(userID), r.Limit, r.Window)
}

// AllowIP applies the per-IP rule.
func (l *Limiter) AllowIP(ctx context.Context, ip string) bool {
	r := l.cfg.IP
	return l.allow(ctx, "ip", IPKey(ip), r.Limit, r.Window)
}

// Remaining returns how many calls key has left in the current window.
// Fails open by returning limit.
func (l *Limiter) Remaining(ctx context.Context, key string, limit int) int {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	v, err := l.store.Get(ctx, key)
	if err != nil {
		return limit
	}
	count, err := strconv.Atoi(v)
	if err != nil {
		return limit
	}
	return max(limit-count, 0)
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	_, err := l.store.Del(ctx, key)
	return err
}

// RecommendRule returns the configured per-user recommendation rule.
func (l *Limiter) RecommendRule() Rule {
	return l.cfg.Recommend
}

// IPRule returns the configured per-IP rule.
func (l *Limiter) IPRule() Rule {
	return l.cfg.IP
}

// RecommendKey is the counter key for a user's recommendation requests.
func RecommendKey(userID int64) string {
	return keyRecommend + strconv.FormatInt(userID, 10)
}

// IPKey is the counter key for an IP address.
func IPKey(ip string) string {
	return keyIP + ip
}
