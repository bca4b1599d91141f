// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/affinity/internal/metrics"
)

// ErrNotFound is returned when a key or hash field does not exist.
var ErrNotFound = errors.New("kvstore: not found")

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("kvstore: unavailable")

// DefaultPrefix namespaces every key written by the core.
const DefaultPrefix = "microde:"

const breakerName = "redis"

// scanBatch is the COUNT hint for SCAN and the DEL batch size.
const scanBatch = 500

var (
	incrWithExpireScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return c`)

	compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	hsetIfExistsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0`)

	compareAndExpireScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Config configures a Store.
type Config struct {
	Prefix    string
	OpTimeout time.Duration

	// Breaker settings. Zero values use the defaults below.
	BreakerMaxRequests  uint32
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
}

// ScoredMember is one entry of an ordered score set.
type ScoredMember struct {
	Member string
	Score  float64
}

// Store is the Redis-backed shared cache. Safe for concurrent use.
type Store struct {
	client    redis.UniversalClient
	cb        *gobreaker.CircuitBreaker[interface{}]
	prefix    string
	opTimeout time.Duration
	logger    zerolog.Logger
}

// New wraps client.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(client redis.UniversalClient, cfg Config, logger zerolog.Logger) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}

	s := &Store{
		client:    client,
		prefix:    cfg.Prefix,
		opTimeout: cfg.OpTimeout,
		logger:    logger.With().Str("component", "kvstore").Logger(),
	}
	s.cb = newBreaker(breakerName, cfg, s.logger)
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.UniversalClient {
	return s.client
}

// Key returns the absolute Redis key for a relative key.
func (s *Store) Key(key string) string {
	return s.prefix + key
}

// BreakerState returns the circuit breaker state name.
func (s *Store) BreakerState() string {
	return stateToString(s.cb.State())
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// do runs fn under the operation timeout and the circuit breaker.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	err = s.translate(err)
	metrics.RecordKVOperation(op, time.Since(start), errorType(err))
	return err
}

// translate maps breaker and Redis errors and updates breaker metrics.
func (s *Store) translate(err error) error {
	switch {
	case err == nil, errors.Is(err, redis.Nil):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)
		if err != nil {
			return ErrNotFound
		}
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		s.logger.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(float64(s.cb.Counts().ConsecutiveFailures))
		return err
	}
}

func errorType(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUnavailable):
		return "breaker_open"
	default:
		return "other"
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

// ReplaceHash atomically replaces the hash at key with fields and sets its
// TTL. The hash is staged under a temporary key and renamed in one
// transaction, so readers never observe a partially written hash. An empty
// field map deletes the key.
func (s *Store) ReplaceHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	target := s.Key(key)
	if len(fields) == 0 {
		return s.do(ctx, "replace_hash", func(ctx context.Context) error {
			return s.client.Del(ctx, target).Err()
		})
	}

	values := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		values = append(values, f, v)
	}
	tmp := stagingKey(target)

	return s.do(ctx, "replace_hash", func(ctx context.Context) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, tmp, values...)
			pipe.Rename(ctx, tmp, target)
			if ttl > 0 {
				pipe.PExpire(ctx, target, ttl)
			}
			return nil
		})
		return err
	})
}

// stagingKey returns a temporary key in the same cluster hash slot as
// target, so MULTI and RENAME between the two are accepted by a cluster.
// A target that already carries a hash tag keeps it.
func stagingKey(target string) string {
	suffix := ":tmp:" + uuid.NewString()
	if i := strings.IndexByte(target, '{'); i >= 0 {
		if j := strings.IndexByte(target[i+1:], '}'); j > 0 {
			return target + suffix
		}
	}
	return "{" + target + "}" + suffix
}

// HGetAll returns every field of the hash at key. A missing key yields an
// empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var out map[string]string
	err := s.do(ctx, "hgetall", func(ctx context.Context) error {
		var err error
		out, err = s.client.HGetAll(ctx, s.Key(key)).Result()
		return err
	})
	return out, err
}

// HGet returns one hash field.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	var out string
	err := s.do(ctx, "hget", func(ctx context.Context) error {
		var err error
		out, err = s.client.HGet(ctx, s.Key(key), field).Result()
		return err
	})
	return out, err
}

// HSetIfExists writes one field of the hash at key, but only when the hash
// already exists. It never creates a hash without a TTL.
func (s *Store) HSetIfExists(ctx context.Context, key, field, value string) (bool, error) {
	var n int64
	err := s.do(ctx, "hset_if_exists", func(ctx context.Context) error {
		var err error
		n, err = hsetIfExistsScript.Run(ctx, s.client, []string{s.Key(key)}, field, value).Int64()
		return err
	})
	return n == 1, err
}

// HDel removes fields from the hash at key.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	return s.do(ctx, "hdel", func(ctx context.Context) error {
		return s.client.HDel(ctx, s.Key(key), fields...).Err()
	})
}

// ReplaceZSet atomically replaces the sorted set at key and sets its TTL.
// An empty member list deletes the key.
func (s *Store) ReplaceZSet(ctx context.Context, key string, members []ScoredMember, ttl time.Duration) error {
	target := s.Key(key)
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}

	return s.do(ctx, "replace_zset", func(ctx context.Context) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, target)
			if len(zs) == 0 {
				return nil
			}
			pipe.ZAdd(ctx, target, zs...)
			if ttl > 0 {
				pipe.PExpire(ctx, target, ttl)
			}
			return nil
		})
		return err
	})
}

// ZRevRangeWithScores returns members from start to stop (inclusive) in
// descending score order.
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	var zs []redis.Z
	err := s.do(ctx, "zrevrange", func(ctx context.Context) error {
		var err error
		zs, err = s.client.ZRevRangeWithScores(ctx, s.Key(key), start, stop).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toScored(zs), nil
}

// ZRangeByScoreWithScores returns every member whose score lies in
// [lo, hi], in ascending score order.
func (s *Store) ZRangeByScoreWithScores(ctx context.Context, key string, lo, hi float64) ([]ScoredMember, error) {
	by := &redis.ZRangeBy{
		Min: strconv.FormatFloat(lo, 'g', -1, 64),
		Max: strconv.FormatFloat(hi, 'g', -1, 64),
	}
	var zs []redis.Z
	err := s.do(ctx, "zrangebyscore", func(ctx context.Context) error {
		var err error
		zs, err = s.client.ZRangeByScoreWithScores(ctx, s.Key(key), by).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toScored(zs), nil
}

func toScored(zs []redis.Z) []ScoredMember {
	out := make([]ScoredMember, 0, len(zs))
	for _, z := range zs {
		var member string
		switch m := z.Member.(type) {
		case string:
			member = m
		default:
			member = fmt.Sprint(m)
		}
		out = append(out, ScoredMember{Member: member, Score: z.Score})
	}
	return out
}

// Get returns the string value at key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var out string
	err := s.do(ctx, "get", func(ctx context.Context) error {
		var err error
		out, err = s.client.Get(ctx, s.Key(key)).Result()
		return err
	})
	return out, err
}

// Set writes a string value. A zero ttl keeps the key forever.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.do(ctx, "set", func(ctx context.Context) error {
		return s.client.Set(ctx, s.Key(key), value, ttl).Err()
	})
}

// Exists reports whether key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := s.do(ctx, "exists", func(ctx context.Context) error {
		var err error
		n, err = s.client.Exists(ctx, s.Key(key)).Result()
		return err
	})
	return n > 0, err
}

// Del deletes keys and returns how many existed.
func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	abs := make([]string, len(keys))
	for i, k := range keys {
		abs[i] = s.Key(k)
	}

	var n int64
	err := s.do(ctx, "del", func(ctx context.Context) error {
		var err error
		n, err = s.delete(ctx, s.client, abs)
		return err
	})
	return n, err
}

// delete removes absolute keys through c. A cluster rejects multi-key DEL
// across hash slots, so there each key goes out as its own pipelined DEL.
func (s *Store) delete(ctx context.Context, c redis.Cmdable, keys []string) (int64, error) {
	if !s.isCluster() || len(keys) == 1 {
		return c.Del(ctx, keys...).Result()
	}

	cmds, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Del(ctx, k)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	var n int64
	for _, cmd := range cmds {
		if ic, ok := cmd.(*redis.IntCmd); ok {
			n += ic.Val()
		}
	}
	return n, nil
}

func (s *Store) isCluster() bool {
	_, ok := s.client.(*redis.ClusterClient)
	return ok
}

// DeleteByPattern deletes every key matching the glob pattern (relative to
// the prefix) using SCAN. On a cluster every master is scanned. Returns the
// number of deleted keys.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	match := s.Key(pattern)

	cluster, ok := s.client.(*redis.ClusterClient)
	if !ok {
		return s.scanDelete(ctx, s.client, match)
	}

	var deleted atomic.Int64
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		n, err := s.scanDelete(ctx, node, match)
		deleted.Add(n)
		return err
	})
	return deleted.Load(), err
}

// scanDelete scans one node (or a standalone server) for match and deletes
// what it finds.
func (s *Store) scanDelete(ctx context.Context, c redis.Cmdable, match string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)

	for {
		var keys []string
		err := s.do(ctx, "scan", func(ctx context.Context) error {
			var err error
			keys, cursor, err = c.Scan(ctx, cursor, match, scanBatch).Result()
			return err
		})
		if err != nil {
			return deleted, fmt.Errorf("scan %q: %w", match, err)
		}

		if len(keys) > 0 {
			var n int64
			err = s.do(ctx, "del", func(ctx context.Context) error {
				var err error
				n, err = s.delete(ctx, c, keys)
				return err
			})
			if err != nil {
				return deleted, fmt.Errorf("delete %q: %w", match, err)
			}
			deleted += n
		}

		if cursor == 0 {
			return deleted, nil
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
	}
}

// IncrWithExpire atomically increments the counter at key and sets its
// expiry to window when the increment created it. Returns the new count.
func (s *Store) IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error) {
	var n int64
	err := s.do(ctx, "incr_expire", func(ctx context.Context) error {
		var err error
		n, err = incrWithExpireScript.Run(ctx, s.client, []string{s.Key(key)}, window.Milliseconds()).Int64()
		return err
	})
	return n, err
}

// SetNX sets key to value with ttl only if it does not exist.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var ok bool
	err := s.do(ctx, "setnx", func(ctx context.Context) error {
		var err error
		ok, err = s.client.SetNX(ctx, s.Key(key), value, ttl).Result()
		return err
	})
	return ok, err
}

// CompareAndDelete deletes key only if it holds value.
func (s *Store) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	var n int64
	err := s.do(ctx, "compare_delete", func(ctx context.Context) error {
		var err error
		n, err = compareAndDeleteScript.Run(ctx, s.client, []string{s.Key(key)}, value).Int64()
		return err
	})
	return n == 1, err
}

// CompareAndExpire resets the TTL of key only if it holds value.
func (s *Store) CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var n int64
	err := s.do(ctx, "compare_expire", func(ctx context.Context) error {
		var err error
		n, err = compareAndExpireScript.Run(ctx, s.client, []string{s.Key(key)}, value, ttl.Milliseconds()).Int64()
		return err
	})
	return n == 1, err
}

// PTTL returns the remaining time to live of key. ErrNotFound when the key
// does not exist; a negative duration when it has no expiry.
func (s *Store) PTTL(ctx context.Context, key string) (time.Duration, error) {
	var d time.Duration
	err := s.do(ctx, "pttl", func(ctx context.Context) error {
		var err error
		d, err = s.client.PTTL(ctx, s.Key(key)).Result()
		return err
	})
	if err != nil {
		return 0, err
	}
	if d == -2 || d == -2*time.Millisecond {
		return 0, ErrNotFound
	}
	return d, nil
}

// FormatID renders an integer id as a member or field name.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses a member or field name written by FormatID.
func ParseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
