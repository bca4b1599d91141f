// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
)

// KV is the subset of *kvstore.Store the layer uses.
type KV interface {
	ReplaceHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HSetIfExists(ctx context.Context, key, field, value string) (bool, error)
	HDel(ctx context.Context, key string, fields ...string) error
	ReplaceZSet(ctx context.Context, key string, members []kvstore.ScoredMember, ttl time.Duration) error
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]kvstore.ScoredMember, error)
	ZRangeByScoreWithScores(ctx context.Context, key string, lo, hi float64) ([]kvstore.ScoredMember, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	PTTL(ctx context.Context, key string) (time.Duration, error)
}

// Source is the system-of-record as seen by the layer.
type Source interface {
	ListActiveUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
}

// Config holds TTLs and sizes for the layer.
type Config struct {
	SnapshotTTL     time.Duration
	FreshnessWindow time.Duration
	TopKTTL         time.Duration
	ActivityTTL     time.Duration
	TagIndexTTL     time.Duration
	ResultTTL       time.Duration
	ResyncTimeout   time.Duration
	UserMemoSize    int
	UserMemoTTL     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SnapshotTTL:     10 * time.Minute,
		FreshnessWindow: 5 * time.Minute,
		TopKTTL:         24 * time.Hour,
		ActivityTTL:     24 * time.Hour,
		TagIndexTTL:     time.Hour,
		ResultTTL:       5 * time.Minute,
		ResyncTimeout:   time.Minute,
		UserMemoSize:    10000,
		UserMemoTTL:     time.Minute,
	}
}

// Layer is the Cache Layer. Safe for concurrent use.
type Layer struct {
	kv     KV
	src    Source
	cfg    Config
	logger zerolog.Logger

	users  *LRU[int64, *models.User]
	resync singleflight.Group
}

// New creates a Layer. Zero config fields take the defaults.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(kv KV, src Source, cfg Config, logger zerolog.Logger) *Layer {
	def := DefaultConfig()
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = def.SnapshotTTL
	}
	if cfg.FreshnessWindow <= 0 || cfg.FreshnessWindow > cfg.SnapshotTTL {
		cfg.FreshnessWindow = cfg.SnapshotTTL / 2
	}
	if cfg.TopKTTL <= 0 {
		cfg.TopKTTL = def.TopKTTL
	}
	if cfg.ActivityTTL <= 0 {
		cfg.ActivityTTL = def.ActivityTTL
	}
	if cfg.TagIndexTTL <= 0 {
		cfg.TagIndexTTL = def.TagIndexTTL
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = def.ResultTTL
	}
	if cfg.ResyncTimeout <= 0 {
		cfg.ResyncTimeout = def.ResyncTimeout
	}
	if cfg.UserMemoTTL <= 0 {
		cfg.UserMemoTTL = def.UserMemoTTL
	}

	return &Layer{
		kv:     kv,
		src:    src,
		cfg:    cfg,
		logger: logger.With().Str("component", "cache").Logger(),
		users:  NewLRU[int64, *models.User](cfg.UserMemoSize, cfg.UserMemoTTL),
	}
}

// Config returns the effective configuration.
func (l *Layer) Config() Config {
	return l.cfg
}

// Sync refreshes both snapshots.
func (l *Layer) Sync(ctx context.Context) error {
	_, uerr := l.SyncUsers(ctx)
	_, terr := l.SyncTeams(ctx)
	return errors.Join(uerr, terr)
}

// SyncUsers replaces the user snapshot with the system-of-record's active
// users. Returns the number of users written.
func (l *Layer) SyncUsers(ctx context.Context) (int, error) {
	users, err := l.syncUsers(ctx, "scheduled")
	return len(users), err
}

func (l *Layer) syncUsers(ctx context.Context, trigger string) ([]*models.User, error) {
	v, err := l.shared(ctx, keyUsers, func(ctx context.Context) (interface{}, error) {
		users, err := l.src.ListActiveUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		fields := make(map[string]string, len(users))
		for _, u := range users {
			data, err := json.Marshal(u)
			if err != nil {
				l.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("skipping unencodable user")
				continue
			}
			fields[strconv.FormatInt(u.ID, 10)] = string(data)
		}
		if err := l.kv.ReplaceHash(ctx, keyUsers, fields, l.cfg.SnapshotTTL); err != nil {
			return users, fmt.Errorf("write user snapshot: %w", err)
		}

		l.users.Clear()
		metrics.RecordSnapshotSync("users", trigger, len(fields))
		l.logger.Info().Int("users", len(fields)).Str("trigger", trigger).Msg("user snapshot synced")
		return users, nil
	})
	users, _ := v.([]*models.User)
	return users, err
}

// SyncTeams replaces the team snapshot. Returns the number of teams written.
func (l *Layer) SyncTeams(ctx context.Context) (int, error) {
	teams, err := l.syncTeams(ctx, "scheduled")
	return len(teams), err
}

func (l *Layer) syncTeams(ctx context.Context, trigger string) ([]*models.Team, error) {
	v, err := l.shared(ctx, keyTeams, func(ctx context.Context) (interface{}, error) {
		teams, err := l.src.ListTeams(ctx)
		if err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}

		fields := make(map[string]string, len(teams))
		for _, t := range teams {
			data, err := json.Marshal(t)
			if err != nil {
				l.logger.Warn().Err(err).Int64("team_id", t.ID).Msg("skipping unencodable team")
				continue
			}
			fields[strconv.FormatInt(t.ID, 10)] = string(data)
		}
		if err := l.kv.ReplaceHash(ctx, keyTeams, fields, l.cfg.SnapshotTTL); err != nil {
			return teams, fmt.Errorf("write team snapshot: %w", err)
		}

		metrics.RecordSnapshotSync("teams", trigger, len(fields))
		l.logger.Info().Int("teams", len(fields)).Str("trigger", trigger).Msg("team snapshot synced")
		return teams, nil
	})
	teams, _ := v.([]*models.Team)
	return teams, err
}

// AllUsers returns the cached user snapshot ordered by ascending id. An empty
// snapshot is resynced before returning; a stale one triggers a background
// resync.
func (l *Layer) AllUsers(ctx context.Context) ([]*models.User, error) {
	raw, err := l.kv.HGetAll(ctx, keyUsers)
	if err != nil {
		l.logger.Warn().Err(err).Msg("user snapshot read failed, reading system-of-record")
	}
	if len(raw) == 0 {
		metrics.RecordCacheLookup("snapshot", false)
		users, serr := l.syncUsers(ctx, "empty")
		if users == nil && serr != nil {
			return nil, serr
		}
		if serr != nil {
			l.logger.Warn().Err(serr).Msg("user snapshot write failed")
		}
		users = slices.Clone(users)
		sortUsers(users)
		return users, nil
	}

	metrics.RecordCacheLookup("snapshot", true)
	l.refreshIfStale(ctx, keyUsers)

	users := make([]*models.User, 0, len(raw))
	for id, data := range raw {
		u := new(models.User)
		if err := json.Unmarshal([]byte(data), u); err != nil {
			l.logger.Warn().Err(err).Str("user_id", id).Msg("skipping malformed snapshot entry")
			continue
		}
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

// ActiveUsers returns the active members of the user snapshot.
func (l *Layer) ActiveUsers(ctx context.Context) ([]*models.User, error) {
	users, err := l.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(users, func(u *models.User) bool { return !u.Active() }), nil
}

// User returns one user. The returned value is shared and must not be
// modified. Returns models.ErrUserNotFound when neither the
// snapshot nor the system-of-record has it.
func (l *Layer) User(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := l.users.Get(id); ok {
		metrics.RecordCacheLookup("user", true)
		return u, nil
	}
	metrics.RecordCacheLookup("user", false)

	data, err := l.kv.HGet(ctx, keyUsers, strconv.FormatInt(id, 10))
	if err == nil {
		u := new(models.User)
		if jerr := json.Unmarshal([]byte(data), u); jerr == nil {
			l.users.Add(id, u)
			return u, nil
		}
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		l.logger.Debug().Err(err).Int64("user_id", id).Msg("snapshot lookup failed")
	}

	u, err := l.src.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.ErrUserNotFound
	}
	l.users.Add(id, u)
	return u, nil
}

// ForgetUser drops a memoized point lookup.
func (l *Layer) ForgetUser(id int64) {
	l.users.Remove(id)
}

// RefreshUser rereads one user from the system-of-record and patches the
// snapshot in place. A user that is gone or inactive is removed from the
// snapshot and reported as models.ErrUserNotFound. Tag index entries are
// dropped since they may name the user under its old tags.
func (l *Layer) RefreshUser(ctx context.Context, id int64) (*models.User, error) {
	l.users.Remove(id)
	field := strconv.FormatInt(id, 10)

	u, err := l.src.GetUserByID(ctx, id)
	if err == nil && u == nil {
		err = models.ErrUserNotFound
	}
	if err == nil && !u.Active() {
		err = models.ErrUserNotFound
	}
	if errors.Is(err, models.ErrUserNotFound) {
		if derr := l.kv.HDel(ctx, keyUsers, field); derr != nil {
			l.logger.Warn().Err(derr).Int64("user_id", id).Msg("snapshot entry removal failed")
		}
	}
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user %d: %w", id, err)
	}
	if _, err := l.kv.HSetIfExists(ctx, keyUsers, field, string(data)); err != nil {
		return nil, fmt.Errorf("patch snapshot: %w", err)
	}
	if _, err := l.kv.DeleteByPattern(ctx, keyTagIndex+"*"); err != nil {
		l.logger.Warn().Err(err).Msg("tag index invalidation failed")
	}

	l.users.Add(id, u)
	return u, nil
}

// AllTeams returns the cached team snapshot ordered by ascending id.
func (l *Layer) AllTeams(ctx context.Context) ([]*models.Team, error) {
	raw, err := l.kv.HGetAll(ctx, keyTeams)
	if err != nil {
		l.logger.Warn().Err(err).Msg("team snapshot read failed, reading system-of-record")
	}
	if len(raw) == 0 {
		teams, serr := l.syncTeams(ctx, "empty")
		if teams == nil && serr != nil {
			return nil, serr
		}
		teams = slices.Clone(teams)
		slices.SortFunc(teams, func(a, b *models.Team) int { return cmp.Compare(a.ID, b.ID) })
		return teams, nil
	}

	l.refreshIfStale(ctx, keyTeams)

	teams := make([]*models.Team, 0, len(raw))
	for id, data := range raw {
		t := new(models.Team)
		if err := json.Unmarshal([]byte(data), t); err != nil {
			l.logger.Warn().Err(err).Str("team_id", id).Msg("skipping malformed snapshot entry")
			continue
		}
		teams = append(teams, t)
	}
	slices.SortFunc(teams, func(a, b *models.Team) int { return cmp.Compare(a.ID, b.ID) })
	return teams, nil
}

// Team returns one team from the snapshot.
func (l *Layer) Team(ctx context.Context, id int64) (*models.Team, error) {
	data, err := l.kv.HGet(ctx, keyTeams, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	t := new(models.Team)
	if err := json.Unmarshal([]byte(data), t); err != nil {
		return nil, fmt.Errorf("decode team %d: %w", id, err)
	}
	return t, nil
}

// refreshIfStale starts a background resync when the snapshot at key is
// older than the freshness window.
// shared runs fn once for all concurrent callers of key. fn is detached from
// the cancellation of whichever caller started it and bounded by
// ResyncTimeout; each caller stops waiting when its own ctx ends.
func (l *Layer) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := l.resync.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(detached, l.cfg.ResyncTimeout)
		defer cancel()
		return fn(ctx)
	})

	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Layer) refreshIfStale(ctx context.Context, key string) {
	ttl, err := l.kv.PTTL(ctx, key)
	if err != nil || ttl < 0 {
		return
	}
	age := l.cfg.SnapshotTTL - ttl
	if age <= l.cfg.FreshnessWindow {
		return
	}

	l.logger.Debug().Str("key", key).Dur("age", age).Msg("snapshot stale, resyncing in background")
	bg := context.WithoutCancel(ctx)
	go func() {
		var err error
		if key == keyUsers {
			_, err = l.syncUsers(bg, "stale")
		} else {
			_, err = l.syncTeams(bg, "stale")
		}
		if err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("background resync failed")
		}
	}()
}

func sortUsers(users []*models.User) {
	slices.SortFunc(users, func(a, b *models.User) int { return cmp.Compare(a.ID, b.ID) })
}
