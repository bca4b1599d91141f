// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package candidate narrows the active population to a bounded candidate
// pool for one recommendation request.
//
// The pool comes from the preferred-tag index, or from the most active users
// when no tags are given. Members of the subject's precomputed top lists are
// moved to the front. Select never fails: dependency errors shrink the
// result and are logged.
package candidate

import (
	"cmp"
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/models"
)

// DefaultTopN is how many entries of each precomputed list are consulted.
const DefaultTopN = 100

// Store is the subset of *cache.Layer the selector reads.
type Store interface {
	ActiveUsers(ctx context.Context) ([]*models.User, error)
	UsersWithAnyTag(ctx context.Context, tags []string) ([]int64, error)
	TopK(ctx context.Context, kind models.ScoreKind, subjectID int64, n int) ([]models.ScoreEntry, error)
}

// ActivitySource returns a user's activity score. *precompute.Engine
// satisfies it.
type ActivitySource interface {
	ActivityScore(ctx context.Context, userID int64) (float64, error)
}

// Selector is the Candidate Selector.
type Selector struct {
	store    Store
	activity ActivitySource
	topN     int
	logger   zerolog.Logger
}

// New creates a Selector. topN <= 0 uses DefaultTopN.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(store Store, activity ActivitySource, topN int, logger zerolog.Logger) *Selector {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Selector{
		store:    store,
		activity: activity,
		topN:     topN,
		logger:   logger.With().Str("component", "candidate").Logger(),
	}
}

// Select returns at most limit candidate ids for subjectID, excluding the
// subject. subjectID 0 is an anonymous caller with no precomputed lists.
func (s *Selector) Select(ctx context.Context, subjectID int64, preferredTags []string, limit int) []int64 {
	if limit <= 0 {
		return nil
	}

	var pool []int64
	if len(preferredTags) == 0 {
		pool = s.mostActive(ctx, subjectID, 2*limit)
	} else {
		pool = s.tagMatched(ctx, subjectID, preferredTags, limit)
	}
	if len(pool) == 0 {
		return nil
	}

	return prioritize(pool, s.topIDs(ctx, subjectID), limit)
}

// mostActive returns up to n active users by descending activity, ties by
// ascending id.
func (s *Selector) mostActive(ctx context.Context, subjectID int64, n int) []int64 {
	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("active users unavailable, no candidates")
		return nil
	}

	type scored struct {
		id    int64
		score float64
	}
	ranked := make([]scored, 0, len(users))
	for _, u := range users {
		if u.ID == subjectID {
			continue
		}
		score, err := s.activity.ActivityScore(ctx, u.ID)
		if err != nil {
			score = 0
		}
		ranked = append(ranked, scored{id: u.ID, score: score})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]int64, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.id)
	}
	return out
}

// tagMatched returns users holding any preferred tag, widening to the full
// active population when fewer than limit match.
func (s *Selector) tagMatched(ctx context.Context, subjectID int64, tags []string, limit int) []int64 {
	matched, err := s.store.UsersWithAnyTag(ctx, tags)
	if err != nil {
		s.logger.Warn().Err(err).Strs("tags", tags).Msg("tag index unavailable, widening pool")
	}
	matched = slices.DeleteFunc(matched, func(id int64) bool { return id == subjectID })
	if len(matched) >= limit {
		return matched
	}

	users, err := s.store.ActiveUsers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("active users unavailable, using tag matches only")
		return matched
	}
	all := make([]int64, 0, len(users))
	for _, u := range users {
		if u.ID != subjectID {
			all = append(all, u.ID)
		}
	}
	return all
}

// topIDs is the union of the subject's top similarity and complement ids.
func (s *Selector) topIDs(ctx context.Context, subjectID int64) map[int64]struct{} {
	if subjectID == 0 {
		return nil
	}
	top := make(map[int64]struct{}, 2*s.topN)
	for _, kind := range models.ScoreKinds {
		entries, err := s.store.TopK(ctx, kind, subjectID, s.topN)
		if err != nil {
			s.logger.Debug().Err(err).Int64("user_id", subjectID).Str("kind", string(kind)).Msg("top list unavailable")
			continue
		}
		for _, e := range entries {
			top[e.TargetID] = struct{}{}
		}
	}
	return top
}

// prioritize puts pool members found in top first, then fills with the
// rest, both in pool order, up to limit.
func prioritize(pool []int64, top map[int64]struct{}, limit int) []int64 {
	out := make([]int64, 0, min(limit, len(pool)))
	seen := make(map[int64]struct{}, len(pool))

	for _, id := range pool {
		if len(out) == limit {
			return out
		}
		if _, ok := top[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range pool {
		if len(out) == limit {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
