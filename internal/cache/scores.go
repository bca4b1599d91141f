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

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
)

// WriteTopK replaces the subject's list for kind with entries and sets the
// top-K TTL. entries are expected to be truncated already.
func (l *Layer) WriteTopK(ctx context.Context, kind models.ScoreKind, subjectID int64, entries []models.ScoreEntry) error {
	members := make([]kvstore.ScoredMember, len(entries))
	for i, e := range entries {
		members[i] = kvstore.ScoredMember{Member: kvstore.FormatID(e.TargetID), Score: e.Score}
	}
	if err := l.kv.ReplaceZSet(ctx, topKKey(kind, subjectID), members, l.cfg.TopKTTL); err != nil {
		return fmt.Errorf("write %s list for %d: %w", kind, subjectID, err)
	}
	return nil
}

// TopK reads up to n entries of the subject's list for kind, ordered by
// descending score with ties broken by ascending target id. A missing list
// yields an empty slice.
func (l *Layer) TopK(ctx context.Context, kind models.ScoreKind, subjectID int64, n int) ([]models.ScoreEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	key := topKKey(kind, subjectID)
	members, err := l.kv.ZRevRangeWithScores(ctx, key, 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("read %s list for %d: %w", kind, subjectID, err)
	}
	metrics.RecordCacheLookup("topk", len(members) > 0)

	// Redis orders equal scores by member bytes, so a tie group cut at n may
	// hold the wrong ids. Read the whole group at the cut score instead.
	if len(members) == n {
		cut := members[n-1].Score
		group, err := l.kv.ZRangeByScoreWithScores(ctx, key, cut, cut)
		if err != nil {
			return nil, fmt.Errorf("read %s tie group for %d: %w", kind, subjectID, err)
		}
		if len(group) > 1 {
			members = slices.DeleteFunc(members, func(m kvstore.ScoredMember) bool { return m.Score == cut })
			members = append(members, group...)
		}
	}

	entries := make([]models.ScoreEntry, 0, len(members))
	for _, m := range members {
		id, err := kvstore.ParseID(m.Member)
		if err != nil {
			continue
		}
		entries = append(entries, models.ScoreEntry{
			SubjectID: subjectID,
			TargetID:  id,
			Score:     m.Score,
			Kind:      kind,
		})
	}
	SortEntries(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// HasTopK reports whether the subject holds a live list for kind.
func (l *Layer) HasTopK(ctx context.Context, kind models.ScoreKind, subjectID int64) (bool, error) {
	return l.kv.Exists(ctx, topKKey(kind, subjectID))
}

// DeleteTopK drops the subject's lists for every kind.
func (l *Layer) DeleteTopK(ctx context.Context, subjectID int64) error {
	keys := make([]string, 0, len(models.ScoreKinds))
	for _, k := range models.ScoreKinds {
		keys = append(keys, topKKey(k, subjectID))
	}
	_, err := l.kv.Del(ctx, keys...)
	return err
}

// SortEntries orders entries by descending score, then ascending target id.
func SortEntries(entries []models.ScoreEntry) {
	slices.SortStableFunc(entries, func(a, b models.ScoreEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.TargetID, b.TargetID)
	})
}

// ActivityScore returns the cached activity score. ok is false on a miss.
func (l *Layer) ActivityScore(ctx context.Context, userID int64) (score float64, ok bool, err error) {
	v, err := l.kv.Get(ctx, activityKey(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		metrics.RecordCacheLookup("activity", false)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	score, err = strconv.ParseFloat(v, 64)
	if err != nil {
		metrics.RecordCacheLookup("activity", false)
		return 0, false, nil
	}
	metrics.RecordCacheLookup("activity", true)
	return score, true, nil
}

// SetActivityScore caches a user's activity score.
func (l *Layer) SetActivityScore(ctx context.Context, userID int64, score float64) error {
	return l.kv.Set(ctx, activityKey(userID), strconv.FormatFloat(score, 'f', -1, 64), l.cfg.ActivityTTL)
}

// DeleteActivityScore drops a user's cached activity score.
func (l *Layer) DeleteActivityScore(ctx context.Context, userID int64) error {
	_, err := l.kv.Del(ctx, activityKey(userID))
	return err
}

// UsersWithAnyTag returns the ids of active users holding at least one of
// tags, ascending. The result is memoized per distinct tag set and rebuilt
// from the snapshot once it expires.
func (l *Layer) UsersWithAnyTag(ctx context.Context, tags []string) ([]int64, error) {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return nil, nil
	}
	key := tagIndexKey(tags)

	if data, err := l.kv.Get(ctx, key); err == nil {
		var ids []int64
		if jerr := json.Unmarshal([]byte(data), &ids); jerr == nil {
			metrics.RecordCacheLookup("tag_index", true)
			return ids, nil
		}
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		l.logger.Debug().Err(err).Strs("tags", tags).Msg("tag index read failed")
	}
	metrics.RecordCacheLookup("tag_index", false)

	users, err := l.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	ids := make([]int64, 0)
	for _, u := range users {
		if slices.ContainsFunc(u.TagList(), func(t string) bool {
			_, ok := want[t]
			return ok
		}) {
			ids = append(ids, u.ID)
		}
	}

	if data, err := json.Marshal(ids); err == nil {
		if err := l.kv.Set(ctx, key, string(data), l.cfg.TagIndexTTL); err != nil {
			l.logger.Debug().Err(err).Strs("tags", tags).Msg("tag index write failed")
		}
	}
	return ids, nil
}
