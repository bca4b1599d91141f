// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
)

// ResultPage is a cached page of recommendations.
type ResultPage = models.Page[models.RecommendationResult]

// GetResults returns a cached page. ok is false on a miss or an unreadable
// entry.
func (l *Layer) GetResults(ctx context.Context, key ResultKey) (*ResultPage, bool) {
	data, err := l.kv.Get(ctx, key.String())
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			l.logger.Debug().Err(err).Str("key", key.String()).Msg("result cache read failed")
		}
		metrics.RecordCacheLookup("results", false)
		return nil, false
	}

	page := new(ResultPage)
	if err := json.Unmarshal([]byte(data), page); err != nil {
		metrics.RecordCacheLookup("results", false)
		return nil, false
	}
	metrics.RecordCacheLookup("results", true)
	return page, true
}

// PutResults caches a page for the result TTL.
func (l *Layer) PutResults(ctx context.Context, key ResultKey, page *ResultPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode result page: %w", err)
	}
	return l.kv.Set(ctx, key.String(), string(data), l.cfg.ResultTTL)
}

// InvalidateResults deletes cached pages for a subject. An empty strategy
// clears every strategy; empty tags clear every tag variant of the strategy.
func (l *Layer) InvalidateResults(ctx context.Context, userID int64, strategy models.Strategy, tags []string) (int64, error) {
	n, err := l.kv.DeleteByPattern(ctx, resultPattern(userID, strategy, tags))
	if err != nil {
		return n, fmt.Errorf("invalidate results for %d: %w", userID, err)
	}
	return n, nil
}

// ClearResults deletes every cached result page.
func (l *Layer) ClearResults(ctx context.Context) (int64, error) {
	n, err := l.kv.DeleteByPattern(ctx, keyResults+"*")
	if err != nil {
		return n, fmt.Errorf("clear results: %w", err)
	}
	return n, nil
}

// cleanupPatterns are the derived keys dropped by Cleanup.
var cleanupPatterns = []string{
	keyResults + "*",
	string(models.KindSimilarity) + ":*",
	string(models.KindComplement) + ":*",
	keyUserSearch + "*",
	keyUserCurrent + "*",
}

// Cleanup deletes all derived data: result pages, top-K lists and the
// user search/current caches. Returns the number of deleted keys.
func (l *Layer) Cleanup(ctx context.Context) (int64, error) {
	var (
		total int64
		errs  []error
	)
	for _, p := range cleanupPatterns {
		n, err := l.kv.DeleteByPattern(ctx, p)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %q: %w", p, err))
		}
	}
	l.users.Clear()
	l.logger.Info().Int64("deleted", total).Msg("cache cleanup finished")
	return total, errors.Join(errs...)
}
