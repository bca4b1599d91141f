// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/scoring"
)

// Deps are the collaborators of an Engine. Cache and Selector are required.
// A nil Lists assumes lists of DefaultListSize.
type Deps struct {
	Cache    Cache
	Selector Selector
	Lists    ListSizer
	Activity ActivitySource
	Limiter  Limiter
	Feedback FeedbackStore
	Scorer   *scoring.Scorer
}

// Engine produces recommendations. It is safe for concurrent use.
type Engine struct {
	cache    Cache
	selector Selector
	lists    ListSizer
	activity ActivitySource
	limiter  Limiter
	feedback FeedbackStore
	scorer   *scoring.Scorer

	config  Config
	logger  zerolog.Logger
	shuffle func(n int, swap func(i, j int))
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(deps Deps, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Cache == nil || deps.Selector == nil {
		return nil, errors.New("cache and selector are required")
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewScorer(scoring.Config{})
	}
	if deps.Lists == nil {
		deps.Lists = fixedListSize(DefaultListSize)
	}

	return &Engine{
		cache:    deps.Cache,
		selector: deps.Selector,
		lists:    deps.Lists,
		activity: deps.Activity,
		limiter:  deps.Limiter,
		feedback: deps.Feedback,
		scorer:   deps.Scorer,
		config:   cfg,
		logger:   logger.With().Str("component", "recommend").Logger(),
		shuffle:  rand.Shuffle,
	}, nil
}

// Recommend returns one page of recommendations for req.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	req, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	logger := e.createRequestLogger(req)

	if req.UserID != 0 && e.limiter != nil && !e.limiter.AllowRecommend(ctx, req.UserID) {
		logger.Debug().Msg("recommend rate limited")
		return nil, ErrRateLimited
	}

	if page, ok := e.cache.GetResults(ctx, req.cacheKey()); ok {
		logger.Debug().Msg("cache hit")
		metrics.RecordRecommend(string(req.Strategy), SourceCache, time.Since(start))
		return &Response{Page: page, Source: SourceCache}, nil
	}

	results, err := e.score(ctx, req, logger)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("scoring path failed, serving lightweight fallback")
		resp := e.Lightweight(ctx, req)
		metrics.RecordRecommend(string(req.Strategy), SourceFallback, time.Since(start))
		return resp, nil
	}

	page := models.Paginate(results, req.PageNum, req.PageSize)
	if err := e.cache.PutResults(ctx, req.cacheKey(), &page); err != nil {
		logger.Debug().Err(err).Msg("result cache write failed")
	}

	logger.Debug().
		Int("total", page.Total).
		Int("returned", len(page.Records)).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")
	metrics.RecordRecommend(string(req.Strategy), SourceComputed, time.Since(start))

	return &Response{Page: &page, Source: SourceComputed}, nil
}

// prepareRequest applies defaults and validates bounds.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if req.UserID < 0 {
		return req, fmt.Errorf("%w: negative user id", ErrInvalidRequest)
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 100 {
		return req, fmt.Errorf("%w: min_similarity must be in [0, 100]", ErrInvalidRequest)
	}

	req.Strategy = models.ParseStrategy(string(req.Strategy))
	if req.PageNum < 1 {
		req.PageNum = 1
	}
	if req.PageSize < 1 {
		req.PageSize = e.config.DefaultPageSize
	}
	if req.PageSize > e.config.MaxPageSize {
		req.PageSize = e.config.MaxPageSize
	}
	return req, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) createRequestLogger(req Request) zerolog.Logger {
	return e.logger.With().
		Int64("user_id", req.UserID).
		Str("strategy", string(req.Strategy)).
		Int("page", req.PageNum).
		Logger()
}

// score runs the full scoring path and returns every result, sorted.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) score(ctx context.Context, req Request, logger zerolog.Logger) ([]models.RecommendationResult, error) {
	var myTags []string
	if req.UserID != 0 {
		me, err := e.cache.User(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("load caller: %w", err)
		}
		myTags = me.TagList()
	}

	ids := e.selector.Select(ctx, req.UserID, req.PreferredTags, e.config.MaxCandidates)
	metrics.RecommendCandidates.Observe(float64(len(ids)))
	if len(ids) == 0 {
		return []models.RecommendationResult{}, nil
	}

	active, err := e.cache.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active users: %w", err)
	}
	byID := make(map[int64]*models.User, len(active))
	for _, u := range active {
		byID[u.ID] = u
	}

	ranks := e.loadRanks(ctx, req.UserID, logger)
	disliked := e.disliked(ctx, req.UserID)
	matchType := scoring.MatchType(req.Strategy)

	results := make([]models.RecommendationResult, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok || id == req.UserID {
			continue
		}
		if _, skip := disliked[id]; skip {
			continue
		}
		theirTags := u.TagList()
		if len(req.PreferredTags) > 0 && !hasAny(theirTags, req.PreferredTags) {
			continue
		}

		c := scoring.Components{
			Similarity:  e.scorer.Similarity(myTags, theirTags),
			Complement:  e.scorer.Complement(myTags, theirTags),
			Activity:    e.activityOf(ctx, u),
			Precomputed: ranks.score(id),
		}
		score := e.scorer.Score(c, req.Strategy)
		if req.MinSimilarity > 0 && score*100 < float64(req.MinSimilarity) {
			continue
		}

		r := models.NewResult(u)
		r.Score = score
		r.MatchType = matchType
		r.Reasons = scoring.Reasons(c)
		results = append(results, r)
	}

	sortResults(results)
	return results, nil
}

func (e *Engine) activityOf(ctx context.Context, u *models.User) float64 {
	if e.activity != nil {
		if score, err := e.activity.ActivityScore(ctx, u.ID); err == nil {
			return score
		}
	}
	return e.scorer.Activity(u)
}

// DefaultListSize is the precomputed list size assumed without a ListSizer.
const DefaultListSize = 200

type fixedListSize int

func (n fixedListSize) TopKSize(models.ScoreKind) int { return int(n) }

// rankedList maps target id to its 0-indexed position in one precomputed
// list of size k.
type rankedList struct {
	k   int
	pos map[int64]int
}

// rankTable holds the caller's precomputed lists.
type rankTable struct {
	lists []rankedList
}

func (t rankTable) score(id int64) float64 {
	if len(t.lists) == 0 {
		return 0
	}
	ranks := make([]scoring.ListRank, len(t.lists))
	for i, l := range t.lists {
		r, ok := l.pos[id]
		if !ok {
			r = -1
		}
		ranks[i] = scoring.ListRank{Rank: r, K: l.k}
	}
	return scoring.PrecomputedRankOf(ranks)
}

// loadRanks reads the caller's top-K lists once per request, each to the
// size precompute writes. Missing or unreadable lists contribute nothing.
func (e *Engine) loadRanks(ctx context.Context, userID int64, logger zerolog.Logger) rankTable {
	var t rankTable
	if userID == 0 {
		return t
	}
	for _, kind := range models.ScoreKinds {
		k := e.lists.TopKSize(kind)
		if k <= 0 {
			continue
		}
		entries, err := e.cache.TopK(ctx, kind, userID, k)
		if err != nil {
			logger.Debug().Err(err).Str("kind", string(kind)).Msg("precomputed list unavailable")
			continue
		}
		if len(entries) == 0 {
			continue
		}
		pos := make(map[int64]int, len(entries))
		for i, en := range entries {
			pos[en.TargetID] = i
		}
		t.lists = append(t.lists, rankedList{k: k, pos: pos})
	}
	return t
}

// disliked returns the users the caller gave negative feedback on.
func (e *Engine) disliked(ctx context.Context, userID int64) map[int64]struct{} {
	if userID == 0 || e.feedback == nil {
		return nil
	}
	records, err := e.feedback.ListFeedback(ctx, userID)
	if err != nil {
		e.logger.Debug().Err(err).Int64("user_id", userID).Msg("feedback unavailable")
		return nil
	}
	out := make(map[int64]struct{})
	for _, fb := range records {
		switch fb.Feedback {
		case models.FeedbackDislike:
			out[fb.RecommendedUserID] = struct{}{}
		case models.FeedbackLike:
			delete(out, fb.RecommendedUserID)
		}
	}
	return out
}

// Refresh drops the caller's cached pages for strategy and tags.
func (e *Engine) Refresh(ctx context.Context, userID int64, strategy models.Strategy, tags []string) (int64, error) {
	n, err := e.cache.InvalidateResults(ctx, userID, models.ParseStrategy(string(strategy)), tags)
	if err != nil {
		return n, err
	}
	e.logger.Debug().Int64("user_id", userID).Int64("deleted", n).Msg("recommendation cache refreshed")
	return n, nil
}

// RecordFeedback validates and stores fb, then drops the caller's cached
// pages so the feedback shows up on the next request.
func (e *Engine) RecordFeedback(ctx context.Context, fb *models.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if e.feedback == nil {
		return errors.New("feedback store not configured")
	}
	if err := e.feedback.SaveFeedback(ctx, fb); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	metrics.RecordFeedback(fb.Feedback)

	if _, err := e.cache.InvalidateResults(ctx, fb.UserID, "", nil); err != nil {
		e.logger.Debug().Err(err).Int64("user_id", fb.UserID).Msg("result cache invalidation failed")
	}
	e.logger.Info().
		Int64("user_id", fb.UserID).
		Int64("recommended_user_id", fb.RecommendedUserID).
		Int("feedback", fb.Feedback).
		Msg("feedback recorded")
	return nil
}

// sortResults orders by descending score, then ascending user id.
func sortResults(results []models.RecommendationResult) {
	slices.SortStableFunc(results, func(a, b models.RecommendationResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}

func hasAny(tags, wanted []string) bool {
	for _, w := range wanted {
		if slices.Contains(tags, w) {
			return true
		}
	}
	return false
}
