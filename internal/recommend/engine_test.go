// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/candidate"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/ratelimit"
	"github.com/tomtom215/affinity/internal/scoring"
	"github.com/tomtom215/affinity/internal/testinfra"
)

type testEnv struct {
	engine *Engine
	layer  *cache.Layer
	pre    *precompute.Engine
	src    *testinfra.StaticSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv, _ := testinfra.NewRedis(t)
	src := testinfra.NewStaticSource(testinfra.SampleUsers()...)
	layer := cache.New(kv, src, cache.Config{}, zerolog.Nop())
	scorer := scoring.NewScorer(scoring.Config{Now: func() time.Time { return testinfra.Fixed }})
	pre := precompute.New(layer, scorer, precompute.Config{}, zerolog.Nop())

	eng, err := NewEngine(Deps{
		Cache:    layer,
		Selector: candidate.New(layer, pre, 0, zerolog.Nop()),
		Lists:    pre,
		Activity: pre,
		Limiter:  ratelimit.New(kv, ratelimit.Config{}, zerolog.Nop()),
		Feedback: src,
		Scorer:   scorer,
	}, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return &testEnv{engine: eng, layer: layer, pre: pre, src: src}
}

func resultIDs(resp *Response) []int64 {
	ids := make([]int64, len(resp.Page.Records))
	for i, r := range resp.Page.Records {
		ids[i] = r.UserID
	}
	return ids
}

func TestRecommend_ComputedThenCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := Request{UserID: 1, PageNum: 1, PageSize: 10}

	resp, err := env.engine.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Source != SourceComputed {
		t.Errorf("Source = %s, want computed", resp.Source)
	}
	// 6: sim .5 comp .5; 2: sim 1/3 comp .35; 3: comp .35; 4: activity only
	if got, want := resultIDs(resp), []int64{6, 2, 3, 4}; !slices.Equal(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if got := resp.Page.Records[0]; got.MatchType != scoring.MatchComprehensive || len(got.Reasons) == 0 {
		t.Errorf("first result = %+v", got)
	}
	if want := 0.404; abs(resp.Page.Records[0].Score-want) > 1e-9 {
		t.Errorf("score(6) = %v, want %v", resp.Page.Records[0].Score, want)
	}

	again, err := env.engine.Recommend(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if again.Source != SourceCache {
		t.Errorf("second Source = %s, want cache", again.Source)
	}
	if !slices.Equal(resultIDs(again), resultIDs(resp)) {
		t.Errorf("cached ids = %v, want %v", resultIDs(again), resultIDs(resp))
	}
}

func TestRecommend_PrecomputedRanks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.pre.RunAll(ctx, true); err != nil {
		t.Fatal(err)
	}

	resp, err := env.engine.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	top := resp.Page.Records[0]
	if top.UserID != 6 || !slices.Contains(top.Reasons, scoring.ReasonPrecomputed) {
		t.Errorf("top = %+v, want user 6 with precomputed reason", top)
	}
	// .404 plus .15 for rank 0 in both lists
	if want := 0.554; abs(top.Score-want) > 1e-9 {
		t.Errorf("score(6) = %v, want %v", top.Score, want)
	}
}

type listSizes map[models.ScoreKind]int

func (l listSizes) TopKSize(kind models.ScoreKind) int { return l[kind] }

func TestLoadRanks_UsesListSize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	similar := make([]models.ScoreEntry, 0, 50)
	for i := range 50 {
		similar = append(similar, models.ScoreEntry{TargetID: int64(100 + i), Score: 1 - float64(i)/100})
	}
	if err := env.layer.WriteTopK(ctx, models.KindSimilarity, 1, similar); err != nil {
		t.Fatal(err)
	}
	complement := []models.ScoreEntry{{TargetID: 200, Score: 0.9}, {TargetID: 149, Score: 0.5}}
	if err := env.layer.WriteTopK(ctx, models.KindComplement, 1, complement); err != nil {
		t.Fatal(err)
	}

	env.engine.lists = listSizes{models.KindSimilarity: 50, models.KindComplement: 4}
	ranks := env.engine.loadRanks(ctx, 1, zerolog.Nop())

	tests := []struct {
		id   int64
		want float64
	}{
		{100, 1.0},
		{110, 40.0 / 50},
		{149, (1.0/50 + 3.0/4) / 2},
		{200, 1.0},
		{999, 0},
	}
	for _, tt := range tests {
		if got := ranks.score(tt.id); abs(got-tt.want) > 1e-9 {
			t.Errorf("score(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}

	if got := env.engine.loadRanks(ctx, 0, zerolog.Nop()).score(100); got != 0 {
		t.Errorf("anonymous score = %v, want 0", got)
	}
}

func TestRecommend_Filters(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []int64
	}{
		{"preferred tags", Request{UserID: 1, PreferredTags: []string{"Go"}}, []int64{2, 3}},
		{"min similarity", Request{UserID: 1, MinSimilarity: 30}, []int64{6, 2}},
		{"second page", Request{UserID: 1, PageNum: 2, PageSize: 2}, []int64{3, 4}},
		{"anonymous", Request{}, []int64{1, 2, 3, 6, 4}},
		{"complement strategy", Request{UserID: 1, Strategy: models.StrategyComplement}, []int64{6, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp, err := env.engine.Recommend(context.Background(), tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if got := resultIDs(resp); !slices.Equal(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecommend_Paging(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.engine.Recommend(context.Background(), Request{UserID: 1, PageNum: 2, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	p := resp.Page
	if p.Total != 4 || p.Pages != 2 || p.PageNum != 2 || p.PageSize != 2 {
		t.Errorf("page = %+v", p)
	}
}

func TestRecommend_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Recommend(ctx, Request{UserID: 42}); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("unknown caller error = %v, want ErrUserNotFound", err)
	}
	if _, err := env.engine.Recommend(ctx, Request{UserID: 1, MinSimilarity: 101}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("min similarity 101 error = %v, want ErrInvalidRequest", err)
	}
}

func TestRecommend_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := range 3 {
		if _, err := env.engine.Recommend(ctx, Request{UserID: 2, PageNum: i + 1}); err != nil {
			t.Fatalf("call %d error = %v", i+1, err)
		}
	}
	if _, err := env.engine.Recommend(ctx, Request{UserID: 2}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("fourth call error = %v, want ErrRateLimited", err)
	}

	// Anonymous callers are not limited per user.
	for range 5 {
		if _, err := env.engine.Recommend(ctx, Request{}); err != nil {
			t.Fatalf("anonymous call error = %v", err)
		}
	}
}

// flakyCache fails ActiveUsers a fixed number of times.
type flakyCache struct {
	Cache
	failures atomic.Int32
}

func (f *flakyCache) ActiveUsers(ctx context.Context) ([]*models.User, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("snapshot unavailable")
	}
	return f.Cache.ActiveUsers(ctx)
}

func TestRecommend_FallsBackToLightweight(t *testing.T) {
	env := newTestEnv(t)
	flaky := &flakyCache{Cache: env.layer}
	flaky.failures.Store(1)
	env.engine.cache = flaky

	resp, err := env.engine.Recommend(context.Background(), Request{UserID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v, want fallback", err)
	}
	if resp.Source != SourceFallback {
		t.Errorf("Source = %s, want fallback", resp.Source)
	}
	// recency .4 plus .3 for any tag; dave has none
	if got, want := resultIDs(resp), []int64{2, 3, 6, 4}; !slices.Equal(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if resp.Page.Records[0].MatchType != scoring.MatchActive {
		t.Errorf("MatchType = %s, want active", resp.Page.Records[0].MatchType)
	}
}

func TestFallbacks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	random := env.engine.Random(ctx, Request{UserID: 1})
	if random.Page.Total != 4 || slices.Contains(resultIDs(random), 1) {
		t.Errorf("Random() = %v", resultIDs(random))
	}
	for _, r := range random.Page.Records {
		if r.Score != 0.5 || r.MatchType != scoring.MatchRandom {
			t.Errorf("random result = %+v", r)
		}
	}

	byTags := env.engine.ByTags(ctx, Request{UserID: 2, PreferredTags: []string{"React"}})
	if got, want := resultIDs(byTags), []int64{1, 6, 3, 4}; !slices.Equal(got, want) {
		t.Errorf("ByTags() ids = %v, want %v", got, want)
	}
	for i, r := range byTags.Page.Records {
		isTag := r.MatchType == scoring.MatchTag
		if (i < 2) != isTag {
			t.Errorf("result %d match type = %s", i, r.MatchType)
		}
	}

	flaky := &flakyCache{Cache: env.layer}
	flaky.failures.Store(10)
	env.engine.cache = flaky
	if resp := env.engine.Lightweight(ctx, Request{}); resp.Page.Total != 0 {
		t.Errorf("Lightweight() without snapshot total = %d, want 0", resp.Page.Total)
	}
}

func TestRecordFeedback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Recommend(ctx, Request{UserID: 1}); err != nil {
		t.Fatal(err)
	}

	err := env.engine.RecordFeedback(ctx, &models.Feedback{UserID: 1, RecommendedUserID: 6, Feedback: models.FeedbackDislike})
	if err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	resp, err := env.engine.Recommend(ctx, Request{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != SourceComputed {
		t.Errorf("Source = %s, want computed after invalidation", resp.Source)
	}
	if slices.Contains(resultIDs(resp), 6) {
		t.Errorf("ids = %v, disliked user 6 still present", resultIDs(resp))
	}

	bad := &models.Feedback{UserID: 1, RecommendedUserID: 2, Feedback: 3}
	if err := env.engine.RecordFeedback(ctx, bad); !errors.Is(err, models.ErrInvalidFeedback) {
		t.Errorf("RecordFeedback(3) error = %v, want ErrInvalidFeedback", err)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.Recommend(ctx, Request{UserID: 1, Strategy: models.StrategySimilar}); err != nil {
		t.Fatal(err)
	}
	n, err := env.engine.Refresh(ctx, 1, models.StrategySimilar, nil)
	if err != nil || n != 1 {
		t.Errorf("Refresh() = %d, %v; want 1 key", n, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero candidates", func(c *Config) { c.MaxCandidates = 0 }, true},
		{"zero candidate top n", func(c *Config) { c.CandidateTopN = 0 }, true},
		{"page size above max", func(c *Config) { c.DefaultPageSize = 500 }, true},
		{"random score above one", func(c *Config) { c.Fallback.RandomScore = 1.5 }, true},
		{"negative pad", func(c *Config) { c.Fallback.TagPadTo = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
