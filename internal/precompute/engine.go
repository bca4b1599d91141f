// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package precompute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/scoring"
)

// ErrAlreadyRunning is returned when a run of the same kind is in progress
// on this instance.
var ErrAlreadyRunning = errors.New("precompute already running")

// Store is the subset of *cache.Layer the engine reads and writes.
type Store interface {
	ActiveUsers(ctx context.Context) ([]*models.User, error)
	User(ctx context.Context, id int64) (*models.User, error)
	WriteTopK(ctx context.Context, kind models.ScoreKind, subjectID int64, entries []models.ScoreEntry) error
	TopK(ctx context.Context, kind models.ScoreKind, subjectID int64, n int) ([]models.ScoreEntry, error)
	HasTopK(ctx context.Context, kind models.ScoreKind, subjectID int64) (bool, error)
	ActivityScore(ctx context.Context, userID int64) (float64, bool, error)
	SetActivityScore(ctx context.Context, userID int64, score float64) error
}

var _ Store = (*cache.Layer)(nil)

// Config controls list sizes and parallelism.
type Config struct {
	SimilarityTopK int           `koanf:"similarity_top_k"`
	ComplementTopK int           `koanf:"complement_top_k"`
	Workers        int           `koanf:"workers"`
	ProgressEvery  int           `koanf:"progress_every"`
	ActivityWindow time.Duration `koanf:"activity_window"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityTopK: 200,
		ComplementTopK: 200,
		Workers:        8,
		ProgressEvery:  100,
		ActivityWindow: 30 * 24 * time.Hour,
	}
}

// Engine is the Precompute Engine. Safe for concurrent use.
type Engine struct {
	store  Store
	scorer *scoring.Scorer
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	status map[string]*Status
}

// New creates an Engine. Zero config fields take the defaults.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(store Store, scorer *scoring.Scorer, cfg Config, logger zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.SimilarityTopK <= 0 {
		cfg.SimilarityTopK = def.SimilarityTopK
	}
	if cfg.ComplementTopK <= 0 {
		cfg.ComplementTopK = def.ComplementTopK
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = def.ProgressEvery
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = def.ActivityWindow
	}
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.Config{})
	}

	status := make(map[string]*Status, len(models.ScoreKinds)+1)
	for _, k := range models.ScoreKinds {
		status[string(k)] = &Status{Kind: string(k), State: StateIdle}
	}
	status[jobActivity] = &Status{Kind: jobActivity, State: StateIdle}

	return &Engine{
		store:  store,
		scorer: scorer,
		cfg:    cfg,
		logger: logger.With().Str("component", "precompute").Logger(),
		status: status,
	}
}

// TopKSize returns K for kind.
func (e *Engine) TopKSize(kind models.ScoreKind) int {
	if kind == models.KindComplement {
		return e.cfg.ComplementTopK
	}
	return e.cfg.SimilarityTopK
}

// Status returns a copy of kind's run state.
func (e *Engine) Status(kind models.ScoreKind) Status {
	return e.statusOf(string(kind))
}

// ActivityStatus returns a copy of the activity warm run state.
func (e *Engine) ActivityStatus() Status {
	return e.statusOf(jobActivity)
}

// Statuses returns every run state: similarity, complement, then activity.
func (e *Engine) Statuses() []Status {
	out := make([]Status, 0, len(models.ScoreKinds)+1)
	for _, k := range models.ScoreKinds {
		out = append(out, e.statusOf(string(k)))
	}
	return append(out, e.statusOf(jobActivity))
}

func (e *Engine) statusOf(name string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.status[name]
	if !ok {
		return Status{Kind: name, State: StateIdle}
	}
	cp := *st
	if st.Last != nil {
		last := *st.Last
		cp.Last = &last
	}
	return cp
}

// begin moves name to running, failing if it already is.
func (e *Engine) begin(name string, mode Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.status[name]
	if st.State == StateRunning {
		return ErrAlreadyRunning
	}
	st.State = StateRunning
	st.Mode = mode
	st.StartedAt = time.Now()
	st.FinishedAt = time.Time{}
	metrics.SetPrecomputeRunning(name, true)
	return nil
}

func (e *Engine) finish(name string, res Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.status[name]
	st.FinishedAt = time.Now()
	st.Last = &res
	if err != nil {
		st.State = StateFailed
		st.LastError = err.Error()
	} else {
		st.State = StateCompleted
		st.LastError = ""
	}
	metrics.SetPrecomputeRunning(name, false)
	metrics.RecordPrecomputeRun(name, string(res.Mode), res.Duration, res.Processed, res.Skipped, res.Failed, err)
}

// RunSimilarity runs the similarity precompute.
func (e *Engine) RunSimilarity(ctx context.Context, force bool) (Result, error) {
	return e.Run(ctx, models.KindSimilarity, force)
}

// RunComplement runs the complement precompute.
func (e *Engine) RunComplement(ctx context.Context, force bool) (Result, error) {
	return e.Run(ctx, models.KindComplement, force)
}

// RunAll runs similarity then complement. The second kind still runs when
// the first fails, unless ctx is done.
func (e *Engine) RunAll(ctx context.Context, force bool) ([]Result, error) {
	results := make([]Result, 0, len(models.ScoreKinds))
	var errs []error
	for _, k := range models.ScoreKinds {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := e.Run(ctx, k, force)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return results, errors.Join(errs...)
}

// Run computes kind's top-K list for every active subject. With force
// false, subjects holding a live list are skipped.
func (e *Engine) Run(ctx context.Context, kind models.ScoreKind, force bool) (res Result, err error) {
	mode := modeOf(force)
	if err := e.begin(string(kind), mode); err != nil {
		return Result{Kind: string(kind), Mode: mode}, err
	}

	start := time.Now()
	res = Result{Kind: string(kind), Mode: mode}
	defer func() {
		res.Duration = time.Since(start)
		e.finish(string(kind), res, err)
	}()

	logger := e.logger.With().Str("kind", string(kind)).Str("mode", string(mode)).Logger()

	users, err := e.store.ActiveUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("load active users: %w", err)
	}
	logger.Info().Int("subjects", len(users)).Msg("precompute started")

	pop := newPopulation(users)

	var processed, skipped, failed, done atomic.Int64
	total := len(pop)

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Workers)

	for i := range pop {
		if ctx.Err() != nil {
			break
		}
		subject := &pop[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			switch outcome := e.processSubject(ctx, kind, force, subject, pop); outcome {
			case outcomeProcessed:
				processed.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			if n := done.Add(1); n%int64(e.cfg.ProgressEvery) == 0 {
				logger.Info().Int64("done", n).Int("total", total).Msg("precompute progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Processed = int(processed.Load())
	res.Skipped = int(skipped.Load())
	res.Failed = int(failed.Load())

	if cerr := ctx.Err(); cerr != nil {
		logger.Warn().Int("processed", res.Processed).Msg("precompute cancelled")
		return res, cerr
	}

	logger.Info().
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("precompute completed")
	return res, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (e *Engine) processSubject(ctx context.Context, kind models.ScoreKind, force bool, subject *member, pop []member) outcome {
	if len(subject.tags) == 0 {
		// Tagless subjects hold no list. A full run clears one left from
		// before the tags were removed, as RecomputeUser does.
		if force {
			if err := e.store.WriteTopK(ctx, kind, subject.id, nil); err != nil {
				e.logger.Warn().Err(err).Int64("user_id", subject.id).Str("kind", string(kind)).Msg("stale list removal failed")
				return outcomeFailed
			}
		}
		return outcomeSkipped
	}
	if !force {
		live, err := e.store.HasTopK(ctx, kind, subject.id)
		if err != nil {
			e.logger.Warn().Err(err).Int64("user_id", subject.id).Str("kind", string(kind)).Msg("top-k probe failed")
			return outcomeFailed
		}
		if live {
			return outcomeSkipped
		}
	}

	if err := e.store.WriteTopK(ctx, kind, subject.id, e.compute(kind, subject, pop)); err != nil {
		e.logger.Warn().Err(err).Int64("user_id", subject.id).Str("kind", string(kind)).Msg("subject precompute failed")
		return outcomeFailed
	}
	return outcomeProcessed
}

// compute scores subject against pop and returns the truncated ranking.
func (e *Engine) compute(kind models.ScoreKind, subject *member, pop []member) []models.ScoreEntry {
	top := cache.NewTopKHeap(e.TopKSize(kind))
	for i := range pop {
		other := &pop[i]
		if other.id == subject.id || len(other.tags) == 0 {
			continue
		}
		score := e.scorer.Pair(kind, subject.tags, other.tags)
		if score <= 0 {
			continue
		}
		top.Offer(models.ScoreEntry{
			SubjectID: subject.id,
			TargetID:  other.id,
			Score:     score,
			Kind:      kind,
		})
	}
	return top.Sorted()
}

// RecomputeUser rebuilds one subject's list for kind, regardless of any
// live list. Returns models.ErrUserNotFound when the subject is unknown.
func (e *Engine) RecomputeUser(ctx context.Context, kind models.ScoreKind, userID int64) error {
	u, err := e.store.User(ctx, userID)
	if err != nil {
		return err
	}
	users, err := e.store.ActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	subject := newMember(u)
	entries := e.compute(kind, &subject, newPopulation(users))
	if err := e.store.WriteTopK(ctx, kind, userID, entries); err != nil {
		return fmt.Errorf("write %s list: %w", kind, err)
	}

	e.logger.Debug().Int64("user_id", userID).Str("kind", string(kind)).Int("entries", len(entries)).Msg("user recomputed")
	return nil
}

// RunActivity warms the activity score cache. Users created within the
// activity window are always refreshed; older users are only filled on a
// miss.
func (e *Engine) RunActivity(ctx context.Context) (res Result, err error) {
	if err := e.begin(jobActivity, ModeFull); err != nil {
		return Result{Kind: jobActivity, Mode: ModeFull}, err
	}

	start := time.Now()
	res = Result{Kind: jobActivity, Mode: ModeFull}
	defer func() {
		res.Duration = time.Since(start)
		e.finish(jobActivity, res, err)
	}()

	users, err := e.store.ActiveUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("load active users: %w", err)
	}

	cutoff := e.scorer.Now().Add(-e.cfg.ActivityWindow)
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !u.CreatedAt.After(cutoff) {
			if _, ok, err := e.store.ActivityScore(ctx, u.ID); err == nil && ok {
				res.Skipped++
				continue
			}
		}
		if err := e.store.SetActivityScore(ctx, u.ID, e.scorer.Activity(u)); err != nil {
			e.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("activity score write failed")
			res.Failed++
			continue
		}
		res.Processed++
	}

	e.logger.Info().
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("activity scores warmed")
	return res, nil
}

// TopSimilar returns up to n target ids from the subject's similarity list.
func (e *Engine) TopSimilar(ctx context.Context, userID int64, n int) ([]int64, error) {
	return e.topIDs(ctx, models.KindSimilarity, userID, n)
}

// TopComplement returns up to n target ids from the subject's complement list.
func (e *Engine) TopComplement(ctx context.Context, userID int64, n int) ([]int64, error) {
	return e.topIDs(ctx, models.KindComplement, userID, n)
}

func (e *Engine) topIDs(ctx context.Context, kind models.ScoreKind, userID int64, n int) ([]int64, error) {
	entries, err := e.store.TopK(ctx, kind, userID, n)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(entries))
	for i, en := range entries {
		ids[i] = en.TargetID
	}
	return ids, nil
}

// ActivityScore returns the cached activity score, computing and caching it
// on a miss.
func (e *Engine) ActivityScore(ctx context.Context, userID int64) (float64, error) {
	if score, ok, err := e.store.ActivityScore(ctx, userID); err == nil && ok {
		return score, nil
	}

	u, err := e.store.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := e.scorer.Activity(u)
	if err := e.store.SetActivityScore(ctx, userID, score); err != nil {
		e.logger.Debug().Err(err).Int64("user_id", userID).Msg("activity score cache write failed")
	}
	return score, nil
}

// member is a user with pre-parsed tags.
type member struct {
	id   int64
	tags []string
}

func newMember(u *models.User) member {
	return member{id: u.ID, tags: u.TagList()}
}

func newPopulation(users []*models.User) []member {
	pop := make([]member, 0, len(users))
	for _, u := range users {
		if u == nil || !u.Active() {
			continue
		}
		pop = append(pop, newMember(u))
	}
	return pop
}
