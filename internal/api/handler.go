// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/events"
	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/recommend"
)

// Recommender serves recommendations and feedback. *recommend.Engine
// satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Refresh(ctx context.Context, userID int64, strategy models.Strategy, tags []string) (int64, error)
	RecordFeedback(ctx context.Context, fb *models.Feedback) error
}

// JobRunner runs batch jobs on demand. *jobs.Set satisfies it.
type JobRunner interface {
	Trigger(ctx context.Context, name string) (string, error)
	Names() []string
}

// Precomputer reports run state and rebuilds single subjects.
// *precompute.Engine satisfies it.
type Precomputer interface {
	Statuses() []precompute.Status
	RecomputeUser(ctx context.Context, kind models.ScoreKind, userID int64) error
}

// ResultCache clears cached recommendation pages. *cache.Layer satisfies it.
type ResultCache interface {
	ClearResults(ctx context.Context) (int64, error)
}

// TagsPublisher announces tag changes to every instance. *events.Publisher
// satisfies it.
type TagsPublisher interface {
	PublishTagsUpdated(ctx context.Context, userID int64, tags []string) error
}

// Pinger checks a dependency. *kvstore.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ Recommender   = (*recommend.Engine)(nil)
	_ JobRunner     = (*jobs.Set)(nil)
	_ Precomputer   = (*precompute.Engine)(nil)
	_ TagsPublisher = (*events.Publisher)(nil)
)

// Deps are the collaborators of a Handler.
type Deps struct {
	Recommender Recommender
	Jobs        JobRunner
	Precompute  Precomputer
	Results     ResultCache

	// Events is nil when the event bus is disabled.
	Events TagsPublisher

	// Checks are pinged by /healthz, keyed by name.
	Checks map[string]Pinger
}

// Handler implements the HTTP endpoints.
type Handler struct {
	recommender Recommender
	jobs        JobRunner
	precompute  Precomputer
	results     ResultCache
	events      TagsPublisher
	checks      map[string]Pinger

	startTime time.Time
	logger    zerolog.Logger

	// background runs manually triggered jobs.
	background func(fn func())
	// jobContext is the parent context of manually triggered jobs.
	jobContext context.Context
}

// NewHandler creates a handler. Jobs triggered over HTTP run detached from
// the request, under ctx.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewHandler(ctx context.Context, deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{
		recommender: deps.Recommender,
		jobs:        deps.Jobs,
		precompute:  deps.Precompute,
		results:     deps.Results,
		events:      deps.Events,
		checks:      deps.Checks,
		startTime:   time.Now(),
		logger:      logger.With().Str("component", "api").Logger(),
		background:  func(fn func()) { go fn() },
		jobContext:  ctx,
	}
}
