// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"
	"errors"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/models"
)

var (
	// ErrRateLimited is returned when the caller exceeded the recommend rate.
	ErrRateLimited = errors.New("recommendation rate limit exceeded")

	// ErrInvalidRequest is returned for a malformed request.
	ErrInvalidRequest = errors.New("invalid recommendation request")
)

// Result sources reported in Response.Source and metrics.
const (
	SourceCache    = "cache"
	SourceComputed = "computed"
	SourceFallback = "fallback"
)

// Request is one recommendation query.
type Request struct {
	// UserID is the caller. Zero is an anonymous caller.
	UserID int64 `json:"user_id"`

	Strategy      models.Strategy `json:"strategy"`
	PreferredTags []string        `json:"preferred_tags,omitempty"`

	// MinSimilarity drops results whose score×100 is below it. 0-100; 0
	// disables the filter.
	MinSimilarity int `json:"min_similarity,omitempty"`

	PageNum  int `json:"page_num"`
	PageSize int `json:"page_size"`
}

func (r *Request) cacheKey() cache.ResultKey {
	return cache.ResultKey{
		UserID:        r.UserID,
		Strategy:      r.Strategy,
		Tags:          r.PreferredTags,
		MinSimilarity: r.MinSimilarity,
		PageNum:       r.PageNum,
		PageSize:      r.PageSize,
	}
}

// Response is one page of recommendations.
type Response struct {
	Page   *cache.ResultPage `json:"page"`
	Source string            `json:"source"`
}

// Cache is the subset of *cache.Layer the engine uses.
type Cache interface {
	User(ctx context.Context, id int64) (*models.User, error)
	ActiveUsers(ctx context.Context) ([]*models.User, error)
	TopK(ctx context.Context, kind models.ScoreKind, subjectID int64, n int) ([]models.ScoreEntry, error)
	GetResults(ctx context.Context, key cache.ResultKey) (*cache.ResultPage, bool)
	PutResults(ctx context.Context, key cache.ResultKey, page *cache.ResultPage) error
	InvalidateResults(ctx context.Context, userID int64, strategy models.Strategy, tags []string) (int64, error)
}

// Selector narrows the population. *candidate.Selector satisfies it.
type Selector interface {
	Select(ctx context.Context, subjectID int64, preferredTags []string, limit int) []int64
}

// ActivitySource returns cached activity scores. *precompute.Engine
// satisfies it.
type ActivitySource interface {
	ActivityScore(ctx context.Context, userID int64) (float64, error)
}

// ListSizer reports the size K of the precomputed lists per kind, which is
// also the K of the rank component. *precompute.Engine satisfies it.
type ListSizer interface {
	TopKSize(kind models.ScoreKind) int
}

// Limiter gates recommend calls. *ratelimit.Limiter satisfies it.
type Limiter interface {
	AllowRecommend(ctx context.Context, userID int64) bool
}

// FeedbackStore persists feedback. source.FeedbackStore satisfies it.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb *models.Feedback) error
	ListFeedback(ctx context.Context, userID int64) ([]*models.Feedback, error)
}
