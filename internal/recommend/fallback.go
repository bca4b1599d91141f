// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"context"

	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/scoring"
)

// ReasonSharedTag explains a tag-match fallback result.
const ReasonSharedTag = "Shares one of your preferred tags"

// Lightweight ranks the first snapshot users by the lightweight activity
// score only. It never fails; an unavailable snapshot yields an empty page.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Lightweight(ctx context.Context, req Request) *Response {
	req, _ = e.prepareRequest(req)

	users := e.fallbackPopulation(ctx, req.UserID)
	users = users[:min(len(users), e.config.Fallback.LightweightLimit)]

	results := make([]models.RecommendationResult, 0, len(users))
	for _, u := range users {
		results = append(results, e.lightweightResult(u))
	}
	sortResults(results)

	e.logger.Info().Int64("user_id", req.UserID).Int("results", len(results)).Msg("lightweight fallback served")
	return e.fallbackResponse(results, req)
}

// Random returns a shuffled sample of active users at a fixed score.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Random(ctx context.Context, req Request) *Response {
	req, _ = e.prepareRequest(req)

	users := e.fallbackPopulation(ctx, req.UserID)
	e.shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
	users = users[:min(len(users), e.config.Fallback.RandomLimit)]

	results := make([]models.RecommendationResult, 0, len(users))
	for _, u := range users {
		r := models.NewResult(u)
		r.Score = e.config.Fallback.RandomScore
		r.MatchType = scoring.MatchRandom
		r.Reasons = []string{scoring.ReasonDefault}
		results = append(results, r)
	}
	return e.fallbackResponse(results, req)
}

// ByTags returns users holding any preferred tag at a fixed score, padded
// with lightweight results when there are too few matches.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) ByTags(ctx context.Context, req Request) *Response {
	req, _ = e.prepareRequest(req)
	fb := e.config.Fallback

	users := e.fallbackPopulation(ctx, req.UserID)
	results := make([]models.RecommendationResult, 0, fb.TagPadTo)
	taken := make(map[int64]struct{})

	if len(req.PreferredTags) > 0 {
		for _, u := range users {
			if len(results) >= fb.TagMatchLimit {
				break
			}
			if !hasAny(u.TagList(), req.PreferredTags) {
				continue
			}
			r := models.NewResult(u)
			r.Score = fb.TagMatchScore
			r.MatchType = scoring.MatchTag
			r.Reasons = []string{ReasonSharedTag}
			results = append(results, r)
			taken[u.ID] = struct{}{}
		}
	}

	for _, u := range users {
		if len(results) >= fb.TagPadTo {
			break
		}
		if _, ok := taken[u.ID]; ok {
			continue
		}
		results = append(results, e.lightweightResult(u))
		taken[u.ID] = struct{}{}
	}
	return e.fallbackResponse(results, req)
}

// fallbackPopulation is the active snapshot minus the caller, ascending id.
func (e *Engine) fallbackPopulation(ctx context.Context, callerID int64) []*models.User {
	active, err := e.cache.ActiveUsers(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("snapshot unavailable for fallback")
		return nil
	}
	out := make([]*models.User, 0, len(active))
	for _, u := range active {
		if u.ID != callerID {
			out = append(out, u)
		}
	}
	return out
}

func (e *Engine) lightweightResult(u *models.User) models.RecommendationResult {
	r := models.NewResult(u)
	r.Score = scoring.ActivityScore(u, e.scorer.Now(), scoring.LightweightActivity)
	r.MatchType = scoring.MatchActive
	r.Reasons = []string{scoring.ReasonHighlyActive}
	return r
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) fallbackResponse(results []models.RecommendationResult, req Request) *Response {
	page := models.Paginate(results, req.PageNum, req.PageSize)
	return &Response{Page: &page, Source: SourceFallback}
}
