// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package recommend serves ranked user recommendations.
//
// # Request Flow
//
// A request is rate limited per known user, then answered from the result
// cache when possible. On a miss the Engine narrows the population with the
// candidate selector, drops inactive users and the caller, applies the
// preferred-tag filter and scores each candidate with a strategy-weighted
// blend of:
//
//   - tag similarity and skill complement against the caller
//   - the candidate's activity score
//   - the candidate's rank in the caller's precomputed top-K lists
//
// Results are sorted by descending score (ties by ascending id), filtered by
// the optional minimum similarity, paged in memory and cached.
//
// # Degradation
//
// When the scoring path loses a dependency the Engine answers with the
// lightweight fallback, which ranks the snapshot by a cheap activity score.
// Random and ByTags are further fallbacks for callers that want them.
//
// # Usage
//
//	eng, err := recommend.NewEngine(recommend.Deps{...}, recommend.DefaultConfig(), logger)
//	resp, err := eng.Recommend(ctx, recommend.Request{
//	    UserID:   42,
//	    Strategy: models.StrategyComplement,
//	    PageNum:  1,
//	    PageSize: 10,
//	})
package recommend
