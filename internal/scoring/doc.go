// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package scoring implements the deterministic, explainable scoring functions
// of the recommendation core.
//
// All functions are pure and safe for concurrent use:
//
//   - TagSimilarity: Jaccard coefficient over two tag sets
//   - AffinityTable.Complement: how well another user's skills complement mine
//   - ActivityScore: profile completeness and account recency
//   - PrecomputedRank: position of a candidate in the subject's top-K lists
//   - Blend: strategy-weighted sum of the above plus an optional jitter term
//
// The skill affinity table is data, loaded from configuration. The default
// table is DefaultAffinityTable.
//
// # Jitter
//
// Blend adds a uniform random term so that repeated requests do not return an
// identical ordering. Scorer exposes the jitter weight as configuration; a
// weight of zero makes scoring fully deterministic, which is what regression
// tests should use.
package scoring
