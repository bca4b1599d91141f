// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package scoring

import "github.com/tomtom215/affinity/internal/models"

// Weights are the blend coefficients for one strategy.
type Weights struct {
	Similarity  float64
	Complement  float64
	Activity    float64
	Precomputed float64
	Jitter      float64
}

// Components are the individual signals for one (subject, candidate) pair.
type Components struct {
	Similarity  float64
	Complement  float64
	Activity    float64
	Precomputed float64
}

var strategyWeights = map[models.Strategy]Weights{
	models.StrategyAll:        {Similarity: 0.30, Complement: 0.30, Activity: 0.20, Precomputed: 0.15, Jitter: 0.05},
	models.StrategySimilar:    {Similarity: 0.50, Complement: 0.10, Activity: 0.25, Precomputed: 0.10, Jitter: 0.05},
	models.StrategySkill:      {Similarity: 0.50, Complement: 0.10, Activity: 0.25, Precomputed: 0.10, Jitter: 0.05},
	models.StrategyComplement: {Similarity: 0.10, Complement: 0.50, Activity: 0.25, Precomputed: 0.10, Jitter: 0.05},
	models.StrategyActivity:   {Similarity: 0.15, Complement: 0.15, Activity: 0.55, Precomputed: 0.10, Jitter: 0.05},
}

// WeightsFor returns the blend weights for a strategy. Unknown strategies
// use the weights of StrategyAll.
func WeightsFor(s models.Strategy) Weights {
	if w, ok := strategyWeights[s]; ok {
		return w
	}
	return strategyWeights[models.StrategyAll]
}

// PrecomputedRank converts the candidate's 0-indexed position in each top-K
// list it was found in into (k-r)/k and averages over those lists.
// Negative ranks mean "not found" and are ignored.
func PrecomputedRank(ranks []int, k int) float64 {
	lr := make([]ListRank, len(ranks))
	for i, r := range ranks {
		lr[i] = ListRank{Rank: r, K: k}
	}
	return PrecomputedRankOf(lr)
}

// ListRank is a 0-indexed position in a top-K list of size K. A negative
// Rank means the candidate is not in the list.
type ListRank struct {
	Rank int
	K    int
}

// PrecomputedRankOf is PrecomputedRank for lists of different sizes.
func PrecomputedRankOf(ranks []ListRank) float64 {
	var sum float64
	found := 0
	for _, r := range ranks {
		if r.K <= 0 || r.Rank < 0 || r.Rank >= r.K {
			continue
		}
		sum += float64(r.K-r.Rank) / float64(r.K)
		found++
	}
	if found == 0 {
		return 0
	}
	return min(sum/float64(found), 1.0)
}

// Blend computes the weighted sum of the components plus jitter scaled by
// w.Jitter. jitter is expected in [0,1). The result is clamped to [0,1].
func Blend(c Components, w Weights, jitter float64) float64 {
	score := c.Similarity*w.Similarity +
		c.Complement*w.Complement +
		c.Activity*w.Activity +
		c.Precomputed*w.Precomputed +
		jitter*w.Jitter
	return max(0, min(score, 1.0))
}

// Reason labels attached to a recommendation.
const (
	ReasonSimilarSkills   = "You have a similar skill background"
	ReasonComplementStack = "Their skills complement your stack"
	ReasonHighlyActive    = "This user is highly active"
	ReasonPrecomputed     = "Matched from precomputed affinity"
	ReasonDefault         = "Recommended for you"
)

// Reasons explains a score. Always returns at least one reason.
func Reasons(c Components) []string {
	var reasons []string
	if c.Similarity > 0.5 {
		reasons = append(reasons, ReasonSimilarSkills)
	}
	if c.Complement > 0.3 {
		reasons = append(reasons, ReasonComplementStack)
	}
	if c.Activity > 0.7 {
		reasons = append(reasons, ReasonHighlyActive)
	}
	if c.Precomputed > 0.5 {
		reasons = append(reasons, ReasonPrecomputed)
	}
	if len(reasons) == 0 {
		return []string{ReasonDefault}
	}
	return reasons
}

// Match type labels.
const (
	MatchSimilar       = "similar"
	MatchComplement    = "complement"
	MatchActive        = "active"
	MatchComprehensive = "comprehensive"
	MatchTag           = "tag"
	MatchRandom        = "random"
)

// MatchType returns the label for a strategy.
func MatchType(s models.Strategy) string {
	switch s {
	case models.StrategySimilar, models.StrategySkill:
		return MatchSimilar
	case models.StrategyComplement:
		return MatchComplement
	case models.StrategyActivity:
		return MatchActive
	default:
		return MatchComprehensive
	}
}
