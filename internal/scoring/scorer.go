// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package scoring

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

// DefaultJitterWeight matches the jitter column of the strategy table.
const DefaultJitterWeight = 0.05

// Config configures a Scorer.
type Config struct {
	// Affinity is the skill affinity table. Nil uses DefaultAffinityTable.
	Affinity AffinityTable

	// Activity weights for online scoring.
	Activity ActivityWeights

	// JitterWeight replaces the jitter column of every strategy.
	// Zero makes Score deterministic.
	JitterWeight float64

	// Rand returns values in [0,1). Nil uses math/rand/v2.
	Rand func() float64

	// Now is the clock used for activity recency. Nil uses time.Now.
	Now func() time.Time
}

// Scorer bundles the scoring configuration used by the online path and the
// precompute engine. It is safe for concurrent use.
type Scorer struct {
	affinity AffinityTable
	activity ActivityWeights
	jitter   float64
	now      func() time.Time

	mu   sync.Mutex
	rand func() float64
}

// NewScorer creates a Scorer from cfg.
func NewScorer(cfg Config) *Scorer {
	s := &Scorer{
		affinity: cfg.Affinity,
		activity: cfg.Activity,
		jitter:   cfg.JitterWeight,
		now:      cfg.Now,
		rand:     cfg.Rand,
	}
	if s.affinity == nil {
		s.affinity = DefaultAffinityTable()
	}
	if s.activity == (ActivityWeights{}) {
		s.activity = StandardActivity
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}
	return s
}

// Similarity is TagSimilarity.
func (s *Scorer) Similarity(a, b []string) float64 {
	return TagSimilarity(a, b)
}

// Complement scores otherTags against myTags with the configured table.
func (s *Scorer) Complement(myTags, otherTags []string) float64 {
	return s.affinity.Complement(myTags, otherTags)
}

// Pair scores one kind for a pair of tag sets.
func (s *Scorer) Pair(kind models.ScoreKind, subjectTags, otherTags []string) float64 {
	if kind == models.KindComplement {
		return s.Complement(subjectTags, otherTags)
	}
	return s.Similarity(subjectTags, otherTags)
}

// Activity scores u against the scorer's clock.
func (s *Scorer) Activity(u *models.User) float64 {
	return ActivityScore(u, s.now(), s.activity)
}

// Now returns the scorer's clock reading.
func (s *Scorer) Now() time.Time {
	return s.now()
}

// Weights returns the strategy weights with the configured jitter weight.
func (s *Scorer) Weights(strategy models.Strategy) Weights {
	w := WeightsFor(strategy)
	w.Jitter = s.jitter
	return w
}

// Score blends c for strategy, drawing a fresh jitter value when the
// jitter weight is non-zero.
func (s *Scorer) Score(c Components, strategy models.Strategy) float64 {
	w := s.Weights(strategy)
	var j float64
	if w.Jitter != 0 {
		s.mu.Lock()
		j = s.rand()
		s.mu.Unlock()
	}
	return Blend(c, w, j)
}
