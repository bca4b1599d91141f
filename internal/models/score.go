// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import "strings"

// ScoreKind identifies which precomputed list a score belongs to.
type ScoreKind string

const (
	// KindSimilarity is the tag-similarity (Jaccard) list.
	KindSimilarity ScoreKind = "similarity"

	// KindComplement is the skill-complement list.
	KindComplement ScoreKind = "complement"
)

// ScoreKinds lists every precomputed kind in run order.
var ScoreKinds = []ScoreKind{KindSimilarity, KindComplement}

// Valid reports whether k is a known kind.
func (k ScoreKind) Valid() bool {
	return k == KindSimilarity || k == KindComplement
}

// ScoreEntry is a single row of a subject's top-K list.
type ScoreEntry struct {
	SubjectID int64     `json:"subject_id"`
	TargetID  int64     `json:"target_id"`
	Score     float64   `json:"score"`
	Kind      ScoreKind `json:"kind"`
}

// Strategy selects the weight profile used for blended scoring.
type Strategy string

const (
	StrategyAll        Strategy = "all"
	StrategySimilar    Strategy = "similar"
	StrategySkill      Strategy = "skill"
	StrategyComplement Strategy = "complement"
	StrategyActivity   Strategy = "activity"
)

// ParseStrategy normalizes a client supplied strategy. Unknown or empty
// values map to StrategyAll.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySimilar:
		return StrategySimilar
	case StrategySkill:
		return StrategySkill
	case StrategyComplement:
		return StrategyComplement
	case StrategyActivity:
		return StrategyActivity
	default:
		return StrategyAll
	}
}
