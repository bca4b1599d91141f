// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestTagSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"one shared of three", []string{"Java", "React"}, []string{"Java", "Go"}, 1.0 / 3.0},
		{"identical", []string{"Go", "Rust"}, []string{"Rust", "Go"}, 1.0},
		{"disjoint", []string{"Go"}, []string{"Java"}, 0},
		{"empty left", nil, []string{"Java"}, 0},
		{"empty right", []string{"Java"}, []string{}, 0},
		{"both empty", nil, nil, 0},
		{"duplicates ignored", []string{"Go", "Go", "Java"}, []string{"Go"}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TagSimilarity(tt.a, tt.b)
			if !approxEqual(got, tt.want) {
				t.Errorf("TagSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if rev := TagSimilarity(tt.b, tt.a); !approxEqual(rev, got) {
				t.Errorf("TagSimilarity not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestTagSimilarity_SelfIsOne(t *testing.T) {
	t.Parallel()

	sets := [][]string{{"Go"}, {"Java", "React", "Vue"}, {"前端", "后端"}}
	for _, s := range sets {
		if got := TagSimilarity(s, s); got != 1.0 {
			t.Errorf("TagSimilarity(%v, %v) = %v, want 1.0", s, s, got)
		}
	}
}

func TestComplement(t *testing.T) {
	t.Parallel()

	table := DefaultAffinityTable()
	tests := []struct {
		name  string
		mine  []string
		other []string
		want  float64
	}{
		{
			name:  "affine tag",
			mine:  []string{"Java"},
			other: []string{"React"},
			want:  0.5,
		},
		{
			name:  "affine tag counted once for several matches",
			mine:  []string{"Java", "Go"},
			other: []string{"React"},
			want:  0.5,
		},
		{
			name:  "unknown tag I lack",
			mine:  []string{"Java"},
			other: []string{"Rust"},
			want:  0.2,
		},
		{
			name:  "unknown tag I hold",
			mine:  []string{"Rust"},
			other: []string{"Rust"},
			want:  0,
		},
		{
			name:  "known tag without affinity adds nothing",
			mine:  []string{"Rust"},
			other: []string{"React"},
			want:  0,
		},
		{
			name:  "mixed",
			mine:  []string{"Java"},
			other: []string{"React", "Rust", "Java"},
			want:  (0.5 + 0.2 + 0) / 3,
		},
		{
			name:  "empty mine",
			mine:  nil,
			other: []string{"React"},
			want:  0,
		},
		{
			name:  "empty other",
			mine:  []string{"Java"},
			other: nil,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := table.Complement(tt.mine, tt.other)
			if !approxEqual(got, tt.want) {
				t.Errorf("Complement(%v, %v) = %v, want %v", tt.mine, tt.other, got, tt.want)
			}
		})
	}
}

func TestComplement_Bounded(t *testing.T) {
	t.Parallel()

	table := DefaultAffinityTable()
	all := make([]string, 0, len(table)+3)
	for k := range table {
		all = append(all, k)
	}
	all = append(all, "Rust", "Kotlin", "Go")

	for i := range all {
		for j := range all {
			mine := all[:i+1]
			other := all[j:]
			got := table.Complement(mine, other)
			if got < 0 || got > 1 {
				t.Fatalf("Complement(%v, %v) = %v, out of [0,1]", mine, other, got)
			}
		}
	}
}

func TestDefaultAffinityTable_Verbatim(t *testing.T) {
	t.Parallel()

	table := DefaultAffinityTable()
	if len(table) != 10 {
		t.Fatalf("len(DefaultAffinityTable()) = %d, want 10", len(table))
	}
	want := []string{"Spring Boot", "Java", "Go", "Node.js"}
	got := table["React"]
	if len(got) != len(want) {
		t.Fatalf("React complements = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("React complements[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	clone := table.Clone()
	clone["React"][0] = "changed"
	if table["React"][0] != "Spring Boot" {
		t.Error("Clone shares backing arrays with the original")
	}
}

func TestActivityScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) time.Time { return now.Add(-time.Duration(d) * 24 * time.Hour) }

	tests := []struct {
		name string
		user *models.User
		w    ActivityWeights
		want float64
	}{
		{"nil user", nil, StandardActivity, 0},
		{"new bare", &models.User{CreatedAt: daysAgo(1)}, StandardActivity, 0.4},
		{"60 days", &models.User{CreatedAt: daysAgo(60)}, StandardActivity, 0.3},
		{"120 days", &models.User{CreatedAt: daysAgo(120)}, StandardActivity, 0.2},
		{"old", &models.User{CreatedAt: daysAgo(400)}, StandardActivity, 0.1},
		{
			name: "two tags",
			user: &models.User{CreatedAt: daysAgo(400), Tags: `["Go","Java"]`},
			w:    StandardActivity,
			want: 0.1 + 0.24,
		},
		{
			name: "tag credit capped",
			user: &models.User{CreatedAt: daysAgo(400), Tags: `["a","b","c","d","e","f"]`},
			w:    StandardActivity,
			want: 0.1 + 0.3,
		},
		{
			name: "complete profile",
			user: &models.User{
				CreatedAt: daysAgo(1),
				AvatarURL: "https://example.com/a.png",
				Tags:      `["a","b","c"]`,
				Email:     "a@example.com",
				Phone:     "123",
			},
			w:    StandardActivity,
			want: 0.4 + 0.15 + 0.3 + 0.1 + 0.05,
		},
		{
			name: "malformed tags",
			user: &models.User{CreatedAt: daysAgo(400), Tags: `not json`},
			w:    StandardActivity,
			want: 0.1,
		},
		{
			name: "lightweight full",
			user: &models.User{
				CreatedAt: daysAgo(1),
				AvatarURL: "x",
				Tags:      `["a"]`,
				Email:     "ignored@example.com",
			},
			w:    LightweightActivity,
			want: 1.0,
		},
		{
			name: "lightweight many tags",
			user: &models.User{CreatedAt: daysAgo(400), Tags: `["a","b","c"]`},
			w:    LightweightActivity,
			want: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ActivityScore(tt.user, now, tt.w)
			if !approxEqual(got, tt.want) {
				t.Errorf("ActivityScore() = %v, want %v", got, tt.want)
			}
			if again := ActivityScore(tt.user, now, tt.w); again != got {
				t.Errorf("ActivityScore not deterministic: %v then %v", got, again)
			}
		})
	}
}

func TestWeightsFor(t *testing.T) {
	t.Parallel()

	for s, w := range strategyWeights {
		sum := w.Similarity + w.Complement + w.Activity + w.Precomputed + w.Jitter
		if !approxEqual(sum, 1.0) {
			t.Errorf("weights for %q sum to %v, want 1.0", s, sum)
		}
	}

	if got := WeightsFor("bogus"); got != WeightsFor(models.StrategyAll) {
		t.Errorf("WeightsFor(bogus) = %+v, want the all weights", got)
	}
	if got := WeightsFor(models.StrategySkill); got.Similarity != 0.5 {
		t.Errorf("WeightsFor(skill).Similarity = %v, want 0.5", got.Similarity)
	}
}

func TestPrecomputedRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ranks []int
		k     int
		want  float64
	}{
		{"absent from both", []int{-1, -1}, 200, 0},
		{"top of one list", []int{0, -1}, 200, 1.0},
		{"averaged over found lists", []int{0, 100}, 200, (1.0 + 0.5) / 2},
		{"single list rank 50", []int{50}, 200, 150.0 / 200.0},
		{"zero k", []int{0}, 0, 0},
		{"no lists", nil, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PrecomputedRank(tt.ranks, tt.k); !approxEqual(got, tt.want) {
				t.Errorf("PrecomputedRank(%v, %d) = %v, want %v", tt.ranks, tt.k, got, tt.want)
			}
		})
	}
}

func TestPrecomputedRankOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ranks []ListRank
		want  float64
	}{
		{"last of a short list", []ListRank{{Rank: 49, K: 50}}, 1.0 / 50},
		{"sizes differ", []ListRank{{Rank: 0, K: 200}, {Rank: 2, K: 4}}, (1.0 + 0.5) / 2},
		{"rank beyond list", []ListRank{{Rank: 50, K: 50}, {Rank: -1, K: 200}}, 0},
		{"zero size ignored", []ListRank{{Rank: 0, K: 0}, {Rank: 0, K: 10}}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PrecomputedRankOf(tt.ranks); !approxEqual(got, tt.want) {
				t.Errorf("PrecomputedRankOf(%v) = %v, want %v", tt.ranks, got, tt.want)
			}
		})
	}
}

func TestBlend(t *testing.T) {
	t.Parallel()

	c := Components{Similarity: 1, Complement: 0.5, Activity: 0.4, Precomputed: 0}
	w := WeightsFor(models.StrategyAll)

	base := 0.30 + 0.15 + 0.08
	if got := Blend(c, w, 0); !approxEqual(got, base) {
		t.Errorf("Blend(jitter=0) = %v, want %v", got, base)
	}
	if got := Blend(c, w, 0.999); got < base || got > base+w.Jitter {
		t.Errorf("Blend(jitter=0.999) = %v, want within [%v, %v]", got, base, base+w.Jitter)
	}

	full := Components{Similarity: 1, Complement: 1, Activity: 1, Precomputed: 1}
	if got := Blend(full, w, 0.999); got > 1.0 {
		t.Errorf("Blend() = %v, want capped at 1.0", got)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	t.Parallel()

	s := NewScorer(Config{JitterWeight: 0, Rand: func() float64 { t.Fatal("rand called with zero jitter"); return 0 }})
	c := Components{Similarity: 0.5, Complement: 0.5, Activity: 0.5, Precomputed: 0.5}

	first := s.Score(c, models.StrategyAll)
	for range 10 {
		if got := s.Score(c, models.StrategyAll); got != first {
			t.Fatalf("Score() = %v, want %v", got, first)
		}
	}
}

func TestScorer_JitterInRange(t *testing.T) {
	t.Parallel()

	s := NewScorer(Config{JitterWeight: DefaultJitterWeight})
	c := Components{Similarity: 0.2, Complement: 0.4, Activity: 0.6}
	w := WeightsFor(models.StrategyComplement)
	lo := Blend(c, w, 0)

	for range 100 {
		got := s.Score(c, models.StrategyComplement)
		if got < lo || got >= lo+DefaultJitterWeight {
			t.Fatalf("Score() = %v, want within [%v, %v)", got, lo, lo+DefaultJitterWeight)
		}
	}
}

func TestScorer_Pair(t *testing.T) {
	t.Parallel()

	s := NewScorer(Config{})
	mine := []string{"Java", "React"}
	other := []string{"Java", "Go"}

	if got := s.Pair(models.KindSimilarity, mine, other); !approxEqual(got, 1.0/3.0) {
		t.Errorf("Pair(similarity) = %v, want 1/3", got)
	}
	if got, want := s.Pair(models.KindComplement, mine, other), DefaultAffinityTable().Complement(mine, other); got != want {
		t.Errorf("Pair(complement) = %v, want %v", got, want)
	}
}

func TestReasons(t *testing.T) {
	t.Parallel()

	if got := Reasons(Components{}); len(got) != 1 || got[0] != ReasonDefault {
		t.Errorf("Reasons(zero) = %v, want [%q]", got, ReasonDefault)
	}

	got := Reasons(Components{Similarity: 0.6, Complement: 0.31, Activity: 0.71, Precomputed: 0.51})
	want := []string{ReasonSimilarSkills, ReasonComplementStack, ReasonHighlyActive, ReasonPrecomputed}
	if len(got) != len(want) {
		t.Fatalf("Reasons() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Reasons()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchType(t *testing.T) {
	t.Parallel()

	tests := map[models.Strategy]string{
		models.StrategyAll:        MatchComprehensive,
		models.StrategySimilar:    MatchSimilar,
		models.StrategySkill:      MatchSimilar,
		models.StrategyComplement: MatchComplement,
		models.StrategyActivity:   MatchActive,
	}
	for s, want := range tests {
		if got := MatchType(s); got != want {
			t.Errorf("MatchType(%q) = %q, want %q", s, got, want)
		}
	}
}
