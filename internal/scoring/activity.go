// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package scoring

import (
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

const day = 24 * time.Hour

// ActivityWeights controls the profile completeness part of ActivityScore.
// The recency tiers are fixed.
type ActivityWeights struct {
	Avatar  float64 `koanf:"avatar"`
	PerTag  float64 `koanf:"per_tag"`
	MaxTags int     `koanf:"max_tags"`
	TagCap  float64 `koanf:"tag_cap"`
	Email   float64 `koanf:"email"`
	Phone   float64 `koanf:"phone"`
}

// StandardActivity is used by precompute and the online scorer.
var StandardActivity = ActivityWeights{
	Avatar:  0.15,
	PerTag:  0.12,
	MaxTags: 5,
	TagCap:  0.3,
	Email:   0.1,
	Phone:   0.05,
}

// LightweightActivity is used by the fallback recommender. Any tag at all
// earns the full tag credit and contact fields are ignored.
var LightweightActivity = ActivityWeights{
	Avatar:  0.3,
	PerTag:  0.3,
	MaxTags: 1,
	TagCap:  0.3,
}

// ActivityScore returns a [0,1] score from account age and profile
// completeness. The result depends only on the user fields and now.
func ActivityScore(u *models.User, now time.Time, w ActivityWeights) float64 {
	if u == nil {
		return 0
	}

	score := recencyScore(u.CreatedAt, now)

	if u.HasAvatar() {
		score += w.Avatar
	}
	if n := min(len(u.TagList()), w.MaxTags); n > 0 {
		score += min(float64(n)*w.PerTag, w.TagCap)
	}
	if u.Email != "" {
		score += w.Email
	}
	if u.Phone != "" {
		score += w.Phone
	}

	return min(score, 1.0)
}

// recencyScore tiers whole days since account creation.
func recencyScore(created, now time.Time) float64 {
	days := int(now.Sub(created) / day)
	switch {
	case days < 30:
		return 0.4
	case days < 90:
		return 0.3
	case days < 180:
		return 0.2
	default:
		return 0.1
	}
}
