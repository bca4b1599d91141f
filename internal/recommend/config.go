// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package recommend

import (
	"fmt"
)

// Config contains limits for the recommendation engine.
type Config struct {
	// MaxCandidates caps the candidate pool per request.
	MaxCandidates int `koanf:"max_candidates"`

	// CandidateTopN is how many entries of each precomputed list the
	// candidate selector moves to the front of the pool.
	CandidateTopN int `koanf:"candidate_top_n"`

	// DefaultPageSize applies when a request omits the page size.
	DefaultPageSize int `koanf:"default_page_size"`

	// MaxPageSize caps the page size.
	MaxPageSize int `koanf:"max_page_size"`

	Fallback FallbackConfig `koanf:"fallback"`
}

// FallbackConfig sizes the degraded answers.
type FallbackConfig struct {
	// LightweightLimit is how many snapshot users the lightweight fallback scores.
	LightweightLimit int `koanf:"lightweight_limit"`

	// RandomLimit is how many users the random fallback returns.
	RandomLimit int `koanf:"random_limit"`

	// RandomScore is the fixed score of random results.
	RandomScore float64 `koanf:"random_score"`

	// TagMatchScore is the fixed score of tag matches.
	TagMatchScore float64 `koanf:"tag_match_score"`

	// TagMatchLimit caps tag matches.
	TagMatchLimit int `koanf:"tag_match_limit"`

	// TagPadTo pads short tag results with lightweight results up to this size.
	TagPadTo int `koanf:"tag_pad_to"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:   200,
		CandidateTopN:   100,
		DefaultPageSize: 10,
		MaxPageSize:     100,
		Fallback: FallbackConfig{
			LightweightLimit: 100,
			RandomLimit:      50,
			RandomScore:      0.5,
			TagMatchScore:    0.8,
			TagMatchLimit:    50,
			TagPadTo:         20,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.CandidateTopN < 1 {
		return fmt.Errorf("candidate_top_n must be positive, got %d", c.CandidateTopN)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default_page_size must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max_page_size (%d) must be >= default_page_size (%d)", c.MaxPageSize, c.DefaultPageSize)
	}

	f := c.Fallback
	if f.LightweightLimit < 1 || f.RandomLimit < 1 || f.TagMatchLimit < 1 {
		return fmt.Errorf("fallback limits must be positive")
	}
	if f.TagPadTo < 0 {
		return fmt.Errorf("fallback.tag_pad_to must be non-negative, got %d", f.TagPadTo)
	}
	if f.RandomScore < 0 || f.RandomScore > 1 {
		return fmt.Errorf("fallback.random_score must be in [0, 1], got %f", f.RandomScore)
	}
	if f.TagMatchScore < 0 || f.TagMatchScore > 1 {
		return fmt.Errorf("fallback.tag_match_score must be in [0, 1], got %f", f.TagMatchScore)
	}
	return nil
}
