// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package scoring

import "slices"

const (
	// affineTagCredit is added for a tag whose complementary list contains one of my tags.
	affineTagCredit = 0.5

	// missingTagCredit is added for a tag outside the table that I do not hold.
	// Flat rate regardless of how rare the tag is.
	missingTagCredit = 0.2
)

// AffinityTable maps a tag to the tags it complements.
type AffinityTable map[string][]string

// DefaultAffinityTable returns the built-in skill affinity table.
func DefaultAffinityTable() AffinityTable {
	return AffinityTable{
		"React":       {"Spring Boot", "Java", "Go", "Node.js"},
		"Vue":         {"Spring Boot", "Java", "Django", "Flask"},
		"Spring Boot": {"React", "Vue", "Angular", "iOS", "Android"},
		"Java":        {"React", "Vue", "iOS", "Android", "Flutter"},
		"Python":      {"React", "Vue", "iOS", "Android", "DevOps"},
		"前端":          {"后端", "Java", "Go", "C++"},
		"后端":          {"前端", "React", "Vue", "iOS"},
		"Android":     {"iOS", "后端", "Java"},
		"iOS":         {"Android", "后端", "Swift"},
		"Flutter":     {"后端", "Java", "Go"},
	}
}

// Complement scores how much otherTags complement myTags. For every tag in
// otherTags: 0.5 if the tag is in the table and any of myTags is one of its
// complements, otherwise 0.2 if I do not already hold it. The sum is divided
// by len(otherTags) and capped at 1.0.
func (t AffinityTable) Complement(myTags, otherTags []string) float64 {
	if len(myTags) == 0 || len(otherTags) == 0 {
		return 0
	}

	mine := toSet(myTags)
	var sum float64
	for _, tag := range otherTags {
		if complements, ok := t[tag]; ok {
			if slices.ContainsFunc(complements, func(c string) bool {
				_, held := mine[c]
				return held
			}) {
				sum += affineTagCredit
			}
			continue
		}
		if _, held := mine[tag]; !held {
			sum += missingTagCredit
		}
	}

	return min(sum/float64(len(otherTags)), 1.0)
}

// Clone returns a deep copy of the table.
func (t AffinityTable) Clone() AffinityTable {
	out := make(AffinityTable, len(t))
	for k, v := range t {
		out[k] = slices.Clone(v)
	}
	return out
}
