// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tomtom215/affinity/internal/models"
)

const (
	keyUsers       = "users:all"
	keyTeams       = "teams:all"
	keyActivity    = "activity:"
	keyTagIndex    = "tags:users:"
	keyResults     = "recommend:"
	keyUserSearch  = "user:search:"
	keyUserCurrent = "user:current:"
)

func topKKey(kind models.ScoreKind, subjectID int64) string {
	return string(kind) + ":" + strconv.FormatInt(subjectID, 10)
}

func activityKey(userID int64) string {
	return keyActivity + strconv.FormatInt(userID, 10)
}

// normalizeTags returns a sorted, deduplicated, trimmed copy without blanks.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func tagIndexKey(tags []string) string {
	return keyTagIndex + strings.Join(tags, ",")
}

// ResultKey identifies one cached recommendation page.
type ResultKey struct {
	UserID        int64 // 0 for anonymous callers
	Strategy      models.Strategy
	Tags          []string
	MinSimilarity int // 0 means unset
	PageNum       int
	PageSize      int
}

// String renders the Redis key (without the store prefix).
func (k ResultKey) String() string {
	var b strings.Builder
	b.WriteString(resultScope(k.UserID, k.Strategy))
	if tags := normalizeTags(k.Tags); len(tags) > 0 {
		b.WriteString(":tags:")
		b.WriteString(strings.Join(tags, ","))
	}
	if k.MinSimilarity > 0 {
		b.WriteString(":minSim:")
		b.WriteString(strconv.Itoa(k.MinSimilarity))
	}
	b.WriteString(":page:")
	b.WriteString(strconv.Itoa(k.PageNum))
	b.WriteString(":size:")
	b.WriteString(strconv.Itoa(k.PageSize))
	return b.String()
}

func resultUser(userID int64) string {
	if userID <= 0 {
		return "guest"
	}
	return strconv.FormatInt(userID, 10)
}

func resultScope(userID int64, strategy models.Strategy) string {
	return keyResults + "userId:" + resultUser(userID) + ":strategy:" + string(strategy)
}

// resultPattern builds the SCAN pattern used by InvalidateResults. An empty
// strategy matches all strategies; empty tags match every tag variant.
func resultPattern(userID int64, strategy models.Strategy, tags []string) string {
	if strategy == "" {
		return keyResults + "userId:" + escapeGlob(resultUser(userID)) + ":*"
	}
	p := escapeGlob(resultScope(userID, strategy))
	if tags = normalizeTags(tags); len(tags) > 0 {
		p += escapeGlob(":tags:"+strings.Join(tags, ",")) + ":*"
		return p
	}
	return p + ":*"
}

// escapeGlob escapes Redis glob metacharacters.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
