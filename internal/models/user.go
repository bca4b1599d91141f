// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrUserNotFound is returned when a referenced user has no snapshot and is
// unknown to the system-of-record.
var ErrUserNotFound = errors.New("user not found")

// UserStatusActive is the status value of a user eligible for recommendation.
const UserStatusActive = 0

// User is the population snapshot of a single user.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Profile   string    `json:"profile,omitempty"`
	Tags      string    `json:"tags,omitempty"` // raw JSON array, e.g. ["Java","React"]
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the user may appear in recommendations.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// TagList returns the parsed tag set of the user.
func (u *User) TagList() []string {
	return ParseTags(u.Tags)
}

// HasAvatar reports whether an avatar URL is present.
func (u *User) HasAvatar() bool {
	return strings.TrimSpace(u.AvatarURL) != ""
}

// ParseTags decodes a raw JSON tag array. Blank or malformed payloads yield
// an empty slice. Duplicates are removed while preserving first occurrence.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// EncodeTags encodes a tag list in the system-of-record wire form.
func EncodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Team is the population snapshot of a single team.
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MaxMembers  int       `json:"max_members"`
	OwnerID     int64     `json:"owner_id"`
	Status      int       `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}
