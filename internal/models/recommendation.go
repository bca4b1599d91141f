// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package models

import (
	"errors"
	"time"
)

// RecommendationResult is one recommended user with the explanation of why.
type RecommendationResult struct {
	UserID    int64    `json:"user_id"`
	Username  string   `json:"username"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Tags      []string `json:"tags"`
	Profile   string   `json:"profile,omitempty"`
	Score     float64  `json:"score"`
	MatchType string   `json:"match_type"`
	Reasons   []string `json:"reasons"`
}

// NewResult copies the display fields of u into a result.
func NewResult(u *User) RecommendationResult {
	return RecommendationResult{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Tags:      u.TagList(),
		Profile:   u.Profile,
	}
}

// Page is a 1-indexed page of items plus totals.
type Page[T any] struct {
	Records  []T `json:"records"`
	Total    int `json:"total"`
	PageNum  int `json:"page_num"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

// Paginate slices items into the requested page. Out of range pages return
// an empty record list with the totals still populated.
func Paginate[T any](items []T, pageNum, pageSize int) Page[T] {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	page := Page[T]{
		Records:  []T{},
		Total:    len(items),
		PageNum:  pageNum,
		PageSize: pageSize,
		Pages:    (len(items) + pageSize - 1) / pageSize,
	}

	from := (pageNum - 1) * pageSize
	if from >= len(items) {
		return page
	}
	to := from + pageSize
	if to > len(items) {
		to = len(items)
	}
	page.Records = append(page.Records, items[from:to]...)
	return page
}

// ErrInvalidFeedback is returned for a feedback record that fails validation.
var ErrInvalidFeedback = errors.New("invalid feedback")

const (
	// FeedbackLike marks a recommendation the user liked.
	FeedbackLike = 1
	// FeedbackDislike marks a recommendation the user rejected.
	FeedbackDislike = -1
)

// Feedback records how a user reacted to a recommended user.
type Feedback struct {
	UserID            int64     `json:"user_id"`
	RecommendedUserID int64     `json:"recommended_user_id"`
	Feedback          int       `json:"feedback"`
	Strategy          Strategy  `json:"strategy,omitempty"`
	Score             float64   `json:"score,omitempty"`
	MatchType         string    `json:"match_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate checks the identifiers and the feedback value.
func (f *Feedback) Validate() error {
	if f.UserID <= 0 || f.RecommendedUserID <= 0 {
		return errors.Join(ErrInvalidFeedback, errors.New("user ids must be positive"))
	}
	if f.UserID == f.RecommendedUserID {
		return errors.Join(ErrInvalidFeedback, errors.New("cannot give feedback on yourself"))
	}
	if f.Feedback != FeedbackLike && f.Feedback != FeedbackDislike {
		return errors.Join(ErrInvalidFeedback, errors.New("feedback must be 1 or -1"))
	}
	return nil
}
