// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package testinfra

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/affinity/internal/models"
)

// StaticSource is an in-memory system-of-record.
type StaticSource struct {
	mu       sync.Mutex
	users    []*models.User
	teams    []*models.Team
	feedback []*models.Feedback
	err      error

	ListCalls atomic.Int32
	GetCalls  atomic.Int32
}

// NewStaticSource returns a source holding users.
func NewStaticSource(users ...*models.User) *StaticSource {
	return &StaticSource{users: users}
}

// SetUsers replaces the held users.
func (s *StaticSource) SetUsers(users ...*models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

// SetTeams replaces the held teams.
func (s *StaticSource) SetTeams(teams ...*models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = teams
}

// SetError makes every call fail with err until cleared with nil.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ListActiveUsers returns the held active users in insertion order.
func (s *StaticSource) ListActiveUsers(_ context.Context) ([]*models.User, error) {
	s.ListCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Active() {
			out = append(out, u)
		}
	}
	return out, nil
}

// GetUserByID returns a held user regardless of status.
func (s *StaticSource) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.GetCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// ListTeams returns the held teams.
func (s *StaticSource) ListTeams(_ context.Context) ([]*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.teams), nil
}

// SaveFeedback validates and keeps fb.
func (s *StaticSource) SaveFeedback(_ context.Context, fb *models.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	s.feedback = append(s.feedback, fb)
	return nil
}

// ListFeedback returns userID's feedback in insertion order.
func (s *StaticSource) ListFeedback(_ context.Context, userID int64) ([]*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Feedback
	for _, fb := range s.feedback {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	return out, nil
}

// Fixed is the creation time of every sample user.
var Fixed = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// SampleUsers returns a small population:
//
//	1 alice  [Java React]  avatar, email
//	2 bob    [Java Go]
//	3 carol  [Go Vue]
//	4 dave   []
//	5 eve    [Python]      inactive
//	6 frank  [React]
func SampleUsers() []*models.User {
	return []*models.User{
		{ID: 1, Username: "alice", Tags: `["Java","React"]`, AvatarURL: "https://img/a.png", Email: "a@example.com", CreatedAt: Fixed},
		{ID: 2, Username: "bob", Tags: `["Java","Go"]`, CreatedAt: Fixed},
		{ID: 3, Username: "carol", Tags: `["Go","Vue"]`, CreatedAt: Fixed},
		{ID: 4, Username: "dave", Tags: `[]`, CreatedAt: Fixed},
		{ID: 5, Username: "eve", Tags: `["Python"]`, Status: 1, CreatedAt: Fixed},
		{ID: 6, Username: "frank", Tags: `["React"]`, CreatedAt: Fixed},
	}
}
