// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package source holds the system-of-record contracts consumed by the core
// and a BadgerDB implementation of them.
//
// The core only reads users and teams. It writes nothing but feedback
// records.
package source

import (
	"context"

	"github.com/tomtom215/affinity/internal/models"
)

// UserSource is the read-only view of users and teams.
type UserSource interface {
	// ListActiveUsers returns every user with active status.
	ListActiveUsers(ctx context.Context) ([]*models.User, error)

	// GetUserByID returns models.ErrUserNotFound for unknown ids.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	ListTeams(ctx context.Context) ([]*models.Team, error)
}

// FeedbackStore persists recommendation feedback.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb *models.Feedback) error

	// ListFeedback returns a user's feedback, oldest first.
	ListFeedback(ctx context.Context, userID int64) ([]*models.Feedback, error)
}
