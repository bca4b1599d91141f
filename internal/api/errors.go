// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"errors"

	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/recommend"
)

// ErrInvalidUserID is returned for a path id that is not a positive integer.
var ErrInvalidUserID = errors.New("user id must be a positive integer")

// respondDomainError maps known domain errors to their status codes and
// everything else to a 500.
func respondDomainError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		rw.NotFound("User not found")
	case errors.Is(err, recommend.ErrRateLimited):
		rw.TooManyRequests("Too many recommendation requests")
	case errors.Is(err, recommend.ErrInvalidRequest),
		errors.Is(err, models.ErrInvalidFeedback),
		errors.Is(err, ErrInvalidUserID):
		rw.BadRequest(err.Error())
	case errors.Is(err, jobs.ErrUnknownJob):
		rw.NotFound(err.Error())
	default:
		rw.InternalErrorWithCause("Request failed", err)
	}
}
