// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package validation validates API request structs with
// go-playground/validator v10 and turns failures into readable messages.
//
// Request types declare their rules in `validate` tags:
//
//	type feedbackRequest struct {
//	    UserID   int64 `json:"user_id" validate:"required,gt=0"`
//	    Feedback int   `json:"feedback" validate:"oneof=-1 1"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Message and apiErr.Details
//	}
//
// The validator is a process-wide singleton so struct metadata is parsed
// once. It reports JSON field names rather than Go field names.
package validation
