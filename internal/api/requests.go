// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/affinity/internal/validation"
)

// guestID is the path value naming an anonymous caller.
const guestID = "guest"

// recommendationsQuery holds the query parameters of a recommendation call.
type recommendationsQuery struct {
	Strategy      string   `json:"strategy" validate:"omitempty,max=32"`
	Tags          []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
	MinSimilarity int      `json:"min_similarity" validate:"gte=0,lte=100"`
	PageNum       int      `json:"page_num" validate:"gte=0"`
	PageSize      int      `json:"page_size" validate:"gte=0,lte=100"`
}

// feedbackRequest is the body of POST /api/v1/feedback.
type feedbackRequest struct {
	UserID            int64   `json:"user_id" validate:"required,gt=0"`
	RecommendedUserID int64   `json:"recommended_user_id" validate:"required,gt=0"`
	Feedback          int     `json:"feedback" validate:"required,oneof=-1 1"`
	Strategy          string  `json:"strategy" validate:"omitempty,max=32"`
	Score             float64 `json:"score" validate:"gte=0"`
	MatchType         string  `json:"match_type" validate:"omitempty,max=32"`
}

// cacheClearQuery selects what DELETE /admin/recommendations/cache drops.
type cacheClearQuery struct {
	UserID   int64    `json:"user_id" validate:"gte=0"`
	Strategy string   `json:"strategy" validate:"omitempty,max=32"`
	Tags     []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
}

// tagsUpdatedRequest is the body of POST /admin/users/{id}/tags-updated.
type tagsUpdatedRequest struct {
	Tags []string `json:"tags" validate:"max=50,dive,min=1,max=50"`
}

// paramError is a malformed query or path value.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be an integer, got %q", e.name, e.value)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, value: raw}
	}
	return n, nil
}

// queryList reads a comma-separated or repeated parameter.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseRecommendationsQuery(r *http.Request) (*recommendationsQuery, error) {
	q := &recommendationsQuery{
		Strategy: r.URL.Query().Get("strategy"),
		Tags:     queryList(r, "tags"),
	}
	var err error
	if q.MinSimilarity, err = queryInt(r, "min_similarity"); err != nil {
		return nil, err
	}
	if q.PageNum, err = queryInt(r, "page_num"); err != nil {
		return nil, err
	}
	if q.PageSize, err = queryInt(r, "page_size"); err != nil {
		return nil, err
	}
	return q, nil
}

// pathUserID parses {id}. "guest" is accepted when allowGuest is set and
// maps to 0.
func pathUserID(r *http.Request, allowGuest bool) (int64, error) {
	raw := chi.URLParam(r, "id")
	if allowGuest && raw == guestID {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidUserID
	}
	return id, nil
}

// validate writes a 400 and returns false when v breaks its rules.
func validate(rw *ResponseWriter, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
	return false
}
