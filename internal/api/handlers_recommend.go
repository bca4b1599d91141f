// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/models"
	"github.com/tomtom215/affinity/internal/recommend"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// GetRecommendations returns one page of recommendations.
//
// @Summary Recommend users
// @Description Blended recommendations for a user, or for an anonymous caller with id "guest"
// @Tags Recommendations
// @Produce json
// @Param id path string true "User ID or guest"
// @Param strategy query string false "all, similar, skill, complement or activity"
// @Param tags query string false "Comma-separated preferred tags"
// @Param min_similarity query int false "Minimum score x100 (0-100)"
// @Param page_num query int false "1-based page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} APIResponse{data=recommend.Response}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /api/v1/users/{id}/recommendations [get]
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathUserID(r, true)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	q, err := parseRecommendationsQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if !validate(rw, q) {
		return
	}

	resp, err := h.recommender.Recommend(r.Context(), recommend.Request{
		UserID:        userID,
		Strategy:      models.Strategy(q.Strategy),
		PreferredTags: q.Tags,
		MinSimilarity: q.MinSimilarity,
		PageNum:       q.PageNum,
		PageSize:      q.PageSize,
	})
	if err != nil {
		respondDomainError(rw, err)
		return
	}
	rw.Success(resp)
}

// RefreshRecommendations drops the caller's cached pages.
//
// @Summary Refresh cached recommendations
// @Tags Recommendations
// @Produce json
// @Param id path int true "User ID"
// @Param strategy query string false "Strategy to clear; all strategies when empty"
// @Param tags query string false "Comma-separated tags; every tag variant when empty"
// @Success 200 {object} APIResponse
// @Router /api/v1/users/{id}/recommendations/refresh [post]
func (h *Handler) RefreshRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathUserID(r, false)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	strategy := models.Strategy(r.URL.Query().Get("strategy"))
	n, err := h.recommender.Refresh(r.Context(), userID, strategy, queryList(r, "tags"))
	if err != nil {
		respondDomainError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"user_id": userID, "deleted": n})
}

// PostFeedback records a like or dislike of a recommended user.
//
// @Summary Record feedback
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param body body feedbackRequest true "Feedback"
// @Success 201 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /api/v1/feedback [post]
func (h *Handler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if !validate(rw, &req) {
		return
	}

	fb := &models.Feedback{
		UserID:            req.UserID,
		RecommendedUserID: req.RecommendedUserID,
		Feedback:          req.Feedback,
		Strategy:          models.ParseStrategy(req.Strategy),
		Score:             req.Score,
		MatchType:         req.MatchType,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.recommender.RecordFeedback(r.Context(), fb); err != nil {
		respondDomainError(rw, err)
		return
	}
	rw.Created(fb)
}

// GetTagCategories returns the tag catalogue.
//
// @Summary List tag categories
// @Tags Recommendations
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.TagCategory}
// @Router /api/v1/tag-categories [get]
func (h *Handler) GetTagCategories(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(models.TagCategories())
}
