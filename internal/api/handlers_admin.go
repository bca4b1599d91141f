// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/models"
)

// TriggerFullPrecompute starts a forced rebuild of every list.
//
// @Summary Trigger full precompute
// @Tags Admin
// @Produce json
// @Success 202 {object} APIResponse
// @Router /admin/precompute/full [post]
func (h *Handler) TriggerFullPrecompute(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, r, jobs.NameFullPrecompute)
}

// TriggerIncrementalPrecompute starts a rebuild of missing lists.
//
// @Summary Trigger incremental precompute
// @Tags Admin
// @Produce json
// @Success 202 {object} APIResponse
// @Router /admin/precompute/incremental [post]
func (h *Handler) TriggerIncrementalPrecompute(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, r, jobs.NameIncrementalPrecompute)
}

// TriggerJob starts any registered job by name.
//
// @Summary Trigger a job
// @Tags Admin
// @Produce json
// @Param name path string true "Job name"
// @Success 202 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /admin/jobs/{name} [post]
func (h *Handler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, r, chi.URLParam(r, "name"))
}

// triggerJob runs the job in the background and answers 202 right away.
// The job takes its lock as usual, so a concurrent run is reported as
// skipped in the logs.
func (h *Handler) triggerJob(w http.ResponseWriter, r *http.Request, name string) {
	rw := NewResponseWriter(w, r)

	if !h.knownJob(name) {
		respondDomainError(rw, jobs.ErrUnknownJob)
		return
	}

	ctx := h.jobContext
	if ctx == nil {
		ctx = context.Background()
	}
	requestID := r.Header.Get("X-Request-ID")
	h.background(func() {
		result, err := h.jobs.Trigger(ctx, name)
		ev := h.logger.Info()
		if err != nil {
			ev = h.logger.Error().Err(err)
		}
		ev.Str("job", name).Str("result", result).Str("request_id", requestID).Msg("manual job finished")
	})

	h.logger.Info().Str("job", name).Str("request_id", requestID).Msg("manual job triggered")
	rw.Accepted(map[string]string{"job": name, "status": "accepted"})
}

func (h *Handler) knownJob(name string) bool {
	for _, n := range h.jobs.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// RecomputeUser rebuilds one user's similarity or complement list.
//
// @Summary Recompute one user
// @Tags Admin
// @Produce json
// @Param id path int true "User ID"
// @Param kind path string true "similarity or complement"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /admin/precompute/users/{id}/{kind} [post]
func (h *Handler) RecomputeUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathUserID(r, false)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	kind := models.ScoreKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		rw.NotFound("Unknown list kind")
		return
	}

	if err := h.precompute.RecomputeUser(r.Context(), kind, userID); err != nil {
		respondDomainError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"user_id": userID, "kind": kind, "status": "recomputed"})
}

// PrecomputeStatus reports each run kind and the registered jobs.
//
// @Summary Precompute status
// @Tags Admin
// @Produce json
// @Success 200 {object} APIResponse
// @Router /admin/precompute/status [get]
func (h *Handler) PrecomputeStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"runs": h.precompute.Statuses(),
		"jobs": h.jobs.Names(),
	})
}

// ClearRecommendationCache drops cached result pages. With user_id only that
// user's pages go, optionally narrowed by strategy and tags.
//
// @Summary Clear the result cache
// @Tags Admin
// @Produce json
// @Param user_id query int false "Only this user's pages"
// @Param strategy query string false "Only this strategy (with user_id)"
// @Param tags query string false "Only this tag variant (with user_id)"
// @Success 200 {object} APIResponse
// @Router /admin/recommendations/cache [delete]
func (h *Handler) ClearRecommendationCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := cacheClearQuery{
		Strategy: r.URL.Query().Get("strategy"),
		Tags:     queryList(r, "tags"),
	}
	userID, err := queryInt(r, "user_id")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	q.UserID = int64(userID)
	if !validate(rw, &q) {
		return
	}

	var n int64
	if q.UserID > 0 {
		n, err = h.recommender.Refresh(r.Context(), q.UserID, models.Strategy(q.Strategy), q.Tags)
	} else {
		n, err = h.results.ClearResults(r.Context())
	}
	if err != nil {
		respondDomainError(rw, err)
		return
	}
	h.logger.Info().Int64("user_id", q.UserID).Int64("deleted", n).Msg("recommendation cache cleared")
	rw.Success(map[string]int64{"deleted": n})
}

// AnnounceTagsUpdated publishes a tag change so that every instance drops
// the user's cached lists and pages. The body's tags are informational.
//
// @Summary Announce a tag change
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param body body tagsUpdatedRequest false "New tags"
// @Success 202 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /admin/users/{id}/tags-updated [post]
func (h *Handler) AnnounceTagsUpdated(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.events == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Event bus is disabled")
		return
	}
	userID, err := pathUserID(r, false)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	var req tagsUpdatedRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			rw.BadRequest("Invalid JSON body")
			return
		}
	}
	if !validate(rw, &req) {
		return
	}

	if err := h.events.PublishTagsUpdated(r.Context(), userID, req.Tags); err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("tags updated event not published")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Event not published")
		return
	}
	rw.Accepted(map[string]interface{}{"user_id": userID, "status": "published"})
}
