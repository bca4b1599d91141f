// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// healthCheckTimeout bounds each dependency ping.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the body of /healthz.
type HealthStatus struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

// Health pings every dependency. Any failure answers 503 so load balancers
// take the instance out.
//
// @Summary Health check
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus}
// @Failure 503 {object} APIResponse
// @Router /healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{
		Status:        "healthy",
		Checks:        make(map[string]string, len(names)),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := h.checks[name].Ping(ctx)
		cancel()
		if err != nil {
			status.Checks[name] = err.Error()
			status.Status = "degraded"
			continue
		}
		status.Checks[name] = "ok"
	}

	rw := NewResponseWriter(w, r)
	if status.Status != "healthy" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "A dependency is unavailable", status)
		return
	}
	rw.Success(status)
}
