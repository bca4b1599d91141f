// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed by the ops HTTP server at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Shared cache (Redis) metrics:
  - kv_operation_duration_seconds: per-command latency (histogram)
    Labels: operation
  - kv_operation_errors_total: failed commands (counter)
    Labels: operation, error_type
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

Cache layer metrics:
  - cache_hits_total / cache_misses_total (counter)
    Labels: cache (snapshot, user, topk, activity, tag_index, results)
  - cache_snapshot_size: entries in the last synced snapshot (gauge)
    Labels: collection

Precompute metrics:
  - precompute_run_duration_seconds (histogram) Labels: kind, mode
  - precompute_subjects_total (counter) Labels: kind, outcome
  - precompute_running (gauge) Labels: kind

Coordination and rate limiting:
  - lock_acquisitions_total (counter) Labels: lock, result
  - lock_renewal_failures_total (counter) Labels: lock
  - rate_limit_decisions_total (counter) Labels: scope, result
  - rate_limit_fail_open_total (counter)

Recommendation metrics:
  - recommend_requests_total (counter) Labels: strategy, source
  - recommend_duration_seconds (histogram) Labels: strategy
  - recommend_candidates (histogram)
  - recommend_feedback_total (counter) Labels: feedback

Jobs and events:
  - job_runs_total (counter) Labels: job, result
  - job_duration_seconds (histogram) Labels: job
  - events_consumed_total (counter) Labels: topic, result

HTTP metrics:
  - http_requests_total, http_request_duration_seconds, http_requests_in_flight

# Example Alerts

	groups:
	  - name: affinity
	    rules:
	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state{name="redis"} == 2
	        for: 1m
	      - alert: PrecomputeFailing
	        expr: rate(precompute_subjects_total{outcome="failed"}[15m]) > 0
	        for: 15m
*/
package metrics
