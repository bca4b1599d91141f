// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Shared cache metrics
	KVOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Duration of shared cache commands in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	KVOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kv_operation_errors_total",
			Help: "Total number of failed shared cache commands",
		},
		[]string{"operation", "error_type"}, // timeout, canceled, breaker_open, other
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Cache Layer Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache layer hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache layer misses",
		},
		[]string{"cache"},
	)

	CacheSnapshotSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_snapshot_size",
			Help: "Number of entries written by the last snapshot sync",
		},
		[]string{"collection"}, // users, teams
	)

	CacheSnapshotSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_snapshot_syncs_total",
			Help: "Total number of snapshot syncs",
		},
		[]string{"collection", "trigger"}, // trigger: empty, stale, scheduled
	)

	// Precompute Metrics
	PrecomputeRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "precompute_run_duration_seconds",
			Help:    "Duration of precompute batch runs in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind", "mode"},
	)

	PrecomputeSubjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precompute_subjects_total",
			Help: "Total number of precompute subjects by outcome",
		},
		[]string{"kind", "outcome"}, // processed, skipped, failed
	)

	PrecomputeRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "precompute_running",
			Help: "Whether a precompute batch of this kind is running (0 or 1)",
		},
		[]string{"kind"},
	)

	PrecomputeLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "precompute_last_success_timestamp",
			Help: "Unix timestamp of the last completed precompute batch",
		},
		[]string{"kind"},
	)

	// Coordination Metrics
	LockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_acquisitions_total",
			Help: "Total number of lease lock acquisition attempts",
		},
		[]string{"lock", "result"}, // acquired, contended, error
	)

	LockRenewalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_renewal_failures_total",
			Help: "Total number of lease renewals that found the lock gone or failed",
		},
		[]string{"lock"},
	)

	// Rate Limiter Metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"scope", "result"}, // result: allowed, denied
	)

	RateLimitFailOpen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_fail_open_total",
			Help: "Total number of requests allowed because the limiter backend failed",
		},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by result source",
		},
		[]string{"strategy", "source"}, // source: computed, cache, fallback, rate_limited
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RecommendCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates",
			Help:    "Number of candidates scored per recommendation request",
			Buckets: []float64{0, 10, 25, 50, 100, 150, 200},
		},
	)

	RecommendFeedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_feedback_total",
			Help: "Total number of recorded recommendation feedback",
		},
		[]string{"feedback"}, // like, dislike
	)

	// Job Metrics
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total number of batch job runs by result",
		},
		[]string{"job", "result"}, // success, skipped, failure, disabled
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of batch job runs in seconds",
			Buckets: []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"job"},
	)

	// Event Metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of consumed events by result",
		},
		[]string{"topic", "result"}, // processed, invalid, failed
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of published events",
		},
		[]string{"topic"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordKVOperation records a shared cache command. errorType is empty on
// success.
func RecordKVOperation(operation string, duration time.Duration, errorType string) {
	KVOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errorType != "" {
		KVOperationErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordCacheLookup records a cache layer hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
	} else {
		CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordSnapshotSync records a snapshot refresh.
func RecordSnapshotSync(collection, trigger string, size int) {
	CacheSnapshotSyncs.WithLabelValues(collection, trigger).Inc()
	CacheSnapshotSize.WithLabelValues(collection).Set(float64(size))
}

// RecordPrecomputeRun records a finished batch.
func RecordPrecomputeRun(kind, mode string, duration time.Duration, processed, skipped, failed int, err error) {
	PrecomputeRunDuration.WithLabelValues(kind, mode).Observe(duration.Seconds())
	PrecomputeSubjects.WithLabelValues(kind, "processed").Add(float64(processed))
	PrecomputeSubjects.WithLabelValues(kind, "skipped").Add(float64(skipped))
	PrecomputeSubjects.WithLabelValues(kind, "failed").Add(float64(failed))
	if err == nil {
		PrecomputeLastSuccess.WithLabelValues(kind).Set(float64(time.Now().Unix()))
	}
}

// SetPrecomputeRunning flags a batch kind as running or idle.
func SetPrecomputeRunning(kind string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	PrecomputeRunning.WithLabelValues(kind).Set(v)
}

// RecordLockAcquisition records a TryAcquire outcome.
func RecordLockAcquisition(lock, result string) {
	LockAcquisitions.WithLabelValues(lock, result).Inc()
}

// RecordRateLimit records a limiter decision.
func RecordRateLimit(scope string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	RateLimitDecisions.WithLabelValues(scope, result).Inc()
}

// RecordRecommend records a recommendation request.
func RecordRecommend(strategy, source string, duration time.Duration) {
	RecommendRequests.WithLabelValues(strategy, source).Inc()
	RecommendDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordFeedback records a persisted feedback value.
func RecordFeedback(value int) {
	label := "dislike"
	if value > 0 {
		label = "like"
	}
	RecommendFeedback.WithLabelValues(label).Inc()
}

// RecordJobRun records a batch job execution.
func RecordJobRun(job, result string, duration time.Duration) {
	JobRuns.WithLabelValues(job, result).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordEventConsumed records a consumed event.
func RecordEventConsumed(topic, result string) {
	EventsConsumed.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
