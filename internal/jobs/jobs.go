// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package jobs defines the batch jobs of the service: full and incremental
// precompute, activity warm-up, cache cleanup, cache sync, the one-shot
// startup precompute and the optional storage GC.
//
// Every job except storage GC runs under a named lease lock so that only one
// instance of a multi-instance deployment does the work. When the lock is
// held elsewhere the run is logged and skipped; it is not an error. Scheduled
// runs also honor the job's enabled flag, manual triggers do not.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/coord"
	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/precompute"
)

// Job names, used in logs, metrics and manual triggers.
const (
	NameFullPrecompute        = "full_precompute"
	NameIncrementalPrecompute = "incremental_precompute"
	NameActivityPrecompute    = "activity_precompute"
	NameCacheCleanup          = "cache_cleanup"
	NameCacheSync             = "cache_sync"
	NameStartupPrecompute     = "startup_precompute"
	NameStorageGC             = "storage_gc"
)

// Run outcomes as recorded in job_runs_total.
const (
	ResultSuccess  = "success"
	ResultSkipped  = "skipped"
	ResultFailure  = "failure"
	ResultDisabled = "disabled"
)

// ErrUnknownJob is returned by Trigger for a name no job carries.
var ErrUnknownJob = errors.New("unknown job")

// Precomputer is the subset of *precompute.Engine the jobs drive.
type Precomputer interface {
	RunAll(ctx context.Context, force bool) ([]precompute.Result, error)
	RunActivity(ctx context.Context) (precompute.Result, error)
}

// Cache is the subset of *cache.Layer the jobs drive.
type Cache interface {
	Sync(ctx context.Context) error
	Cleanup(ctx context.Context) (int64, error)
}

// Locker runs a function under a named cluster-wide lock.
type Locker interface {
	RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error)
}

// GarbageCollector reclaims space in the local system-of-record store.
type GarbageCollector interface {
	RunGC(ctx context.Context) error
}

var (
	_ Precomputer = (*precompute.Engine)(nil)
	_ Cache       = (*cache.Layer)(nil)
	_ Locker      = (*coord.Locker)(nil)
)

// Deps are the collaborators of the job set. GC may be nil.
type Deps struct {
	Precompute Precomputer
	Cache      Cache
	Locker     Locker
	GC         GarbageCollector
}

// Job is one named unit of batch work.
type Job struct {
	name    string
	lock    string
	enabled bool
	fn      func(ctx context.Context) error
	set     *Set
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// Lock returns the lock name, or "" for instance-local jobs.
func (j *Job) Lock() string { return j.lock }

// Enabled reports the configured enabled flag.
func (j *Job) Enabled() bool { return j.enabled }

// Run executes the job if it is enabled. Lock contention returns nil.
func (j *Job) Run(ctx context.Context) error {
	if !j.enabled {
		j.set.logger.Debug().Str("job", j.name).Msg("job disabled, skipping")
		metrics.RecordJobRun(j.name, ResultDisabled, 0)
		return nil
	}
	_, err := j.set.execute(ctx, j)
	return err
}

// Set holds every job of the service.
type Set struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger
	jobs   map[string]*Job
}

// New builds the job set.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func New(deps Deps, cfg Config, logger zerolog.Logger) *Set {
	s := &Set{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With().Str("component", "jobs").Logger(),
		jobs:   make(map[string]*Job),
	}

	s.add(NameFullPrecompute, coord.LockFullPrecompute, cfg.FullPrecompute.Enabled, s.fullPrecompute)
	s.add(NameIncrementalPrecompute, coord.LockIncrementalPrecompute, cfg.IncrementalPrecompute.Enabled, s.incrementalPrecompute)
	s.add(NameActivityPrecompute, coord.LockActivityPrecompute, cfg.ActivityPrecompute.Enabled, s.activityPrecompute)
	s.add(NameCacheCleanup, coord.LockCacheCleanup, cfg.CacheCleanup.Enabled, s.cacheCleanup)
	s.add(NameCacheSync, coord.LockCacheSync, cfg.CacheSync.Enabled, s.cacheSync)
	s.add(NameStartupPrecompute, coord.LockStartupPrecompute, cfg.Startup.Enabled, s.incrementalPrecompute)
	if deps.GC != nil {
		s.add(NameStorageGC, "", cfg.StorageGC.Enabled, s.storageGC)
	}
	return s
}

func (s *Set) add(name, lock string, enabled bool, fn func(ctx context.Context) error) {
	s.jobs[name] = &Job{name: name, lock: lock, enabled: enabled, fn: fn, set: s}
}

// Config returns the configuration the set was built with.
func (s *Set) Config() Config {
	return s.cfg
}

// Job returns the named job.
func (s *Set) Job(name string) (*Job, bool) {
	j, ok := s.jobs[name]
	return j, ok
}

// Names lists the registered job names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trigger runs the named job now, ignoring its enabled flag. It returns
// the run outcome; lock contention yields ResultSkipped with a nil error.
func (s *Set) Trigger(ctx context.Context, name string) (string, error) {
	j, ok := s.jobs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.logger.Info().Str("job", name).Msg("manual trigger")
	return s.execute(ctx, j)
}

func (s *Set) execute(ctx context.Context, j *Job) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	logger := s.logger.With().Str("job", j.name).Logger()
	start := time.Now()

	ran := true
	var err error
	if j.lock == "" {
		err = j.fn(ctx)
	} else {
		ran, err = s.deps.Locker.RunExclusive(ctx, j.lock, j.fn)
	}
	duration := time.Since(start)

	result := ResultSuccess
	switch {
	case errors.Is(err, precompute.ErrAlreadyRunning):
		logger.Info().Msg("precompute already running on this instance, skipping")
		result, err = ResultSkipped, nil
	case err != nil:
		logger.Error().Err(err).Dur("duration", duration).Msg("job failed")
		result = ResultFailure
	case !ran:
		logger.Info().Str("lock", j.lock).Msg("job running elsewhere, skipping")
		result = ResultSkipped
	default:
		logger.Info().Dur("duration", duration).Msg("job complete")
	}

	metrics.RecordJobRun(j.name, result, duration)
	if err != nil {
		return result, fmt.Errorf("job %s: %w", j.name, err)
	}
	return result, nil
}

func (s *Set) fullPrecompute(ctx context.Context) error {
	results, err := s.deps.Precompute.RunAll(ctx, true)
	s.logResults(results)
	return err
}

func (s *Set) incrementalPrecompute(ctx context.Context) error {
	results, err := s.deps.Precompute.RunAll(ctx, false)
	s.logResults(results)
	return err
}

func (s *Set) activityPrecompute(ctx context.Context) error {
	res, err := s.deps.Precompute.RunActivity(ctx)
	if err != nil {
		return err
	}
	s.logResults([]precompute.Result{res})
	return nil
}

func (s *Set) cacheCleanup(ctx context.Context) error {
	n, err := s.deps.Cache.Cleanup(ctx)
	if err != nil {
		return err
	}
	s.logger.Info().Int64("keys", n).Msg("cache cleanup removed keys")
	return nil
}

func (s *Set) cacheSync(ctx context.Context) error {
	return s.deps.Cache.Sync(ctx)
}

func (s *Set) storageGC(ctx context.Context) error {
	return s.deps.GC.RunGC(ctx)
}

func (s *Set) logResults(results []precompute.Result) {
	for _, r := range results {
		s.logger.Info().
			Str("kind", r.Kind).
			Str("mode", string(r.Mode)).
			Int("processed", r.Processed).
			Int("skipped", r.Skipped).
			Int("failed", r.Failed).
			Dur("duration", r.Duration).
			Msg("precompute run finished")
	}
}
