// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/schedule"
)

// Job is a named unit of batch work. Run logs its own failures and is
// expected to return nil on lock contention.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule computes the next activation after a given time. A zero result
// means the schedule never fires again.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

var (
	_ Job      = (*jobs.Job)(nil)
	_ Schedule = (*schedule.Schedule)(nil)
)

// ScheduledJobService runs a job on a cron schedule. Job errors are logged
// and do not restart the service.
type ScheduledJobService struct {
	job    Job
	sched  Schedule
	logger zerolog.Logger
	name   string
}

// NewScheduledJobService creates a cron-driven job service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScheduledJobService(job Job, sched Schedule, logger zerolog.Logger) *ScheduledJobService {
	return &ScheduledJobService{
		job:    job,
		sched:  sched,
		logger: logger.With().Str("service", "cron").Str("job", job.Name()).Logger(),
		name:   "cron-" + job.Name(),
	}
}

// Serve implements suture.Service.
func (s *ScheduledJobService) Serve(ctx context.Context) error {
	s.logger.Info().Str("cron", s.sched.String()).Msg("scheduled job service starting")

	for {
		next := s.sched.Next(time.Now())
		if next.IsZero() {
			s.logger.Warn().Str("cron", s.sched.String()).Msg("schedule never fires, stopping")
			return suture.ErrDoNotRestart
		}
		s.logger.Debug().Time("next_run", next).Msg("next run scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			runJob(ctx, s.job, s.logger)
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *ScheduledJobService) String() string {
	return s.name
}

// IntervalJobService runs a job every fixed period.
type IntervalJobService struct {
	job      Job
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewIntervalJobService creates an interval job service. A non-positive
// interval defaults to five minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIntervalJobService(job Job, interval time.Duration, logger zerolog.Logger) *IntervalJobService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &IntervalJobService{
		job:      job,
		interval: interval,
		logger:   logger.With().Str("service", "interval").Str("job", job.Name()).Logger(),
		name:     "interval-" + job.Name(),
	}
}

// Serve implements suture.Service.
func (s *IntervalJobService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("interval job service starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runJob(ctx, s.job, s.logger)
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *IntervalJobService) String() string {
	return s.name
}

// StartupJobService runs a job once after a delay and then finishes for
// good.
type StartupJobService struct {
	job    Job
	delay  time.Duration
	logger zerolog.Logger
	name   string
}

// NewStartupJobService creates a one-shot job service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStartupJobService(job Job, delay time.Duration, logger zerolog.Logger) *StartupJobService {
	return &StartupJobService{
		job:    job,
		delay:  delay,
		logger: logger.With().Str("service", "startup").Str("job", job.Name()).Logger(),
		name:   "startup-" + job.Name(),
	}
}

// Serve implements suture.Service. It returns suture.ErrDoNotRestart once
// the job has run, whatever its outcome.
func (s *StartupJobService) Serve(ctx context.Context) error {
	if s.delay > 0 {
		s.logger.Info().Dur("delay", s.delay).Msg("startup job scheduled")
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	runJob(ctx, s.job, s.logger)
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for suture logs.
func (s *StartupJobService) String() string {
	return s.name
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func runJob(ctx context.Context, job Job, logger zerolog.Logger) {
	if err := job.Run(ctx); err != nil {
		logger.Warn().Err(err).Msg("job run failed, waiting for next trigger")
	}
}
