// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/schedule"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// jobTree is the part of the supervisor tree that takes job services.
type jobTree interface {
	AddJobService(svc suture.Service) suture.ServiceToken
}

// addJobServices registers one supervised service per enabled job. Disabled
// jobs stay reachable through the admin trigger endpoints.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func addJobServices(tree jobTree, set *jobs.Set, logger zerolog.Logger) error {
	cfg := set.Config()

	crons := []struct {
		name string
		cron jobs.CronConfig
	}{
		{jobs.NameFullPrecompute, cfg.FullPrecompute},
		{jobs.NameIncrementalPrecompute, cfg.IncrementalPrecompute},
		{jobs.NameActivityPrecompute, cfg.ActivityPrecompute},
		{jobs.NameCacheCleanup, cfg.CacheCleanup},
	}
	for _, c := range crons {
		if !c.cron.Enabled {
			continue
		}
		job, ok := set.Job(c.name)
		if !ok {
			continue
		}
		sched, err := schedule.Parse(c.cron.Cron)
		if err != nil {
			return fmt.Errorf("job %s: %w", c.name, err)
		}
		tree.AddJobService(services.NewScheduledJobService(job, sched, logger))
		logger.Info().Str("job", c.name).Str("cron", c.cron.Cron).Msg("Scheduled job added")
	}

	intervals := []struct {
		name     string
		interval jobs.IntervalConfig
	}{
		{jobs.NameCacheSync, cfg.CacheSync},
		{jobs.NameStorageGC, cfg.StorageGC},
	}
	for _, iv := range intervals {
		if !iv.interval.Enabled {
			continue
		}
		job, ok := set.Job(iv.name)
		if !ok {
			continue
		}
		tree.AddJobService(services.NewIntervalJobService(job, iv.interval.Interval, logger))
		logger.Info().Str("job", iv.name).Dur("interval", iv.interval.Interval).Msg("Interval job added")
	}

	if cfg.Startup.Enabled {
		if job, ok := set.Job(jobs.NameStartupPrecompute); ok {
			tree.AddJobService(services.NewStartupJobService(job, cfg.Startup.Delay, logger))
			logger.Info().Dur("delay", cfg.Startup.Delay).Msg("Startup precompute added")
		}
	}
	return nil
}
