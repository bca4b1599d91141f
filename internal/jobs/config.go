// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package jobs

import (
	"fmt"
	"time"

	"github.com/tomtom215/affinity/internal/schedule"
)

// CronConfig enables a job and sets its cron expression.
type CronConfig struct {
	Enabled bool   `koanf:"enabled"`
	Cron    string `koanf:"cron"`
}

// IntervalConfig enables a job that runs on a fixed period.
type IntervalConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// StartupConfig enables the one-shot job run after boot.
type StartupConfig struct {
	Enabled bool          `koanf:"enabled"`
	Delay   time.Duration `koanf:"delay"`
}

// Config holds the schedule and enabled flag of every job.
type Config struct {
	FullPrecompute        CronConfig     `koanf:"full_precompute"`
	IncrementalPrecompute CronConfig     `koanf:"incremental_precompute"`
	ActivityPrecompute    CronConfig     `koanf:"activity_precompute"`
	CacheCleanup          CronConfig     `koanf:"cache_cleanup"`
	CacheSync             IntervalConfig `koanf:"cache_sync"`
	StorageGC             IntervalConfig `koanf:"storage_gc"`
	Startup               StartupConfig  `koanf:"startup"`

	// Timeout bounds a single run. Zero means no bound.
	Timeout time.Duration `koanf:"timeout"`
}

// DefaultConfig returns the production schedules.
func DefaultConfig() Config {
	return Config{
		FullPrecompute:        CronConfig{Enabled: true, Cron: "0 2 * * *"},
		IncrementalPrecompute: CronConfig{Enabled: true, Cron: "0 */6 * * *"},
		ActivityPrecompute:    CronConfig{Enabled: true, Cron: "0 * * * *"},
		CacheCleanup:          CronConfig{Enabled: true, Cron: "0 3 * * *"},
		CacheSync:             IntervalConfig{Enabled: true, Interval: 300000 * time.Millisecond},
		StorageGC:             IntervalConfig{Enabled: false, Interval: 10 * time.Minute},
		Startup:               StartupConfig{Enabled: true, Delay: 10 * time.Second},
		Timeout:               2 * time.Hour,
	}
}

// Validate checks every cron expression and period.
func (c *Config) Validate() error {
	crons := []struct {
		name string
		cfg  CronConfig
	}{
		{NameFullPrecompute, c.FullPrecompute},
		{NameIncrementalPrecompute, c.IncrementalPrecompute},
		{NameActivityPrecompute, c.ActivityPrecompute},
		{NameCacheCleanup, c.CacheCleanup},
	}
	for _, cr := range crons {
		if err := schedule.Validate(cr.cfg.Cron); err != nil {
			return fmt.Errorf("jobs.%s.cron: %w", cr.name, err)
		}
	}
	if c.CacheSync.Enabled && c.CacheSync.Interval <= 0 {
		return fmt.Errorf("jobs.cache_sync.interval must be positive")
	}
	if c.StorageGC.Enabled && c.StorageGC.Interval <= 0 {
		return fmt.Errorf("jobs.storage_gc.interval must be positive")
	}
	if c.Startup.Delay < 0 {
		return fmt.Errorf("jobs.startup.delay must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("jobs.timeout must not be negative")
	}
	return nil
}
