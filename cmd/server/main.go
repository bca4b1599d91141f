// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/affinity/internal/api"
	"github.com/tomtom215/affinity/internal/cache"
	"github.com/tomtom215/affinity/internal/candidate"
	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/coord"
	"github.com/tomtom215/affinity/internal/jobs"
	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/precompute"
	"github.com/tomtom215/affinity/internal/ratelimit"
	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/scoring"
	"github.com/tomtom215/affinity/internal/source"
	"github.com/tomtom215/affinity/internal/supervisor"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging)
	logging.Info().Str("listen_addr", cfg.HTTP.ListenAddr).Msg("Starting Affinity")

	watchLogLevel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.Logger()

	// === STORAGE ===

	store := kvstore.New(kvstore.NewClient(cfg.Redis.ClientOptions()), cfg.Redis.Store(), logger)
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}()
	if err := store.Ping(ctx); err != nil {
		// The breaker and the fallbacks keep serving; a later ping may succeed.
		logging.Warn().Err(err).Msg("Redis not reachable at startup")
	}

	users, err := source.OpenBadger(cfg.Source.Badger(), logger)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Source.Path).Msg("Failed to open user store")
	}
	defer func() {
		if err := users.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing user store")
		}
	}()

	// === RECOMMENDATION CORE ===

	layer := cache.New(store, users, cfg.Cache.Layer(), logger)
	scorer := scoring.NewScorer(cfg.Scoring.Scorer())
	engine := precompute.New(layer, scorer, cfg.Precompute, logger)
	selector := candidate.New(layer, engine, cfg.Recommend.CandidateTopN, logger)
	limiter := ratelimit.New(store, cfg.RateLimit.Limiter(), logger)
	locker := coord.NewLocker(store, cfg.Coord.Lease, logger)

	recommender, err := recommend.NewEngine(recommend.Deps{
		Cache:    layer,
		Selector: selector,
		Lists:    engine,
		Activity: engine,
		Limiter:  limiter,
		Feedback: users,
		Scorer:   scorer,
	}, cfg.Recommend, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	jobSet := jobs.New(jobs.Deps{
		Precompute: engine,
		Cache:      layer,
		Locker:     locker,
		GC:         users,
	}, cfg.Jobs, logger)

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if err := addJobServices(tree, jobSet, logger); err != nil {
		logging.Fatal().Err(err).Msg("Failed to schedule jobs")
	}

	publisher, closeEvents, err := initEvents(ctx, cfg, tree, layer, engine, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start event bus")
	}
	defer closeEvents()

	deps := api.Deps{
		Recommender: recommender,
		Jobs:        jobSet,
		Precompute:  engine,
		Results:     layer,
		Checks:      map[string]api.Pinger{"redis": store},
	}
	if publisher != nil {
		deps.Events = publisher
	}
	handler := api.NewHandler(ctx, deps, logger)
	server := api.NewServer(cfg.HTTP, api.NewRouter(handler, cfg.HTTP, limiter))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.HTTP.ShutdownTimeout, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// watchLogLevel reapplies logging.level whenever the config file changes.
// Other settings need a restart.
func watchLogLevel() {
	path := config.FindConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
			return
		}
		if cfg.Logging.Level != logging.GetLevel().String() {
			logging.SetLevelString(cfg.Logging.Level)
			logging.Info().Str("level", cfg.Logging.Level).Msg("Log level changed")
		}
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
