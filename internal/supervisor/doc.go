// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package supervisor provides process supervision using suture v4.

Every long-running part of the service runs under a hierarchical supervisor
tree with automatic restart and graceful shutdown.

# Overview

	RootSupervisor ("affinity")
	├── JobsSupervisor ("jobs-layer")
	│   ├── ScheduledJobService (full, incremental, activity, cleanup)
	│   ├── IntervalJobService (cache sync, storage GC)
	│   └── StartupJobService (one shot)
	├── MessagingSupervisor ("messaging-layer")
	│   └── EventConsumerService (users.tags.updated)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashing batch job restarts on its own without touching the HTTP server,
and the event consumer can reconnect to NATS independently.

# Usage

	tree, err := supervisor.NewSupervisorTree(slogLogger, cfg.Supervisor)
	if err != nil {
	    return err
	}
	tree.AddJobService(services.NewScheduledJobService(job, sched, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))

	if err := tree.Serve(ctx); err != nil {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}

# Failure Handling

Failures increment a counter that decays over FailureDecay seconds. Above
FailureThreshold the supervisor waits FailureBackoff before the next restart.
Services that finish for good return suture.ErrDoNotRestart.

Events (start, stop, panic, backoff) are logged through sutureslog, bridged
to zerolog by the logging package.
*/
package supervisor
