// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package services provides suture.Service wrappers for the service's
long-running components.

Each wrapper translates a lifecycle pattern into suture's context-aware
Serve method:

  - ScheduledJobService: runs a job at each cron activation
  - IntervalJobService: runs a job every fixed period
  - StartupJobService: runs a job once after a delay, then returns
    suture.ErrDoNotRestart
  - EventConsumerService: blocks in an event consumer, restarted on failure
  - HTTPServerService: binds the API listener, serves requests under the
    supervised context and shuts down gracefully

Job failures are logged and wait for the next trigger; they never restart the
wrapping service. Lock contention is not a failure.
*/
package services
