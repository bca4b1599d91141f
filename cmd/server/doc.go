// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package main is the entry point for the Affinity server.
//
// Affinity recommends users to each other by tag overlap, complementary
// tags and recent activity. Scores are precomputed in batch into Redis and
// blended per request.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml, then environment (Koanf v2)
//  2. Redis: shared cache, locks and rate-limit counters behind a circuit breaker
//  3. BadgerDB: system of record for users, teams and feedback
//  4. Recommendation core: cache layer, scorer, precompute engine, selector
//  5. Jobs: cron, interval and startup services under the supervisor tree
//  6. Event bus (optional): TagsUpdated over gochannel or NATS JetStream
//  7. HTTP server: REST API, Prometheus metrics and Swagger documentation
//
// # Configuration
//
// Configuration is loaded with layered sources (highest priority wins):
//   - Environment variables (REDIS_ADDR, BADGER_PATH, NATS_URL, LOG_LEVEL, ...)
//   - Config file (CONFIG_PATH or /etc/affinity/config.yaml)
//   - Built-in defaults
//
// Changes to logging.level in the config file apply without a restart.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server gracefully, lets running jobs observe cancellation, and then the
// event transport, Redis client and BadgerDB are closed.
//
// # Example Usage
//
//	export REDIS_ADDR=localhost:6379
//	export BADGER_PATH=/var/lib/affinity/badger
//	./affinity
//
// Clustered with an external NATS server:
//
//	export EVENTS_TRANSPORT=nats
//	export NATS_URL=nats://nats:4222
//	./affinity
package main
