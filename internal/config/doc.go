// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package config loads the Affinity service configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults
 2. A YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/affinity/config.yaml or /etc/affinity/config.yml
 3. Environment variables from a fixed mapping (REDIS_ADDRS, BADGER_PATH,
    FULL_PRECOMPUTE_CRON, NATS_URL, LOG_LEVEL, ...)

Sections mirror the components: redis, source, cache, scoring, precompute,
recommend, ratelimit, coord, jobs, events, http, supervisor and logging.
Sections owned by a component package reuse that package's Config type;
the rest convert with helper methods (RedisConfig.Store, CacheConfig.Layer,
ScoringConfig.Scorer and so on).

Example config.yaml:

	redis:
	  addrs: ["redis:6379"]
	jobs:
	  full_precompute:
	    cron: "0 0 2 * * ?"
	  cache_sync:
	    interval: 5m
	events:
	  enabled: true
	  transport: nats
	  nats:
	    url: nats://nats:4222

Comma-separated environment values are split for list settings:

	REDIS_ADDRS=redis-a:6379,redis-b:6379
	CORS_ORIGINS=https://app.example.com
*/
package config
