// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package kvstore wraps the shared Redis cache with the primitives the
// recommendation core needs: whole-hash replace, ordered score sets, string
// keys with TTL, pattern deletes, an atomic increment-with-expiry and the
// compare-and-set operations behind the lease lock.
//
// Every call runs under a per-operation timeout and a gobreaker circuit
// breaker named "redis". A missing key is reported as ErrNotFound and does
// not count as a breaker failure.
//
// All keys are relative. The store prepends its configured prefix
// (default "microde:") before talking to Redis.
package kvstore
