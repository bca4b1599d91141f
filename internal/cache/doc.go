// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package cache is the Cache Layer of the recommendation core.

Layer sits on the shared Redis cache (package kvstore) and the
system-of-record, and exposes everything the precompute engine, the
candidate selector and the recommendation service read:

  - population snapshots of users and teams, replaced atomically
  - per-subject top-K similarity and complement lists
  - cached activity scores
  - the tag index, a memoized "users holding any of these tags" filter
  - the short-lived recommendation result cache

# Key Layout

All keys live under the kvstore prefix (default "microde:"):

	users:all                 hash   user id -> user JSON        (10m)
	teams:all                 hash   team id -> team JSON        (10m)
	similarity:<id>           zset   target id -> score          (24h)
	complement:<id>           zset   target id -> score          (24h)
	activity:<id>             string activity score              (24h)
	tags:users:<a,b,...>      string JSON array of user ids      (1h)
	recommend:userId:...      string JSON result page            (5m)

# Snapshot Freshness

A snapshot older than the freshness window is still served, but the read
starts a background resync. An empty snapshot is resynced synchronously.
Concurrent resyncs of the same collection collapse into one through
singleflight.

# Point Lookups

User(id) checks an in-process LRU (see LRU), then the snapshot hash, then
the system-of-record. Results from any tier are memoized in the LRU for a
short TTL.

# Ranking

TopKHeap keeps the best K entries of a subject while its candidates are
scored, in the same order SortEntries produces.
*/
package cache
