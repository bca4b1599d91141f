// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package precompute builds the per-user top-K similarity and complement lists
and warms the activity score cache.

A run walks the active user snapshot and, for each subject, scores every other
active user with a non-empty tag set, keeps positive scores, orders them by
descending score (ties by ascending target id), truncates to K and replaces
the subject's stored list in one atomic write.

# Modes

Full runs recompute every subject. Incremental runs skip subjects that still
hold a live list, so they only fill gaps left by expiry or new users.
RecomputeUser always recomputes a single subject.

# Concurrency

Subjects are processed by a bounded errgroup pool. A failure on one subject
is logged and counted and the batch continues. Cancellation is observed
between subjects. Each kind has its own run state; starting a kind that is
already running on this instance returns ErrAlreadyRunning. Cross-instance
exclusion is the caller's job (see package coord).

# Usage

	eng := precompute.New(layer, scorer, precompute.DefaultConfig(), logger)
	res, err := eng.RunSimilarity(ctx, false)
*/
package precompute
