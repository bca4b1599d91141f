// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package coord provides the cross-instance lease lock that keeps batch jobs
// from running on more than one instance at a time.
//
// A lock is a key in the shared cache holding a random token with a lease
// TTL. Acquisition never blocks: if another holder owns the key,
// TryAcquire returns (nil, nil). While held, a watchdog goroutine renews the
// lease every third of its length; if the process dies the key expires on
// its own. Only the token holder can renew or release.
//
//	ran, err := locker.RunExclusive(ctx, coord.LockFullPrecompute, func(ctx context.Context) error {
//	    return engine.RunAll(ctx, true)
//	})
//	if !ran {
//	    // another instance owns this run
//	}
package coord
