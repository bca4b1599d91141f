// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/metrics"
)

// Lock names used by the batch jobs.
const (
	LockFullPrecompute        = "full:precompute"
	LockIncrementalPrecompute = "incremental:precompute"
	LockActivityPrecompute    = "activity:precompute"
	LockCacheCleanup          = "cache:cleanup"
	LockCacheSync             = "cache:sync"
	LockStartupPrecompute     = "startup:precompute"
)

const keyPrefix = "lock:"

// DefaultLease is the lease length when none is configured.
const DefaultLease = 30 * time.Second

// Store is the subset of *kvstore.Store the locker needs.
type Store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Locker hands out leases.
type Locker struct {
	store  Store
	lease  time.Duration
	logger zerolog.Logger
}

// NewLocker creates a Locker with the given lease length.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewLocker(store Store, lease time.Duration, logger zerolog.Logger) *Locker {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Locker{
		store:  store,
		lease:  lease,
		logger: logger.With().Str("component", "coord").Logger(),
	}
}

// Lease is a held lock. Release it when the critical section ends.
type Lease struct {
	name   string
	key    string
	token  string
	ttl    time.Duration
	store  Store
	logger zerolog.Logger

	stop     chan struct{}
	done     chan struct{}
	lost     chan struct{}
	lostOnce sync.Once
	relOnce  sync.Once
}

// TryAcquire attempts to take the named lock without blocking. It returns
// (nil, nil) when another holder owns it.
func (l *Locker) TryAcquire(ctx context.Context, name string) (*Lease, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, l.lease)
	if err != nil {
		metrics.RecordLockAcquisition(name, "error")
		return nil, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		metrics.RecordLockAcquisition(name, "contended")
		return nil, nil
	}
	metrics.RecordLockAcquisition(name, "acquired")

	lease := &Lease{
		name:   name,
		key:    key,
		token:  token,
		ttl:    l.lease,
		store:  l.store,
		logger: l.logger.With().Str("lock", name).Logger(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		lost:   make(chan struct{}),
	}
	go lease.watchdog()

	l.logger.Debug().Str("lock", name).Dur("lease", l.lease).Msg("lock acquired")
	return lease, nil
}

// RunExclusive runs fn while holding the named lock. If the lock is held
// elsewhere fn is not run and ran is false. fn's context is canceled if the
// lease is lost.
func (l *Locker) RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) (ran bool, err error) {
	lease, err := l.TryAcquire(ctx, name)
	if err != nil {
		return false, err
	}
	if lease == nil {
		l.logger.Info().Str("lock", name).Msg("lock held by another instance, skipping")
		return false, nil
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := lease.Release(relCtx); rerr != nil {
			l.logger.Warn().Err(rerr).Str("lock", name).Msg("lock release failed, lease will expire")
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-lease.Lost():
			cancel()
		case <-runCtx.Done():
		}
	}()

	return true, fn(runCtx)
}

// Name returns the lock name.
func (le *Lease) Name() string {
	return le.name
}

// Token returns the holder token.
func (le *Lease) Token() string {
	return le.token
}

// Lost is closed when the watchdog finds the lock no longer held by this
// lease.
func (le *Lease) Lost() <-chan struct{} {
	return le.lost
}

// Release stops renewal and deletes the lock if this lease still holds it.
// Releasing twice, or after the lock was taken over, is a no-op.
func (le *Lease) Release(ctx context.Context) error {
	var err error
	le.relOnce.Do(func() {
		close(le.stop)
		<-le.done

		var ok bool
		ok, err = le.store.CompareAndDelete(ctx, le.key, le.token)
		if err != nil {
			err = fmt.Errorf("release lock %q: %w", le.name, err)
			return
		}
		if !ok {
			le.logger.Debug().Msg("lock already gone at release")
		}
	})
	return err
}

// watchdog renews the lease every ttl/3 until released or lost.
func (le *Lease) watchdog() {
	defer close(le.done)

	interval := le.ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-le.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := le.store.CompareAndExpire(ctx, le.key, le.token, le.ttl)
			cancel()

			switch {
			case err != nil:
				// Transient; the remaining lease covers the next attempts.
				metrics.LockRenewalFailures.WithLabelValues(le.name).Inc()
				le.logger.Warn().Err(err).Msg("lease renewal failed")
			case !ok:
				metrics.LockRenewalFailures.WithLabelValues(le.name).Inc()
				le.logger.Warn().Msg("lease lost")
				le.lostOnce.Do(func() { close(le.lost) })
				return
			}
		}
	}
}
