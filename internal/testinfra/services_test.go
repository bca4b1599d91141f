// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/coord"
	"github.com/tomtom215/affinity/internal/kvstore"
	"github.com/tomtom215/affinity/internal/ratelimit"
)

// TestRedisContainer_Integration runs the lock and limiter against a real
// Redis server so the Lua scripts are checked by the real interpreter.
func TestRedisContainer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create Redis container: %v", err)
	}
	defer CleanupContainer(t, ctx, redisC.Container)

	client := kvstore.NewClient(kvstore.ClientOptions{Addrs: []string{redisC.Addr}})
	defer client.Close()
	store := kvstore.New(client, kvstore.Config{}, zerolog.Nop())

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	locker := coord.NewLocker(store, time.Second, zerolog.Nop())
	lease, err := locker.TryAcquire(ctx, coord.LockFullPrecompute)
	if err != nil || lease == nil {
		t.Fatalf("TryAcquire() = %v, %v", lease, err)
	}
	time.Sleep(1500 * time.Millisecond)
	if other, _ := locker.TryAcquire(ctx, coord.LockFullPrecompute); other != nil {
		t.Error("lease was not renewed past its TTL")
	}
	if err := lease.Release(ctx); err != nil {
		t.Errorf("Release() error = %v", err)
	}

	limiter := ratelimit.New(store, ratelimit.Config{}, zerolog.Nop())
	var allowed int
	for range 5 {
		if limiter.Allow(ctx, "rate:limit:it", 3, time.Minute) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3", allowed)
	}
}

func TestNATSContainer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	natsC, err := NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create NATS container: %v", err)
	}
	defer CleanupContainer(t, ctx, natsC.Container)

	nc, err := nats.Connect(natsC.Addr)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		t.Fatalf("JetStream() error = %v", err)
	}
	if _, err := js.AccountInfo(); err != nil {
		t.Errorf("AccountInfo() error = %v, JetStream not enabled", err)
	}
}
