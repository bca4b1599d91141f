// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package testinfra

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/kvstore"
)

// NewRedis starts a miniredis server for the lifetime of t and returns a
// store bound to it with the default key prefix.
func NewRedis(t testing.TB) (*kvstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return kvstore.New(client, kvstore.Config{OpTimeout: time.Second}, zerolog.Nop()), mr
}
