// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package testinfra provides shared test infrastructure.
//
// Unit tests use the in-process helpers: NewRedis starts a miniredis server
// and returns a kvstore.Store bound to it, and StaticSource is an in-memory
// system-of-record with call counters and injectable failures.
//
//	func TestSomething(t *testing.T) {
//	    kv, mr := testinfra.NewRedis(t)
//	    src := testinfra.NewStaticSource(testinfra.SampleUsers()...)
//	    layer := cache.New(kv, src, cache.Config{}, zerolog.Nop())
//	    mr.FastForward(time.Minute)
//	    // ...
//	}
//
// # Containers
//
// Files built with the integration tag start real Redis and NATS servers
// with testcontainers-go. Those tests are skipped when Docker is not
// available:
//
//	go test -tags integration ./internal/testinfra/...
package testinfra
