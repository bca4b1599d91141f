// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer is an in-process NATS server with JetStream enabled.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedServer starts the server and waits until it accepts
// connections. A port of -1 picks a random free port.
func StartEmbeddedServer(cfg EmbeddedConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName:         "affinity-events",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		NoLog:              true,
		NoSigs:             true,
		MaxPayload:         1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL is the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Running reports whether the server is up.
func (s *EmbeddedServer) Running() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}
