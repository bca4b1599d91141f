// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultRedisImage is the Redis image used for integration tests.
	DefaultRedisImage = "redis:7-alpine"

	// DefaultNATSImage is the NATS image used for integration tests.
	DefaultNATSImage = "nats:2.10-alpine"

	redisPort = "6379"
	natsPort  = "4222"
)

// ServiceContainer is a running single-port service.
type ServiceContainer struct {
	testcontainers.Container

	// Addr is host:port for Redis, or a nats:// URL for NATS.
	Addr string
}

// NewRedisContainer starts a Redis server.
func NewRedisContainer(ctx context.Context) (*ServiceContainer, error) {
	c, hostPort, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        DefaultRedisImage,
		ExposedPorts: []string{redisPort + "/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, redisPort)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}
	return &ServiceContainer{Container: c, Addr: hostPort}, nil
}

// NewNATSContainer starts a NATS server with JetStream enabled.
func NewNATSContainer(ctx context.Context) (*ServiceContainer, error) {
	c, hostPort, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        DefaultNATSImage,
		Cmd:          []string{"-js"},
		ExposedPorts: []string{natsPort + "/tcp"},
		WaitingFor:   wait.ForListeningPort(natsPort + "/tcp").WithStartupTimeout(30 * time.Second),
	}, natsPort)
	if err != nil {
		return nil, fmt.Errorf("start nats container: %w", err)
	}
	return &ServiceContainer{Container: c, Addr: "nats://" + hostPort}, nil
}

func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, "", fmt.Errorf("get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, "", fmt.Errorf("get mapped port: %w", err)
	}

	return container, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}
