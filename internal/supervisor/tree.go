// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64 `koanf:"failure_threshold"`

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64 `koanf:"failure_decay"`

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration `koanf:"failure_backoff"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DefaultTreeConfig returns suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree manages the hierarchical supervisor structure.
//
// The tree is organized into three layers:
//   - jobs: cron, interval and startup batch job services
//   - messaging: the tag update event consumer
//   - api: HTTP server
//
// A crash in the batch layer does not take down request serving.
type SupervisorTree struct {
	root      *suture.Supervisor
	jobs      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the EventHook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("affinity", rootSpec)
	jobs := suture.New("jobs-layer", childSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(jobs)
	root.Add(messaging)
	root.Add(api)

	return &SupervisorTree{
		root:      root,
		jobs:      jobs,
		messaging: messaging,
		api:       api,
		logger:    logger,
		config:    config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddJobService adds a batch job service to the jobs layer.
func (t *SupervisorTree) AddJobService(svc suture.Service) suture.ServiceToken {
	return t.jobs.Add(svc)
}

// AddMessagingService adds a service to the messaging layer.
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// RemoveJobService removes a service added with AddJobService.
func (t *SupervisorTree) RemoveJobService(token suture.ServiceToken) error {
	return t.jobs.Remove(token)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// The returned channel receives the error (or nil) when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns the services that failed to stop within
// the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
