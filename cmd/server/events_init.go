// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/affinity/internal/config"
	"github.com/tomtom215/affinity/internal/events"
	"github.com/tomtom215/affinity/internal/logging"
	"github.com/tomtom215/affinity/internal/supervisor/services"
)

// messagingTree is the part of the supervisor tree that takes messaging
// services.
type messagingTree interface {
	AddMessagingService(svc suture.Service) suture.ServiceToken
}

// initEvents starts the event transport and registers the consumer. It
// returns a nil publisher when events are disabled. The returned close
// function is always safe to call.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func initEvents(
	ctx context.Context,
	cfg *config.Config,
	tree messagingTree,
	store events.Store,
	engine events.Recomputer,
	logger zerolog.Logger,
) (*events.Publisher, func(), error) {
	if !cfg.Events.Enabled {
		logging.Info().Msg("Event bus disabled")
		return nil, func() {}, nil
	}

	transport, err := events.NewTransport(ctx, cfg.Events, logger)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event transport")
		}
	}

	consumer := events.NewConsumer(transport.Subscriber, store, engine, cfg.Events, logger)
	tree.AddMessagingService(services.NewEventConsumerService(consumer))
	logging.Info().Str("transport", transport.Kind).Msg("Event consumer added to supervisor tree")

	return events.NewPublisher(transport.Publisher, logger), closeFn, nil
}
