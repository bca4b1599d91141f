// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventConsumer blocks consuming messages until ctx is canceled. Each call
// must build its own subscription so that a restart starts clean.
//
// Satisfied by *events.Consumer.
type EventConsumer interface {
	Run(ctx context.Context) error
}

// ErrConsumerStopped is returned when a consumer exits while its context is
// still live, so the supervisor restarts it.
var ErrConsumerStopped = errors.New("event consumer stopped unexpectedly")

// EventConsumerService supervises an event consumer.
type EventConsumerService struct {
	consumer EventConsumer
	name     string
}

// NewEventConsumerService creates a new event consumer service wrapper.
func NewEventConsumerService(consumer EventConsumer) *EventConsumerService {
	return &EventConsumerService{
		consumer: consumer,
		name:     "event-consumer",
	}
}

// Serve implements suture.Service.
func (s *EventConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event consumer failed: %w", err)
	}
	return ErrConsumerStopped
}

// String implements fmt.Stringer for suture logs.
func (s *EventConsumerService) String() string {
	return s.name
}
