// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/affinity/internal/metrics"
)

// Publisher emits user change events.
type Publisher struct {
	pub     message.Publisher
	breaker *gobreaker.CircuitBreaker[interface{}]
	now     func() time.Time
	logger  zerolog.Logger
}

// NewPublisher wraps pub with a circuit breaker so a dead broker fails fast.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewPublisher(pub message.Publisher, logger zerolog.Logger) *Publisher {
	logger = logger.With().Str("component", "events-publisher").Logger()
	return &Publisher{
		pub: pub,
		breaker: gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
			Name:    "events-publisher",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("publisher breaker state changed")
			},
		}),
		now:    time.Now,
		logger: logger,
	}
}

// PublishTagsUpdated announces a tag change for userID.
func (p *Publisher) PublishTagsUpdated(ctx context.Context, userID int64, tags []string) error {
	return p.Publish(ctx, NewTagsUpdated(userID, tags, p.now()))
}

// Publish sends e on TopicTagsUpdated. The event id doubles as the
// JetStream dedup id.
func (p *Publisher) Publish(ctx context.Context, e *TagsUpdated) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	if _, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.pub.Publish(TopicTagsUpdated, msg)
	}); err != nil {
		return fmt.Errorf("publish %s: %w", TopicTagsUpdated, err)
	}

	metrics.EventsPublished.WithLabelValues(TopicTagsUpdated).Inc()
	p.logger.Debug().Int64("user_id", e.UserID).Str("event_id", e.EventID).Msg("tags updated event published")
	return nil
}
