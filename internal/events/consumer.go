// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/affinity/internal/metrics"
	"github.com/tomtom215/affinity/internal/models"
)

// Store is the cache surface touched when a user changes.
type Store interface {
	RefreshUser(ctx context.Context, id int64) (*models.User, error)
	DeleteTopK(ctx context.Context, subjectID int64) error
	DeleteActivityScore(ctx context.Context, userID int64) error
	InvalidateResults(ctx context.Context, userID int64, strategy models.Strategy, tags []string) (int64, error)
	ForgetUser(id int64)
}

// Recomputer rebuilds one subject's precomputed list.
type Recomputer interface {
	RecomputeUser(ctx context.Context, kind models.ScoreKind, userID int64) error
}

// Consumer applies TagsUpdated events to the cache.
type Consumer struct {
	sub     message.Subscriber
	store   Store
	engine  Recomputer
	limiter *rate.Limiter
	timeout time.Duration
	logger  zerolog.Logger
}

// NewConsumer creates a consumer reading from sub.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewConsumer(sub message.Subscriber, store Store, engine Recomputer, cfg Config, logger zerolog.Logger) *Consumer {
	c := &Consumer{
		sub:     sub,
		store:   store,
		engine:  engine,
		timeout: cfg.HandlerTimeout,
		logger:  logger.With().Str("component", "events-consumer").Logger(),
	}
	if cfg.ThrottlePerSecond > 0 {
		burst := cfg.ThrottleBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.ThrottlePerSecond), burst)
	}
	return c
}

// Run subscribes and handles messages until ctx is done or the
// subscription closes. A subscription closed while ctx is live returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.sub.Subscribe(ctx, TopicTagsUpdated)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicTagsUpdated, err)
	}
	c.logger.Info().Str("topic", TopicTagsUpdated).Msg("subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					msg.Nack()
					return ctx.Err()
				}
			}
			c.process(ctx, msg)
		}
	}
}

// process acks handled and malformed messages and nacks failures so the
// broker redelivers them.
func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	e, err := Decode(msg)
	if err != nil {
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping invalid event")
		metrics.RecordEventConsumed(TopicTagsUpdated, "invalid")
		msg.Ack()
		return
	}

	hctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.Handle(hctx, e); err != nil {
		c.logger.Error().Err(err).Int64("user_id", e.UserID).Str("event_id", e.EventID).Msg("event handling failed")
		metrics.RecordEventConsumed(TopicTagsUpdated, "failed")
		msg.Nack()
		return
	}
	metrics.RecordEventConsumed(TopicTagsUpdated, "processed")
	msg.Ack()
}

// Handle applies one event. The snapshot entry is patched first so the
// recomputation sees the new tags. A user that is gone or inactive loses
// its lists instead.
func (c *Consumer) Handle(ctx context.Context, e *TagsUpdated) error {
	id := e.UserID
	defer c.store.ForgetUser(id)

	_, err := c.store.RefreshUser(ctx, id)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		if err := c.store.DeleteTopK(ctx, id); err != nil {
			return fmt.Errorf("drop lists for %d: %w", id, err)
		}
	case err != nil:
		return fmt.Errorf("refresh user %d: %w", id, err)
	default:
		for _, kind := range models.ScoreKinds {
			if err := c.engine.RecomputeUser(ctx, kind, id); err != nil {
				return fmt.Errorf("recompute %s for %d: %w", kind, id, err)
			}
		}
	}

	if err := c.store.DeleteActivityScore(ctx, id); err != nil {
		return fmt.Errorf("drop activity score for %d: %w", id, err)
	}
	n, err := c.store.InvalidateResults(ctx, id, "", nil)
	if err != nil {
		return err
	}

	c.logger.Debug().Int64("user_id", id).Int64("pages", n).Msg("user change applied")
	return nil
}
