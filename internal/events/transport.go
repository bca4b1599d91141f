// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/tomtom215/affinity/internal/logging"
)

// Transport holds the publisher and subscriber halves of the event bus
// and whatever they depend on.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Kind       string

	embedded *EmbeddedServer
	conn     *natsgo.Conn
}

// NewTransport builds the transport selected by cfg.Transport.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewTransport(ctx context.Context, cfg Config, logger zerolog.Logger) (*Transport, error) {
	wmLogger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandlerWithLogger(
		logger.With().Str("component", "events-transport").Logger())))

	switch cfg.Transport {
	case TransportNATS:
		return newNATSTransport(ctx, cfg.NATS, wmLogger)
	default:
		return newChannelTransport(false, wmLogger), nil
	}
}

// newChannelTransport shares one gochannel between both halves. A
// persistent channel replays earlier messages to late subscribers.
func newChannelTransport(persistent bool, logger watermill.LoggerAdapter) *Transport {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          persistent,
	}, logger)
	return &Transport{Publisher: ch, Subscriber: ch, Kind: TransportChannel}
}

func newNATSTransport(ctx context.Context, cfg NATSConfig, logger watermill.LoggerAdapter) (t *Transport, err error) {
	t = &Transport{Kind: TransportNATS}
	defer func() {
		if err != nil {
			_ = t.Close()
		}
	}()

	if cfg.Embedded.Enabled {
		if t.embedded, err = StartEmbeddedServer(cfg.Embedded); err != nil {
			return nil, err
		}
		cfg.URL = t.embedded.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	if t.conn, err = natsgo.Connect(cfg.URL, natsOpts...); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(t.conn)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if _, err = EnsureStream(ctx, js, cfg); err != nil {
		return nil, err
	}

	if t.Publisher, err = wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger); err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	subOpts := []natsgo.SubOpt{
		natsgo.BindStream(cfg.StreamName),
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.AckWait(cfg.AckWait),
		natsgo.DeliverNew(),
	}
	if t.Subscriber, err = wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:    false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger); err != nil {
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return t, nil
}

// Close releases both halves, the NATS connection and the embedded server.
func (t *Transport) Close() error {
	var errs []error
	if t.Subscriber != nil {
		errs = append(errs, t.Subscriber.Close())
	}
	// The gochannel is shared, close it once.
	if t.Publisher != nil && t.Kind != TransportChannel {
		errs = append(errs, t.Publisher.Close())
	}
	if t.conn != nil {
		t.conn.Close()
	}
	if t.embedded != nil {
		t.embedded.Shutdown()
	}
	return errors.Join(errs...)
}
