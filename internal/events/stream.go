// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStream is the subset of jetstream.JetStream used to manage the stream.
type JetStream interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// streamConfig maps the NATS settings onto a JetStream stream.
func streamConfig(cfg NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   cfg.StreamSubjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.StreamMaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream or brings an existing one up to date.
// Subscribers bind to it instead of provisioning their own.
func EnsureStream(ctx context.Context, js JetStream, cfg NATSConfig) (jetstream.Stream, error) {
	want := streamConfig(cfg)

	_, err := js.Stream(ctx, cfg.StreamName)
	switch {
	case err == nil:
		stream, err := js.UpdateStream(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.StreamName, err)
		}
		return stream, nil
	case errors.Is(err, jetstream.ErrStreamNotFound):
		stream, err := js.CreateStream(ctx, want)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
		}
		return stream, nil
	default:
		return nil, fmt.Errorf("check stream %s: %w", cfg.StreamName, err)
	}
}
