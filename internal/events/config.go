// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package events

import (
	"fmt"
	"time"
)

// Transport names.
const (
	TransportChannel = "channel"
	TransportNATS    = "nats"
)

// EmbeddedConfig runs a NATS server with JetStream inside the process.
type EmbeddedConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory"`
	MaxStore  int64  `koanf:"max_store"`
}

// NATSConfig configures the JetStream transport.
type NATSConfig struct {
	Embedded         EmbeddedConfig `koanf:"embedded"`
	URL              string         `koanf:"url"`
	StreamName       string        `koanf:"stream_name"`
	StreamSubjects   []string      `koanf:"stream_subjects"`
	StreamMaxAge     time.Duration `koanf:"stream_max_age"`
	DuplicateWindow  time.Duration `koanf:"duplicate_window"`
	QueueGroup       string        `koanf:"queue_group"`
	DurableName      string        `koanf:"durable_name"`
	SubscribersCount int           `koanf:"subscribers_count"`
	MaxDeliver       int           `koanf:"max_deliver"`
	AckWait          time.Duration `koanf:"ack_wait"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// Config configures event transport and consumption.
type Config struct {
	Enabled   bool       `koanf:"enabled"`
	Transport string     `koanf:"transport"`
	NATS      NATSConfig `koanf:"nats"`

	// ThrottlePerSecond caps handled events per second; zero disables.
	ThrottlePerSecond float64 `koanf:"throttle_per_second"`
	ThrottleBurst     int     `koanf:"throttle_burst"`

	// HandlerTimeout bounds the work done for one event.
	HandlerTimeout time.Duration `koanf:"handler_timeout"`
}

// DefaultConfig returns in-process defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Transport: TransportChannel,
		NATS: NATSConfig{
			Embedded: EmbeddedConfig{
				Host:      "127.0.0.1",
				Port:      4222,
				StoreDir:  "/data/nats",
				MaxMemory: 64 << 20,
				MaxStore:  1 << 30,
			},
			URL:              "nats://127.0.0.1:4222",
			StreamName:       "AFFINITY_USERS",
			StreamSubjects:   []string{"users.>"},
			StreamMaxAge:     24 * time.Hour,
			DuplicateWindow:  2 * time.Minute,
			QueueGroup:       "affinity",
			DurableName:      "affinity",
			SubscribersCount: 1,
			MaxDeliver:       5,
			AckWait:          30 * time.Second,
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			CloseTimeout:     10 * time.Second,
		},
		ThrottlePerSecond: 50,
		ThrottleBurst:     10,
		HandlerTimeout:    30 * time.Second,
	}
}

// Validate checks the transport choice and limits.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportChannel:
	case TransportNATS:
		if c.NATS.URL == "" && !c.NATS.Embedded.Enabled {
			return fmt.Errorf("events.nats.url is required for the nats transport")
		}
		if c.NATS.StreamName == "" || len(c.NATS.StreamSubjects) == 0 {
			return fmt.Errorf("events.nats stream name and subjects are required")
		}
	default:
		return fmt.Errorf("events.transport must be %q or %q, got %q", TransportChannel, TransportNATS, c.Transport)
	}
	if c.ThrottlePerSecond < 0 {
		return fmt.Errorf("events.throttle_per_second must not be negative")
	}
	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("events.handler_timeout must be positive")
	}
	return nil
}
