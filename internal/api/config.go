// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package api

import (
	"fmt"
	"time"
)

// RateLimitConfig is a request budget per client IP.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// Config configures the HTTP surface.
type Config struct {
	ListenAddr      string        `koanf:"listen_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds the work done for one request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// AdminRateLimit is an in-process limit on top of the shared per-IP limit.
	AdminRateLimit RateLimitConfig `koanf:"admin_rate_limit"`

	SwaggerEnabled bool `koanf:"swagger_enabled"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		RequestTimeout:     10 * time.Second,
		CORSAllowedOrigins: []string{},
		AdminRateLimit:     RateLimitConfig{Requests: 10, Window: time.Minute},
		SwaggerEnabled:     true,
	}
}

// Validate checks addresses and durations.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive")
	}
	if c.AdminRateLimit.Requests < 1 || c.AdminRateLimit.Window <= 0 {
		return fmt.Errorf("http.admin_rate_limit needs positive requests and window")
	}
	return nil
}
