// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServerService runs the API server under supervision.
//
// Each Serve binds the listener itself, so a bind failure is returned to the
// supervisor instead of being lost in a goroutine. Request contexts derive
// from the supervised context: handlers observe shutdown as cancellation
// while Shutdown drains them within the shutdown timeout.
type HTTPServerService struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewHTTPServerService wraps server. A non-positive shutdownTimeout
// defaults to 10s.
//
//nolint:gocritic // logger passed by value, matches zerolog convention
func NewHTTPServerService(server *http.Server, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With().Str("component", "http-server").Logger(),
		ready:           make(chan struct{}),
	}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("http server listen on %s: %w", h.server.Addr, err)
	}
	h.server.BaseContext = func(net.Listener) context.Context { return ctx }

	h.mu.Lock()
	h.addr = ln.Addr()
	h.mu.Unlock()
	h.readyOnce.Do(func() { close(h.ready) })
	h.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		start := time.Now()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Warn().Err(err).Dur("waited", time.Since(start)).Msg("HTTP server shutdown incomplete")
			_ = h.server.Close()
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		h.logger.Info().Dur("took", time.Since(start)).Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// Ready is closed once the server first holds its listener.
func (h *HTTPServerService) Ready() <-chan struct{} {
	return h.ready
}

// Addr returns the bound listener address, or nil before the first Serve.
func (h *HTTPServerService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

// String implements fmt.Stringer for suture logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
