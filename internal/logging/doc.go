// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package logging is the zerolog setup shared by every Affinity component.
//
// A global logger is configured once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//
// Components receive a zerolog.Logger in their constructors and tag it with
// a component field. Request-scoped code logs through Ctx, which adds the
// request_id and correlation_id stored by the HTTP middleware:
//
//	logging.Ctx(ctx).Warn().Int64("user_id", id).Msg("fallback served")
//
// Libraries that want a *slog.Logger (suture's event hook, watermill) get one
// backed by zerolog through NewSlogHandlerWithLogger.
//
// # Configuration
//
//	logging.level   trace, debug, info, warn, error (default info)
//	logging.format  json or console (default json)
//	logging.caller  include file:line (default false)
//
// Each key can be overridden with LOG_LEVEL, LOG_FORMAT and LOG_CALLER.
package logging
