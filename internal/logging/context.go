// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	cycleIDKey   contextKey = "cycle_id"
	requestIDKey contextKey = "request_id"
)

// NewCycleID returns a short identifier for one replication cycle.
func NewCycleID() string {
	return uuid.New().String()[:8]
}

// ContextWithCycleID tags ctx with a replication cycle id.
func ContextWithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext returns the cycle id stored in ctx, or "".
func CycleIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID tags ctx with an ops API request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger with the cycle and request ids of ctx
// attached, if any.
//
//	logging.Ctx(ctx).Info().Str("table", name).Msg("Table exhausted")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := CycleIDFromContext(ctx); id != "" {
		l = l.With().Str("cycle_id", id).Logger()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
