// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package retry re-runs an operation with capped exponential backoff for as
// long as it fails transiently. The delay before retry n (0-based) is
//
//	min(StartDelay * Factor^n, MaxDelay)
//
// and there is no attempt limit: the pipeline must not advance past data it
// could not read or write. Only context cancellation ends the loop early.
// Errors that are not transient are returned immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"syscall"
	"time"

	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
)

// Policy is the backoff schedule.
type Policy struct {
	StartDelay time.Duration
	Factor     float64
	MaxDelay   time.Duration
}

// DefaultPolicy is 0.1s doubling up to 10s.
func DefaultPolicy() Policy {
	return Policy{
		StartDelay: 100 * time.Millisecond,
		Factor:     2,
		MaxDelay:   10 * time.Second,
	}
}

// Delay returns the wait before retry attempt n.
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := float64(p.StartDelay) * math.Pow(p.Factor, float64(n))
	if math.IsNaN(d) || math.IsInf(d, 0) || d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is worth retrying: explicitly marked
// errors, network timeouts, refused or reset connections and truncated
// streams. Context cancellation is transient only when explicitly marked,
// as a per-request deadline is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// Do runs fn until it succeeds, fails permanently or ctx is done. operation
// labels log lines and the retry counter.
func Do(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", operation, err)
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return zero, err
		}

		delay := p.Delay(attempt)
		metrics.RecordRetry(operation)
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Transient failure, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: retry aborted after %d attempts (last error: %v): %w",
				operation, attempt+1, err, ctx.Err())
		}
	}
}
