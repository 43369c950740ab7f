// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/retry"
)

// SQLSTATE codes and classes treated as transient.
const (
	classConnectionException   = "08"
	classInsufficientResources = "53"
	codeAdminShutdown          = "57P01"
	codeCrashShutdown          = "57P02"
	codeCannotConnectNow       = "57P03"
	classInvalidAuthorization  = "28"
)

// classify marks transient failures for the retry loop. Everything else,
// including SQL errors and authentication failures, is returned as is.
func classify(err error) error {
	if err == nil || !isTransient(err) {
		return err
	}
	return retry.Transient(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, classInvalidAuthorization):
			return false
		case strings.HasPrefix(pgErr.Code, classConnectionException),
			strings.HasPrefix(pgErr.Code, classInsufficientResources),
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCrashShutdown,
			pgErr.Code == codeCannotConnectNow:
			return true
		default:
			return false
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	return retry.IsTransient(err)
}

// isConnectionError reports whether the failure leaves the connection in an
// unknown state. Server-side SQL errors do not.
func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, classConnectionException) ||
			strings.HasPrefix(pgErr.Code, "57P")
	}
	return !errors.Is(err, pgx.ErrNoRows)
}

// closeQuietly closes conn with a short deadline, logging any error.
func closeQuietly(ctx context.Context, conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := conn.Close(ctx); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Error closing source connection")
	}
}
