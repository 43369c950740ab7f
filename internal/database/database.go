// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/cinesync/internal/config"
	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/retry"
)

// DB is the read-only source connection. A single *pgx.Conn is opened on
// first use and replaced whenever it is found closed or broken. Queries are
// serialized by mu; the pipeline issues one query at a time anyway.
type DB struct {
	cfg    config.PostgresConfig
	layout *Layout
	policy retry.Policy

	mu   sync.Mutex
	conn *pgx.Conn
}

// New returns a DB for cfg. No connection is made until the first query.
func New(cfg config.PostgresConfig, layout *Layout, policy retry.Policy) *DB {
	return &DB{cfg: cfg, layout: layout, policy: policy}
}

// Layout returns the table layout queries are built against.
func (db *DB) Layout() *Layout {
	return db.layout
}

// connect opens a connection if there is no healthy one. Caller holds mu.
func (db *DB) connect(ctx context.Context) (*pgx.Conn, error) {
	if db.conn != nil && !db.conn.IsClosed() {
		return db.conn, nil
	}
	if db.conn != nil {
		logging.Ctx(ctx).Warn().Msg("Source connection closed, reconnecting")
		db.conn = nil
	}

	connCfg, err := pgx.ParseConfig(db.cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", connCfg.Host, connCfg.Port, connCfg.Database, err)
	}

	metrics.DBReconnects.Inc()
	logging.Ctx(ctx).Info().
		Str("host", connCfg.Host).
		Uint16("port", connCfg.Port).
		Str("database", connCfg.Database).
		Msg("Connected to source database")

	db.conn = conn
	return conn, nil
}

// withConn runs fn on the shared connection and classifies the outcome. A
// connection that fails with a connection-level error is dropped so that
// the next call reconnects.
func (db *DB) withConn(ctx context.Context, operation, table string, fn func(conn *pgx.Conn) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	start := time.Now()
	conn, err := db.connect(ctx)
	if err == nil {
		err = fn(conn)
		if err != nil && (conn.IsClosed() || isConnectionError(err)) {
			db.dropLocked(ctx)
		}
	}

	err = classify(err)
	metrics.RecordDBQuery(operation, table, time.Since(start), err, retry.IsTransient(err))
	if err != nil {
		return fmt.Errorf("%s %s: %w", operation, table, err)
	}
	return nil
}

// dropLocked closes and forgets the current connection. Caller holds mu.
func (db *DB) dropLocked(ctx context.Context) {
	if db.conn == nil {
		return
	}
	closeQuietly(ctx, db.conn)
	db.conn = nil
}

// Ping checks the source is reachable. It is not retried.
func (db *DB) Ping(ctx context.Context) error {
	return db.withConn(ctx, "ping", "", func(conn *pgx.Conn) error {
		return conn.Ping(ctx)
	})
}

// Close releases the connection. The DB may still be used afterwards; the
// next query reconnects.
func (db *DB) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close(ctx)
	db.conn = nil
	return err
}
