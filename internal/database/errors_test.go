// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/cinesync/internal/retry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"bad password", &pgconn.PgError{Code: "28P01"}, false},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("classify(nil) = %v", got)
				}
				return
			}
			if retry.IsTransient(got) != tt.transient {
				t.Errorf("IsTransient(classify(%v)) = %v, want %v", tt.err, !tt.transient, tt.transient)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify() lost the original error")
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	if isConnectionError(&pgconn.PgError{Code: "42P01"}) {
		t.Error("SQL error must keep the connection")
	}
	if !isConnectionError(&pgconn.PgError{Code: "57P01"}) {
		t.Error("admin shutdown must drop the connection")
	}
	if isConnectionError(pgx.ErrNoRows) {
		t.Error("ErrNoRows must keep the connection")
	}
	if !isConnectionError(io.ErrUnexpectedEOF) {
		t.Error("network error must drop the connection")
	}
}
