// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("table", "film_work").Msg("scanned")

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"table":"film_work"`, `"message":"scanned"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

// TestCtxAddsCycleID verifies the cycle id from context reaches log output.
func TestCtxAddsCycleID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCycleID(context.Background(), "abcd1234")
	Ctx(ctx).Info().Msg("cycle started")

	if !strings.Contains(buf.String(), `"cycle_id":"abcd1234"`) {
		t.Errorf("expected cycle_id in output, got %s", buf.String())
	}
	if got := CycleIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context returned cycle id %q", got)
	}
	if id := NewCycleID(); len(id) != 8 {
		t.Errorf("NewCycleID length = %d, want 8", len(id))
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCycleID(ctx, "c1")
	Ctx(ctx).Warn().Msg("manual sync")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, `"cycle_id":"c1"`) {
		t.Errorf("expected both ids in output, got %s", out)
	}
}

func TestSlogHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.With("service", "pipeline").WithGroup("supervisor").Warn("restarting", "attempt", 3)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"pipeline"`, `"supervisor.attempt":3`, `"message":"restarting"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}
