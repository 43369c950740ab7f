// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestWatermarkCompare(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	tests := []struct {
		name string
		a, b Watermark
		want int
	}{
		{"earlier timestamp", Watermark{t1, "z"}, Watermark{t2, "a"}, -1},
		{"same timestamp lower id", Watermark{t1, "a"}, Watermark{t1, "b"}, -1},
		{"equal", Watermark{t1, "a"}, Watermark{t1, "a"}, 0},
		{"timestamp only sorts first", Watermark{t1, ""}, Watermark{t1, "a"}, -1},
		{"later", Watermark{t2, ""}, Watermark{t1, "z"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChangeSetLast(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cs := ChangeSet{Table: "film_work", Rows: []ChangedRow{{ID: "a", UpdatedAt: ts}, {ID: "b", UpdatedAt: ts}}}

	w, ok := cs.Last()
	if !ok || w.ID != "b" || !w.Timestamp.Equal(ts) {
		t.Errorf("Last() = %+v, %v", w, ok)
	}
	if got := cs.IDs(); len(got) != 2 || got[0] != "a" {
		t.Errorf("IDs() = %v", got)
	}
	if _, ok := (ChangeSet{}).Last(); ok {
		t.Error("empty change set reported a last row")
	}
}

// TestNewDocumentEncodesEmptyCollections verifies empty collections are
// serialized as [] rather than null.
func TestNewDocumentEncodesEmptyCollections(t *testing.T) {
	b, err := json.Marshal(NewDocument("7", "Film"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"genres":[]`, `"actors":[]`, `"writers":[]`, `"director":[]`, `"description":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded document %s missing %s", s, want)
		}
	}
}
