// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"errors"
	"testing"

	"github.com/tomtom215/cinesync/internal/config"
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout("content", "film_work_id", config.DefaultTables())
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	return l
}

func TestNewLayoutDefaults(t *testing.T) {
	l := testLayout(t)

	if l.Primary.Name != "film_work" {
		t.Errorf("Primary = %q, want film_work", l.Primary.Name)
	}
	want := []string{"person", "genre", "film_work"}
	if len(l.Tables) != len(want) {
		t.Fatalf("len(Tables) = %d, want %d", len(l.Tables), len(want))
	}
	for i, name := range want {
		if got := l.Tables[i].TableName(); got != name {
			t.Errorf("Tables[%d] = %q, want %q", i, got, name)
		}
	}

	person, ok := l.Lookup("person")
	if !ok {
		t.Fatal("Lookup(person) not found")
	}
	rt, ok := person.(RelatedTable)
	if !ok {
		t.Fatalf("person is %T, want RelatedTable", person)
	}
	if rt.CrossTable != "person_film_work" || rt.CrossKey != "person_id" {
		t.Errorf("person cross = %s/%s", rt.CrossTable, rt.CrossKey)
	}
	if l.Index("genre") != 1 || l.Index("missing") != -1 {
		t.Errorf("Index mismatch: genre=%d missing=%d", l.Index("genre"), l.Index("missing"))
	}
}

func TestNewLayoutRejects(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		tables []config.TableConfig
	}{
		{
			name:   "no primary",
			schema: "content",
			tables: []config.TableConfig{{Name: "genre_film_work", Role: config.RoleCross}},
		},
		{
			name:   "two primaries",
			schema: "content",
			tables: []config.TableConfig{
				{Name: "film_work", Role: config.RolePrimary},
				{Name: "series", Role: config.RolePrimary},
			},
		},
		{
			name:   "duplicate",
			schema: "content",
			tables: []config.TableConfig{
				{Name: "film_work", Role: config.RolePrimary},
				{Name: "film_work", Role: config.RoleCross},
			},
		},
		{
			name:   "related without cross table",
			schema: "content",
			tables: []config.TableConfig{
				{Name: "film_work", Role: config.RolePrimary},
				{Name: "person", Role: config.RoleRelated},
			},
		},
		{
			name:   "unknown role",
			schema: "content",
			tables: []config.TableConfig{
				{Name: "film_work", Role: config.RolePrimary},
				{Name: "tag", Role: "lookup"},
			},
		},
		{
			name:   "unsafe identifier",
			schema: "content",
			tables: []config.TableConfig{{Name: "film_work; DROP TABLE x", Role: config.RolePrimary}},
		},
		{
			name:   "unsafe schema",
			schema: "Content",
			tables: config.DefaultTables(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.schema, "film_work_id", tt.tables)
			if !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("NewLayout() error = %v, want ErrInvalidLayout", err)
			}
		})
	}
}
