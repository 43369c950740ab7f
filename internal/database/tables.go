// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"errors"
	"fmt"

	"github.com/tomtom215/cinesync/internal/config"
	"github.com/tomtom215/cinesync/internal/validation"
)

// ErrInvalidLayout is returned by NewLayout for unusable table sets.
var ErrInvalidLayout = errors.New("invalid table layout")

// Table is a watched table. The set of implementations is closed: only
// PrimaryTable, RelatedTable and CrossTable satisfy it.
type Table interface {
	TableName() string
	Role() string
	isTable()
}

// PrimaryTable is the root aggregate.
type PrimaryTable struct {
	Name string
}

// RelatedTable joins to the primary through CrossTable, whose CrossKey
// column references this table.
type RelatedTable struct {
	Name       string
	CrossTable string
	CrossKey   string
}

// CrossTable is an association table carrying the primary foreign key.
type CrossTable struct {
	Name string
}

func (t PrimaryTable) TableName() string { return t.Name }
func (t PrimaryTable) Role() string      { return config.RolePrimary }
func (PrimaryTable) isTable()            {}

func (t RelatedTable) TableName() string { return t.Name }
func (t RelatedTable) Role() string      { return config.RoleRelated }
func (RelatedTable) isTable()            {}

func (t CrossTable) TableName() string { return t.Name }
func (t CrossTable) Role() string      { return config.RoleCross }
func (CrossTable) isTable()            {}

// Layout is the fixed description of the watched tables.
type Layout struct {
	Schema    string
	PrimaryFK string
	Primary   PrimaryTable
	// Tables are in scan order.
	Tables []Table
}

// NewLayout builds the layout from configuration. It fails when the set
// does not contain exactly one primary table, repeats a name, or has an
// incomplete or unsafe entry.
func NewLayout(schema, primaryFK string, tables []config.TableConfig) (*Layout, error) {
	if !validation.IsSQLIdentifier(schema) || !validation.IsSQLIdentifier(primaryFK) {
		return nil, fmt.Errorf("%w: schema %q and primary key column %q must be plain identifiers", ErrInvalidLayout, schema, primaryFK)
	}

	l := &Layout{Schema: schema, PrimaryFK: primaryFK}
	seen := make(map[string]struct{}, len(tables))
	primaries := 0

	for _, tc := range tables {
		for _, ident := range []string{tc.Name, tc.CrossTable, tc.CrossKey} {
			if ident != "" && !validation.IsSQLIdentifier(ident) {
				return nil, fmt.Errorf("%w: %q is not a plain identifier", ErrInvalidLayout, ident)
			}
		}
		if tc.Name == "" {
			return nil, fmt.Errorf("%w: table without a name", ErrInvalidLayout)
		}
		if _, dup := seen[tc.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate table %q", ErrInvalidLayout, tc.Name)
		}
		seen[tc.Name] = struct{}{}

		switch tc.Role {
		case config.RolePrimary:
			primaries++
			l.Primary = PrimaryTable{Name: tc.Name}
			l.Tables = append(l.Tables, l.Primary)
		case config.RoleRelated:
			if tc.CrossTable == "" || tc.CrossKey == "" {
				return nil, fmt.Errorf("%w: related table %q needs a cross table and key", ErrInvalidLayout, tc.Name)
			}
			l.Tables = append(l.Tables, RelatedTable{Name: tc.Name, CrossTable: tc.CrossTable, CrossKey: tc.CrossKey})
		case config.RoleCross:
			l.Tables = append(l.Tables, CrossTable{Name: tc.Name})
		default:
			return nil, fmt.Errorf("%w: table %q has unknown role %q", ErrInvalidLayout, tc.Name, tc.Role)
		}
	}

	if primaries != 1 {
		return nil, fmt.Errorf("%w: need exactly one primary table, found %d", ErrInvalidLayout, primaries)
	}
	return l, nil
}

// Lookup returns the table named name.
func (l *Layout) Lookup(name string) (Table, bool) {
	for _, t := range l.Tables {
		if t.TableName() == name {
			return t, true
		}
	}
	return nil, false
}

// Index returns the scan position of name, or -1.
func (l *Layout) Index(name string) int {
	for i, t := range l.Tables {
		if t.TableName() == name {
			return i
		}
	}
	return -1
}

// qualify returns schema.name. Both parts are validated identifiers.
func (l *Layout) qualify(name string) string {
	return l.Schema + "." + name
}
