// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package config

import (
	"fmt"

	"github.com/tomtom215/cinesync/internal/validation"
)

// Validate runs the struct tag rules and then the cross-field checks that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateTables,
		c.validateInitialTimestamp,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateTables enforces exactly one primary table, unique names and the
// per-role required fields.
func (c *Config) validateTables() error {
	tables := c.Pipeline.Tables
	if len(tables) == 0 {
		return fmt.Errorf("pipeline.tables must not be empty")
	}

	seen := make(map[string]struct{}, len(tables))
	primaries := 0
	for i, t := range tables {
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("pipeline.tables[%d]: duplicate table %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}

		switch t.Role {
		case RolePrimary:
			primaries++
		case RoleRelated:
			if t.CrossTable == "" || t.CrossKey == "" {
				return fmt.Errorf("pipeline.tables[%d]: related table %q needs cross_table and cross_key", i, t.Name)
			}
		case RoleCross:
			if t.CrossTable != "" || t.CrossKey != "" {
				return fmt.Errorf("pipeline.tables[%d]: cross table %q must not set cross_table or cross_key", i, t.Name)
			}
		}
	}

	if primaries != 1 {
		return fmt.Errorf("pipeline.tables must contain exactly one primary table, found %d", primaries)
	}
	return nil
}

func (c *Config) validateInitialTimestamp() error {
	_, err := c.Pipeline.InitialWatermark()
	return err
}
