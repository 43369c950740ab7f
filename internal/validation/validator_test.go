// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package validation

import (
	"errors"
	"strings"
	"testing"
)

type sampleTable struct {
	Name string `koanf:"name" validate:"required,sql_identifier"`
	Role string `koanf:"role" validate:"oneof=primary related cross"`
}

type sampleConfig struct {
	ChunkSize int           `koanf:"chunk_size" validate:"min=1"`
	Tables    []sampleTable `koanf:"tables" validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sampleConfig
		wantErr []string
	}{
		{
			name:  "valid",
			input: sampleConfig{ChunkSize: 100, Tables: []sampleTable{{Name: "film_work", Role: "primary"}}},
		},
		{
			name:    "chunk size zero",
			input:   sampleConfig{ChunkSize: 0, Tables: []sampleTable{{Name: "film_work", Role: "primary"}}},
			wantErr: []string{"chunk_size must be at least 1"},
		},
		{
			name:    "bad identifier and role",
			input:   sampleConfig{ChunkSize: 1, Tables: []sampleTable{{Name: "film; drop", Role: "other"}}},
			wantErr: []string{"tables[0].name must be a plain SQL identifier", "tables[0].role must be one of"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected Errors, got %T", err)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err.Error(), want)
				}
			}
		})
	}
}

func TestIsSQLIdentifier(t *testing.T) {
	cases := map[string]bool{
		"film_work":    true,
		"person2":      true,
		"":             false,
		"2person":      false,
		"Film":         false,
		"content.film": false,
	}
	for in, want := range cases {
		if got := IsSQLIdentifier(in); got != want {
			t.Errorf("IsSQLIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}
