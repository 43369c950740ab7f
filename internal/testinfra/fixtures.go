// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// UUID returns a deterministic uuid for small fixture ids, so that tests
// can refer to "film 7" as UUID(7).
func UUID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

// Film is a film_work fixture.
type Film struct {
	ID          string
	Title       string
	Description string
	Rating      float64
	Type        string
	UpdatedAt   time.Time
}

// Seeder inserts catalog fixtures over one connection.
type Seeder struct {
	t    *testing.T
	conn *pgx.Conn
}

// Seeder opens a fixture connection closed at test cleanup.
func (c *PostgresContainer) Seeder(t *testing.T) *Seeder {
	t.Helper()

	ctx := context.Background()
	conn, err := c.Connect(ctx)
	if err != nil {
		t.Fatalf("connect fixture session: %v", err)
	}
	t.Cleanup(func() { conn.Close(context.Background()) }) //nolint:errcheck
	return &Seeder{t: t, conn: conn}
}

// Exec runs a fixture statement, failing the test on error.
func (s *Seeder) Exec(ctx context.Context, sql string, args ...any) {
	s.t.Helper()
	if _, err := s.conn.Exec(ctx, sql, args...); err != nil {
		s.t.Fatalf("seed: %v\n%s", err, sql)
	}
}

// Film inserts f.
func (s *Seeder) Film(ctx context.Context, f Film) {
	s.t.Helper()
	s.Exec(ctx, `INSERT INTO content.film_work (id, title, description, rating, type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.Title, f.Description, f.Rating, f.Type, f.UpdatedAt)
}

// Person inserts a person.
func (s *Seeder) Person(ctx context.Context, id, name string, updatedAt time.Time) {
	s.t.Helper()
	s.Exec(ctx, `INSERT INTO content.person (id, full_name, updated_at) VALUES ($1, $2, $3)`,
		id, name, updatedAt)
}

// Genre inserts a genre.
func (s *Seeder) Genre(ctx context.Context, id, name string, updatedAt time.Time) {
	s.t.Helper()
	s.Exec(ctx, `INSERT INTO content.genre (id, name, updated_at) VALUES ($1, $2, $3)`,
		id, name, updatedAt)
}

// Cast links a person to a film with role.
func (s *Seeder) Cast(ctx context.Context, filmID, personID, role string, updatedAt time.Time) {
	s.t.Helper()
	s.Exec(ctx, `INSERT INTO content.person_film_work (film_work_id, person_id, role, updated_at)
		VALUES ($1, $2, $3, $4)`, filmID, personID, role, updatedAt)
}

// Tag links a genre to a film.
func (s *Seeder) Tag(ctx context.Context, filmID, genreID string, updatedAt time.Time) {
	s.t.Helper()
	s.Exec(ctx, `INSERT INTO content.genre_film_work (film_work_id, genre_id, updated_at)
		VALUES ($1, $2, $3)`, filmID, genreID, updatedAt)
}

// Touch sets updated_at of the row id in table.
func (s *Seeder) Touch(ctx context.Context, table, id string, updatedAt time.Time) {
	s.t.Helper()
	s.Exec(ctx, fmt.Sprintf(`UPDATE content.%s SET updated_at = $2 WHERE id = $1`,
		pgx.Identifier{table}.Sanitize()), id, updatedAt)
}
