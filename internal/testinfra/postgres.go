// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

//go:build integration

package testinfra

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/cinesync/internal/config"
)

const (
	// DefaultPostgresImage is the image the catalog schema is tested against.
	DefaultPostgresImage = "postgres:16-alpine"

	DefaultPostgresPort = "5432"

	postgresUser     = "app"
	postgresPassword = "app"
	postgresDB       = "movies"

	// Schema holds the catalog tables.
	Schema = "content"
)

//go:embed schema.sql
var schemaSQL string

// PostgresContainer is a running Postgres with the catalog schema applied.
type PostgresContainer struct {
	testcontainers.Container
	Config config.PostgresConfig
}

// PostgresOption configures the Postgres container.
type PostgresOption func(*postgresConfig)

type postgresConfig struct {
	image        string
	startTimeout time.Duration
}

// WithPostgresImage sets a custom Postgres image.
func WithPostgresImage(image string) PostgresOption {
	return func(c *postgresConfig) {
		c.image = image
	}
}

// WithStartTimeout sets how long to wait for the server to accept
// connections.
func WithStartTimeout(d time.Duration) PostgresOption {
	return func(c *postgresConfig) {
		c.startTimeout = d
	}
}

// NewPostgresContainer starts Postgres and applies the catalog schema.
func NewPostgresContainer(ctx context.Context, opts ...PostgresOption) (*PostgresContainer, error) {
	cfg := &postgresConfig{
		image:        DefaultPostgresImage,
		startTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultPostgresPort + "/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
			"TZ":                "UTC",
		},
		// The entrypoint restarts the server once after initdb.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(DefaultPostgresPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultPostgresPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	pc := &PostgresContainer{
		Container: container,
		Config: config.PostgresConfig{
			Host:           host,
			Port:           port.Int(),
			DBName:         postgresDB,
			User:           postgresUser,
			Password:       postgresPassword,
			SSLMode:        "disable",
			Schema:         Schema,
			ConnectTimeout: 5 * time.Second,
		},
	}

	if err := pc.exec(ctx, schemaSQL); err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return pc, nil
}

// Connect opens a fresh connection for fixtures. The caller closes it.
func (c *PostgresContainer) Connect(ctx context.Context) (*pgx.Conn, error) {
	return pgx.Connect(ctx, c.Config.ConnString())
}

func (c *PostgresContainer) exec(ctx context.Context, sql string, args ...any) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx) //nolint:errcheck

	_, err = conn.Exec(ctx, sql, args...)
	return err
}
