// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package config loads cinesync configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (later layers win).
//
// Watched tables are configured as an ordered list. Exactly one table has
// the primary role; related tables reach the primary through a cross table
// and cross tables carry the primary key directly:
//
//	pipeline:
//	  tables:
//	    - {name: person, role: related, cross_table: person_film_work, cross_key: person_id}
//	    - {name: genre, role: related, cross_table: genre_film_work, cross_key: genre_id}
//	    - {name: film_work, role: primary}
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Table roles.
const (
	RolePrimary = "primary"
	RoleRelated = "related"
	RoleCross   = "cross"
)

// State backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Config is the root configuration.
type Config struct {
	Postgres   PostgresConfig   `koanf:"postgres"`
	Elastic    ElasticConfig    `koanf:"elastic"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	State      StateConfig      `koanf:"state"`
	Retry      RetryConfig      `koanf:"retry"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// PostgresConfig describes the source database.
type PostgresConfig struct {
	// DSN, when set, is used verbatim and the discrete fields are ignored.
	DSN            string        `koanf:"dsn"`
	Host           string        `koanf:"host" validate:"required_without=DSN"`
	Port           int           `koanf:"port" validate:"min=1,max=65535"`
	DBName         string        `koanf:"dbname" validate:"required_without=DSN"`
	User           string        `koanf:"user" validate:"required_without=DSN"`
	Password       string        `koanf:"password"`
	SSLMode        string        `koanf:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	Schema         string        `koanf:"schema" validate:"required,sql_identifier"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
}

// ConnString returns a libpq-style URL for pgx.
func (p *PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(p.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// ElasticConfig describes the search index endpoint.
type ElasticConfig struct {
	URL     string        `koanf:"url" validate:"required,http_url"`
	Index   string        `koanf:"index" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond caps bulk requests; 0 disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`

	BreakerEnabled      bool          `koanf:"breaker_enabled"`
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests" validate:"min=1"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests" validate:"min=1"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
}

// PipelineConfig controls extraction.
type PipelineConfig struct {
	ChunkSize int `koanf:"chunk_size" validate:"min=1,max=10000"`

	// Interval is the pause between replication cycles.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// InitialTimestamp is the watermark origin for tables never scanned, RFC3339.
	InitialTimestamp string `koanf:"initial_timestamp" validate:"required"`

	// ColdStartSkipRelated initialises related and cross watermarks to the
	// current maximum when the primary table has never been scanned.
	ColdStartSkipRelated bool `koanf:"cold_start_skip_related"`

	// PrimaryFK is the column in every cross table that references the primary table.
	PrimaryFK string `koanf:"primary_fk" validate:"required,sql_identifier"`

	Tables []TableConfig `koanf:"tables" validate:"dive"`
}

// InitialWatermark parses InitialTimestamp.
func (p *PipelineConfig) InitialWatermark() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, p.InitialTimestamp)
	if err != nil {
		if ts, err = time.Parse(time.DateOnly, p.InitialTimestamp); err != nil {
			return time.Time{}, fmt.Errorf("pipeline.initial_timestamp %q: %w", p.InitialTimestamp, err)
		}
	}
	return ts.UTC(), nil
}

// TableConfig is one watched table.
type TableConfig struct {
	Name string `koanf:"name" validate:"required,sql_identifier"`
	Role string `koanf:"role" validate:"required,oneof=primary related cross"`

	// CrossTable and CrossKey are required for the related role: the cross
	// table joining this table to the primary, and its column referencing this table.
	CrossTable string `koanf:"cross_table" validate:"omitempty,sql_identifier"`
	CrossKey   string `koanf:"cross_key" validate:"omitempty,sql_identifier"`
}

// DefaultTables is the film catalog layout.
func DefaultTables() []TableConfig {
	return []TableConfig{
		{Name: "person", Role: RoleRelated, CrossTable: "person_film_work", CrossKey: "person_id"},
		{Name: "genre", Role: RoleRelated, CrossTable: "genre_film_work", CrossKey: "genre_id"},
		{Name: "film_work", Role: RolePrimary},
	}
}

// StateConfig selects where checkpoints are persisted.
type StateConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=file badger"`
	Dir        string `koanf:"dir" validate:"required_if=Backend file"`
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// RetryConfig parameterises the exponential backoff applied to transient failures.
type RetryConfig struct {
	StartDelay time.Duration `koanf:"start_delay" validate:"gt=0"`
	Factor     float64       `koanf:"factor" validate:"gte=1"`
	MaxDelay   time.Duration `koanf:"max_delay" validate:"gtefield=StartDelay"`
}

// ServerConfig is the operational HTTP endpoint.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
