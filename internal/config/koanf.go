// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinesync/config.yaml",
	"/etc/cinesync/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Postgres: PostgresConfig{
			Host:           "127.0.0.1",
			Port:           5432,
			DBName:         "movies_database",
			User:           "app",
			SSLMode:        "disable",
			Schema:         "content",
			ConnectTimeout: 5 * time.Second,
		},
		Elastic: ElasticConfig{
			URL:                 "http://127.0.0.1:9200",
			Index:               "movies",
			Timeout:             10 * time.Second,
			RequestsPerSecond:   0,
			BreakerEnabled:      true,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Pipeline: PipelineConfig{
			ChunkSize:            100,
			Interval:             10 * time.Second,
			InitialTimestamp:     "2000-01-01T00:00:00Z",
			ColdStartSkipRelated: true,
			PrimaryFK:            "film_work_id",
		},
		State: StateConfig{
			Backend:    BackendFile,
			Dir:        "storage",
			BadgerPath: "storage/badger",
			SyncWrites: true,
		},
		Retry: RetryConfig{
			StartDelay: 100 * time.Millisecond,
			Factor:     2,
			MaxDelay:   10 * time.Second,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, the optional config file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if len(cfg.Pipeline.Tables) == 0 {
		cfg.Pipeline.Tables = DefaultTables()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// The DB_* names are the ones the catalog's docker-compose already exports.
var envMappings = map[string]string{
	"postgres_dsn":             "postgres.dsn",
	"db_host":                  "postgres.host",
	"db_port":                  "postgres.port",
	"db_name":                  "postgres.dbname",
	"db_user":                  "postgres.user",
	"db_password":              "postgres.password",
	"db_sslmode":               "postgres.sslmode",
	"db_schema":                "postgres.schema",
	"db_connect_timeout":       "postgres.connect_timeout",
	"elastic_url":              "elastic.url",
	"elastic_index":            "elastic.index",
	"elastic_timeout":          "elastic.timeout",
	"elastic_rps":              "elastic.requests_per_second",
	"elastic_breaker_enabled":  "elastic.breaker_enabled",
	"elastic_breaker_timeout":  "elastic.breaker_timeout",
	"chunk_size":               "pipeline.chunk_size",
	"sync_interval":            "pipeline.interval",
	"initial_timestamp":        "pipeline.initial_timestamp",
	"cold_start_skip_related":  "pipeline.cold_start_skip_related",
	"state_backend":            "state.backend",
	"storage_dir":              "state.dir",
	"state_badger_path":        "state.badger_path",
	"state_sync_writes":        "state.sync_writes",
	"retry_start_delay":        "retry.start_delay",
	"retry_factor":             "retry.factor",
	"retry_max_delay":          "retry.max_delay",
	"http_enabled":             "server.enabled",
	"http_host":                "server.host",
	"http_port":                "server.port",
	"http_shutdown_timeout":    "server.shutdown_timeout",
	"supervisor_backoff":       "supervisor.failure_backoff",
	"supervisor_shutdown_wait": "supervisor.shutdown_timeout",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"log_caller":               "logging.caller",
}

// envTransformFunc returns "" for unmapped variables so the rest of the
// environment never leaks into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
