// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package main is the entry point of the cinesync replication daemon.
//
// cinesync copies the film catalog of a Postgres database into an
// Elasticsearch index. Each cycle scans the watched tables for rows changed
// after their watermark, resolves the affected films, rebuilds their
// documents and upserts them through the _bulk API. Every stage checkpoints
// its batch before handing it on, so a crash at any point replays at most
// one batch per stage on restart.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, then environment (Koanf v2)
//  2. Checkpoint storage: JSON files or BadgerDB
//  3. Source: table layout and lazy Postgres connection
//  4. Stages: extractor, aggregator, bulk publisher
//  5. Supervisor tree: sync manager and the optional ops HTTP server
//
// # Configuration
//
// Environment variables override the config file, for example:
//
//	POSTGRES_DSN=postgres://app:secret@db:5432/movies
//	ELASTIC_URL=http://elasticsearch:9200
//	PIPELINE_INTERVAL=30s
//	STATE_BACKEND=badger
//	SERVER_ENABLED=true
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor context. The cycle in progress
// returns at its next blocking call and checkpoints stay as last written.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cinesync/internal/api"
	"github.com/tomtom215/cinesync/internal/config"
	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/elastic"
	"github.com/tomtom215/cinesync/internal/extract"
	"github.com/tomtom215/cinesync/internal/load"
	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/retry"
	"github.com/tomtom215/cinesync/internal/state"
	"github.com/tomtom215/cinesync/internal/supervisor"
	"github.com/tomtom215/cinesync/internal/supervisor/services"
	"github.com/tomtom215/cinesync/internal/sync"
	"github.com/tomtom215/cinesync/internal/transform"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("elastic_url", cfg.Elastic.URL).
		Str("index", cfg.Elastic.Index).
		Str("schema", cfg.Postgres.Schema).
		Str("state_backend", cfg.State.Backend).
		Dur("interval", cfg.Pipeline.Interval).
		Msg("Starting cinesync")

	stores, closeStores, err := openStores(&cfg.State)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open checkpoint storage")
		return 1
	}
	defer closeStores()

	layout, err := database.NewLayout(cfg.Postgres.Schema, cfg.Pipeline.PrimaryFK, cfg.Pipeline.Tables)
	if err != nil {
		logging.Error().Err(err).Msg("Invalid table layout")
		return 1
	}
	origin, err := cfg.Pipeline.InitialWatermark()
	if err != nil {
		logging.Error().Err(err).Msg("Invalid initial watermark")
		return 1
	}

	policy := retry.Policy{
		StartDelay: cfg.Retry.StartDelay,
		Factor:     cfg.Retry.Factor,
		MaxDelay:   cfg.Retry.MaxDelay,
	}

	db := database.New(cfg.Postgres, layout, policy)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing source connection")
		}
	}()

	extractor, err := extract.New(db, stores[state.ConsumerExtractor], extract.Config{
		Layout:               layout,
		ChunkSize:            cfg.Pipeline.ChunkSize,
		Origin:               models.Watermark{Timestamp: origin},
		ColdStartSkipRelated: cfg.Pipeline.ColdStartSkipRelated,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create extractor")
		return 1
	}
	aggregator := transform.New(stores[state.ConsumerTransformer])

	es := elastic.NewClient(cfg.Elastic)
	publisher := load.NewPublisher(es, stores[state.ConsumerLoader], policy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeDependencies(ctx, db, es)

	manager := sync.NewManager(extractor, aggregator, publisher, cfg.Pipeline.Interval)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}
	tree.AddPipelineService(services.NewSyncService(manager))

	if cfg.Server.Enabled {
		handler := api.NewHandler(api.Deps{
			Database:    db,
			Elastic:     es,
			Extractor:   extractor,
			Transformer: aggregator,
			Loader:      publisher,
			Sync:        manager,
		})
		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           api.NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("Ops HTTP server enabled")
	}

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// The channel receives exactly one value and is never closed.
	exitCode := 0
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		exitCode = 1
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("cinesync stopped")
	return exitCode
}

// openStores opens one checkpoint store per pipeline stage.
func openStores(cfg *config.StateConfig) (map[string]*state.Store, func(), error) {
	consumers := []string{state.ConsumerExtractor, state.ConsumerTransformer, state.ConsumerLoader}
	stores := make(map[string]*state.Store, len(consumers))

	switch cfg.Backend {
	case config.BackendBadger:
		bdb, err := state.OpenBadger(cfg.BadgerPath, cfg.SyncWrites)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range consumers {
			stores[c] = state.New(c, bdb.Storage(c))
		}
		return stores, func() {
			if err := bdb.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing checkpoint database")
			}
		}, nil

	default:
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, nil, err
		}
		for _, c := range consumers {
			stores[c] = state.New(c, state.NewFileStorage(cfg.Dir, c))
		}
		return stores, func() {}, nil
	}
}

// probeDependencies logs whether the source and the index answer. Failures
// are not fatal; the first cycle retries.
func probeDependencies(ctx context.Context, db *database.DB, es *elastic.Client) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Postgres not reachable yet (will retry)")
	} else {
		logging.Info().Msg("Connected to Postgres")
	}
	if err := es.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Elasticsearch not reachable yet (will retry)")
	} else {
		logging.Info().Msg("Connected to Elasticsearch")
	}
}
