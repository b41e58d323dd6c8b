/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command opsdeck runs the manufacturing operations dashboard: it wires the
// configured storage backend into one entity store per collection, opens
// their change feeds, and serves the terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/suparena/mfgstore"
	"github.com/suparena/mfgstore/config"
	"github.com/suparena/mfgstore/datastore"
	"github.com/suparena/mfgstore/datastore/ddb"
	"github.com/suparena/mfgstore/datastore/postgres"
	"github.com/suparena/mfgstore/insight"
	"github.com/suparena/mfgstore/logs"
	"github.com/suparena/mfgstore/metrics"
	"github.com/suparena/mfgstore/models"
	"github.com/suparena/mfgstore/registry"
	"github.com/suparena/mfgstore/store"
	"github.com/suparena/mfgstore/ui"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	envFile := flag.String("config", "", "path to a .env configuration file")
	backend := flag.String("backend", "", "storage backend override (postgres or dynamodb)")
	flag.Parse()

	if *showVersion {
		info := mfgstore.GetVersionInfo()
		fmt.Printf("opsdeck %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildDate)
		return
	}

	if err := run(*envFile, *backend); err != nil {
		fmt.Fprintf(os.Stderr, "opsdeck: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile, backendOverride string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if backendOverride != "" {
		cfg.Backend = backendOverride
	}

	logger, err := logs.New(cfg.LogFile, cfg.LogConsole)
	if err != nil {
		return err
	}
	logger.Info().Str("backend", cfg.Backend).Msg("starting opsdeck")

	ctx := context.Background()

	sources, err := buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rec := metrics.NewPromRecorder(prometheus.DefaultRegisterer)

	products, err := store.New[models.Product]("products", sources.products,
		store.WithLogger[models.Product](logger),
		store.WithMetrics[models.Product](rec),
	)
	if err != nil {
		return err
	}
	materials, err := store.New[models.RawMaterial]("raw_materials", sources.materials,
		store.WithLogger[models.RawMaterial](logger),
		store.WithMetrics[models.RawMaterial](rec),
	)
	if err != nil {
		return err
	}
	batches, err := store.New[models.ProductionBatch]("production_batches", sources.batches,
		store.WithLogger[models.ProductionBatch](logger),
		store.WithMetrics[models.ProductionBatch](rec),
	)
	if err != nil {
		return err
	}

	set := mfgstore.NewStoreSet()
	if err := mfgstore.RegisterStore(set, products); err != nil {
		return err
	}
	if err := mfgstore.RegisterStore(set, materials); err != nil {
		return err
	}
	if err := mfgstore.RegisterStore(set, batches); err != nil {
		return err
	}
	defer set.UnsubscribeAll()

	if err := mfgstore.Open(ctx, products); err != nil {
		return fmt.Errorf("failed to open products store: %w", err)
	}
	if err := mfgstore.Open(ctx, materials); err != nil {
		return fmt.Errorf("failed to open raw materials store: %w", err)
	}
	if err := mfgstore.Open(ctx, batches); err != nil {
		return fmt.Errorf("failed to open production batches store: %w", err)
	}

	insights, err := insight.New(ctx, cfg.InsightAPIKey, cfg.InsightModel, logger)
	if err != nil {
		return err
	}

	app := ui.NewApp(products, materials, batches, insights, logger)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("UI terminated abnormally: %w", err)
	}

	logger.Info().Msg("opsdeck stopped")
	return nil
}

// sourceSet bundles one remote source per entity.
type sourceSet struct {
	products  datastore.RemoteSource[models.Product]
	materials datastore.RemoteSource[models.RawMaterial]
	batches   datastore.RemoteSource[models.ProductionBatch]
}

func buildSources(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sourceSet, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return buildPostgresSources(ctx, cfg, logger)
	case config.BackendDynamoDB:
		return buildDynamoSources(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func buildPostgresSources(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sourceSet, error) {
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	// Changefeed triggers are idempotent; install them on every start.
	for _, tm := range entityTableMaps() {
		if err := postgres.InstallChangefeed(ctx, pool, tm); err != nil {
			return nil, err
		}
	}

	products, err := postgres.New[models.Product](pool, postgres.WithLogger[models.Product](logger))
	if err != nil {
		return nil, err
	}
	materials, err := postgres.New[models.RawMaterial](pool, postgres.WithLogger[models.RawMaterial](logger))
	if err != nil {
		return nil, err
	}
	batches, err := postgres.New[models.ProductionBatch](pool, postgres.WithLogger[models.ProductionBatch](logger))
	if err != nil {
		return nil, err
	}
	return &sourceSet{products: products, materials: materials, batches: batches}, nil
}

func buildDynamoSources(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sourceSet, error) {
	awsCfg, err := ddb.LoadConfig(ctx, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	products, err := ddb.New[models.Product](awsCfg, ddb.WithLogger[models.Product](logger))
	if err != nil {
		return nil, err
	}
	materials, err := ddb.New[models.RawMaterial](awsCfg, ddb.WithLogger[models.RawMaterial](logger))
	if err != nil {
		return nil, err
	}
	batches, err := ddb.New[models.ProductionBatch](awsCfg, ddb.WithLogger[models.ProductionBatch](logger))
	if err != nil {
		return nil, err
	}
	return &sourceSet{products: products, materials: materials, batches: batches}, nil
}

func entityTableMaps() []registry.TableMap {
	var out []registry.TableMap
	if tm, ok := registry.GetTableMap[models.Product](); ok {
		out = append(out, tm)
	}
	if tm, ok := registry.GetTableMap[models.RawMaterial](); ok {
		out = append(out, tm)
	}
	if tm, ok := registry.GetTableMap[models.ProductionBatch](); ok {
		out = append(out, tm)
	}
	return out
}
