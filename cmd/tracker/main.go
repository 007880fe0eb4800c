// Package main is the entry point for the Glean migration tracker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fidde/glean_migration_tracker/internal/analyzer"
	"github.com/fidde/glean_migration_tracker/internal/api"
	"github.com/fidde/glean_migration_tracker/internal/command"
	"github.com/fidde/glean_migration_tracker/internal/config"
	"github.com/fidde/glean_migration_tracker/internal/definitions"
	"github.com/fidde/glean_migration_tracker/internal/discovery"
	"github.com/fidde/glean_migration_tracker/internal/history"
	"github.com/fidde/glean_migration_tracker/internal/logging"
	"github.com/fidde/glean_migration_tracker/internal/observability"
	"github.com/fidde/glean_migration_tracker/internal/publish"
	"github.com/fidde/glean_migration_tracker/internal/scheduler"
	"github.com/fidde/glean_migration_tracker/internal/storage"
	"github.com/fidde/glean_migration_tracker/internal/vcs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("tracker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Glean migration tracker",
		"source_dir", cfg.SourceDir,
		"data_file", cfg.DataFile,
		"interval", cfg.Interval,
	)

	store, err := storage.NewStorage(ctx, storage.Config{
		Backend:            cfg.Storage.Backend,
		Secondary:          cfg.Storage.Secondary,
		DataFile:           cfg.DataFile,
		SQLitePath:         cfg.Storage.SQLitePath,
		ClickHouseAddr:     cfg.Storage.ClickHouseAddr,
		ClickHouseDatabase: cfg.Storage.ClickHouseDatabase,
		ClickHouseUser:     cfg.Storage.ClickHouseUser,
		ClickHousePassword: cfg.Storage.ClickHousePassword,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	metrics := observability.NewMetrics()
	if records, err := store.Load(ctx); err != nil {
		logger.Warn("history log not readable at startup", "error", err)
	} else {
		metrics.ObserveLog(records)
		logger.Info("history log loaded", "records", len(records))
	}

	runner := command.NewExecRunner(logger)

	reader := definitions.NewReader(
		definitions.DefaultConfig(cfg.SourceDir),
		definitions.NewPythonIndexResolver(cfg.SourceDir, cfg.Python, runner),
		logger,
	)

	publisher, closePublishers, err := newPublisher(cfg, runner, logger)
	if err != nil {
		return err
	}
	defer closePublishers()

	manager := history.NewManager(history.Config{
		Storage: store,
		Discoverer: discovery.NewClient(discovery.Config{
			URL:          cfg.Discovery.URL,
			Marker:       cfg.Discovery.Marker,
			FirstBuildID: cfg.Discovery.FirstBuildID,
			Timeout:      cfg.Discovery.Timeout,
		}, nil, logger),
		Checkout:  vcs.NewMercurial(vcs.Config{Dir: cfg.SourceDir, Binary: cfg.Hg}, runner, logger),
		Analyzer:  analyzer.New(reader, logger),
		Publisher: publisher,
		Observer:  metrics,
		Logger:    logger,
	})

	var apiServer *api.Server
	if cfg.APIAddr != "" {
		apiServer = api.NewServer(api.Config{
			Addr:    cfg.APIAddr,
			Records: store,
			Runs:    manager,
			Metrics: metrics.Handler(),
			Logger:  logger,
		})
		go func() {
			logger.Info("starting REST API server", "addr", cfg.APIAddr)
			if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("API server error", "error", err)
			}
		}()
	}

	sched := scheduler.New(scheduler.Config{
		Interval: cfg.Interval,
		LockFile: cfg.LockFile(),
	}, func(ctx context.Context) error {
		_, err := manager.Run(ctx)
		return err
	}, logger)

	err = sched.Run(ctx)

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down API server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return err
}

func newPublisher(cfg *config.Config, runner command.Runner, logger *slog.Logger) (history.Publisher, func(), error) {
	var publishers publish.Multi
	closeAll := func() {}

	if cfg.Publish.Git {
		publishers = append(publishers, publish.NewGit(publish.GitConfig{
			RepoDir:  cfg.Publish.RepoDir,
			DataFile: cfg.DataFile,
		}, runner, logger))
	}

	if cfg.Publish.OTLPEndpoint != "" {
		exporter, err := publish.NewOTLP(publish.OTLPConfig{
			Endpoint: cfg.Publish.OTLPEndpoint,
			Protocol: cfg.Publish.OTLPProtocol,
			Insecure: cfg.Publish.OTLPInsecure,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, exporter)
		closeAll = func() {
			if err := exporter.Close(); err != nil {
				logger.Warn("closing OTLP exporter", "error", err)
			}
		}
	}

	if len(publishers) == 0 {
		logger.Warn("no publisher configured, the history log stays local")
		return nil, closeAll, nil
	}
	return publishers, closeAll, nil
}
