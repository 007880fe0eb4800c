package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fidde/glean_migration_tracker/internal/storage/clickhouse"
	"github.com/fidde/glean_migration_tracker/internal/storage/dual"
	"github.com/fidde/glean_migration_tracker/internal/storage/jsonl"
	"github.com/fidde/glean_migration_tracker/internal/storage/memory"
	"github.com/fidde/glean_migration_tracker/internal/storage/sqlite"
)

// Backend names.
const (
	BackendJSONL      = "jsonl"
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)

// Config holds storage configuration.
type Config struct {
	// Backend selects the primary backend. The JSONL file is the
	// authoritative history log published to the repository.
	Backend string

	// Secondary, when set, names a backend that mirrors every save.
	Secondary string

	DataFile   string
	SQLitePath string

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendJSONL,
		DataFile:           jsonl.DefaultConfig().DataFile,
		SQLitePath:         "./tracker.db",
		ClickHouseAddr:     "localhost:9000",
		ClickHouseDatabase: "default",
		ClickHouseUser:     "default",
	}
}

// NewStorage creates the configured backend, wrapped in a dual store when
// a secondary backend is configured.
func NewStorage(ctx context.Context, cfg Config, logger *slog.Logger) (Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	primary, err := newBackend(ctx, cfg.Backend, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("storage backend ready", "backend", cfg.Backend)

	if cfg.Secondary == "" || cfg.Secondary == cfg.Backend {
		return primary, nil
	}

	secondary, err := newBackend(ctx, cfg.Secondary, cfg, logger)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("secondary backend: %w", err)
	}
	logger.Info("mirroring history log", "secondary", cfg.Secondary)

	return dual.New(dual.Config{
		Primary:   primary,
		Secondary: secondary,
		Logger:    logger,
	}), nil
}

func newBackend(ctx context.Context, name string, cfg Config, logger *slog.Logger) (Storage, error) {
	switch name {
	case BackendJSONL, "":
		store, err := jsonl.New(jsonl.Config{DataFile: cfg.DataFile})
		if err != nil {
			return nil, fmt.Errorf("creating JSONL store: %w", err)
		}
		return store, nil

	case BackendSQLite:
		store, err := sqlite.New(sqlite.DefaultConfig(cfg.SQLitePath))
		if err != nil {
			return nil, fmt.Errorf("creating SQLite store: %w", err)
		}
		return store, nil

	case BackendClickHouse:
		chCfg := clickhouse.DefaultConfig()
		chCfg.Addr = cfg.ClickHouseAddr
		if cfg.ClickHouseDatabase != "" {
			chCfg.Database = cfg.ClickHouseDatabase
		}
		if cfg.ClickHouseUser != "" {
			chCfg.Username = cfg.ClickHouseUser
		}
		chCfg.Password = cfg.ClickHousePassword

		store, err := clickhouse.NewStore(ctx, chCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse store: %w", err)
		}
		return store, nil

	case BackendMemory:
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: jsonl, sqlite, clickhouse, memory)", name)
	}
}
