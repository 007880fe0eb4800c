// Package sqlite provides a SQLite-backed history log.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.up.sql
var migrationSQL string

// Store is a SQLite-backed history log.
type Store struct {
	db *sql.DB
}

// Config holds SQLite store configuration.
type Config struct {
	DBPath string
}

// DefaultConfig returns default SQLite configuration.
func DefaultConfig(dbPath string) Config {
	return Config{DBPath: dbPath}
}

// New creates a new SQLite store with the given configuration.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Load returns the log in insertion order.
func (s *Store) Load(ctx context.Context) ([]*models.MigrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT line FROM migration_records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*models.MigrationRecord
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		record, err := models.ParseRecordLine([]byte(line))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Save inserts the records not stored yet, in log order. Stored rows are
// left untouched.
func (s *Store) Save(ctx context.Context, records []*models.MigrationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO migration_records (
			build_id, line,
			events, legacy_only_events,
			histograms, legacy_only_histograms,
			scalars, legacy_only_scalars,
			metrics, metrics_without_use_counters, metrics_with_telemetry_mirror,
			environment_probes, glean_environment_probes, legacy_only_environment_probes,
			log
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		line, err := r.Line()
		if err != nil {
			return err
		}
		d := r.Data
		if _, err := stmt.ExecContext(ctx,
			r.BuildID, string(line),
			d.Events, d.LegacyOnlyEvents,
			d.Histograms, d.LegacyOnlyHistograms,
			d.Scalars, d.LegacyOnlyScalars,
			d.Metrics, d.MetricsWithoutUseCounters, d.MetricsWithTelemetryMirror,
			d.EnvironmentProbes, d.GleanEnvironmentProbes, d.LegacyOnlyEnvironmentProbes,
			r.Log,
		); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.BuildID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
