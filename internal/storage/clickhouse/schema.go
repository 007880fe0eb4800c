package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const schemaVersion = "1.0.0"

// InitializeSchema creates the tables if they don't exist.
func InitializeSchema(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, schemaVersionTableDDL); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion, err := getCurrentSchemaVersion(ctx, conn)
	if err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	if currentVersion != "" && currentVersion != schemaVersion {
		return fmt.Errorf("schema version mismatch: database has %s, code expects %s", currentVersion, schemaVersion)
	}

	if err := conn.Exec(ctx, migrationRecordsTableDDL); err != nil {
		return fmt.Errorf("creating table migration_records: %w", err)
	}

	if currentVersion == "" {
		if err := conn.Exec(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
	}

	return nil
}

func getCurrentSchemaVersion(ctx context.Context, conn driver.Conn) (string, error) {
	var version string
	row := conn.QueryRow(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1")
	if err := row.Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return version, nil
}

const schemaVersionTableDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version String,
    applied_at DateTime64(3) DEFAULT now64(3)
) ENGINE = MergeTree()
ORDER BY applied_at
`

// Counts are signed: the environment gap can be negative.
const migrationRecordsTableDDL = `
CREATE TABLE IF NOT EXISTS migration_records (
    -- Identity
    build_id String,
    seq UInt32,
    build_time DateTime,

    -- Counts
    events Int64,
    legacy_only_events Int64,
    histograms Int64,
    legacy_only_histograms Int64,
    scalars Int64,
    legacy_only_scalars Int64,
    metrics Int64,
    metrics_without_use_counters Int64,
    metrics_with_telemetry_mirror Int64,
    environment_probes Int64,
    glean_environment_probes Int64,
    legacy_only_environment_probes Int64,

    -- Change summary and the history log line
    log String,
    line String,

    inserted_at DateTime64(3) DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(inserted_at)
ORDER BY build_id
`
