package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Store keeps the history log in the migration_records table.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewStore connects and initializes the schema.
func NewStore(ctx context.Context, config *ConnectionConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := Connect(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to ClickHouse: %w", err)
	}

	if err := InitializeSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{
		conn:   conn,
		logger: logger,
	}, nil
}

// Load returns the log ordered by insertion sequence.
func (s *Store) Load(ctx context.Context) ([]*models.MigrationRecord, error) {
	rows, err := s.conn.Query(ctx, "SELECT line FROM migration_records FINAL ORDER BY seq")
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

// Save inserts the records whose build id is not stored yet in one batch.
func (s *Store) Save(ctx context.Context, records []*models.MigrationRecord) error {
	known, err := s.storedBuildIDs(ctx)
	if err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO migration_records")
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}

	added := 0
	for i, r := range records {
		if _, ok := known[r.BuildID]; ok {
			continue
		}

		line, err := r.Line()
		if err != nil {
			batch.Abort()
			return err
		}

		buildTime, err := models.Release{BuildID: r.BuildID}.BuildTime()
		if err != nil {
			s.logger.Warn("build id is not a timestamp", "build_id", r.BuildID)
			buildTime = time.Unix(0, 0).UTC()
		}

		d := r.Data
		if err := batch.Append(
			r.BuildID,
			uint32(i),
			buildTime,
			int64(d.Events),
			int64(d.LegacyOnlyEvents),
			int64(d.Histograms),
			int64(d.LegacyOnlyHistograms),
			int64(d.Scalars),
			int64(d.LegacyOnlyScalars),
			int64(d.Metrics),
			int64(d.MetricsWithoutUseCounters),
			int64(d.MetricsWithTelemetryMirror),
			int64(d.EnvironmentProbes),
			int64(d.GleanEnvironmentProbes),
			int64(d.LegacyOnlyEnvironmentProbes),
			r.Log,
			string(line),
			time.Now(),
		); err != nil {
			batch.Abort()
			return fmt.Errorf("appending record %s: %w", r.BuildID, err)
		}
		added++
	}

	if added == 0 {
		return batch.Abort()
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending batch: %w", err)
	}

	s.logger.Debug("records inserted into ClickHouse", "count", added)
	return nil
}

func (s *Store) storedBuildIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, "SELECT DISTINCT build_id FROM migration_records")
	if err != nil {
		return nil, fmt.Errorf("querying build ids: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning build id: %w", err)
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
