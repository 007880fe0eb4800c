//go:build integration

package clickhouse

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClickHouseIntegration tests the history log against a live server.
// Run with: go test -tags=integration ./internal/storage/clickhouse -v
func TestClickHouseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := NewStore(ctx, DefaultConfig(), logger)
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	defer store.Close()

	require.NoError(t, store.conn.Exec(ctx, "TRUNCATE TABLE migration_records"))

	records := []*models.MigrationRecord{
		models.NewMigrationRecord("20201005215809", models.MigrationData{Events: 1}, ""),
		models.NewMigrationRecord("20201006094019", models.MigrationData{Events: 2, LegacyOnlyEnvironmentProbes: -3}, "carol: Bug 3"),
	}

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, records))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"20201005215809", "20201006094019"}, models.BuildIDs(loaded))
		assert.Equal(t, -3, loaded[1].Data.LegacyOnlyEnvironmentProbes)
	})

	t.Run("SaveIsAppendOnly", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, records))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded, 2)
	})
}
