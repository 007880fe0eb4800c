package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "data.json")
	store, err := New(Config{DataFile: path})
	require.NoError(t, err)
	return store, path
}

func TestStore_LoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	records := []*models.MigrationRecord{
		models.NewMigrationRecord("20201005215809", models.MigrationData{Events: 10, LegacyOnlyEvents: 10}, ""),
		models.NewMigrationRecord("20201006094019", models.MigrationData{Events: 11, LegacyOnlyEvents: 9}, "alice: Bug 1 - mirror <search> events"),
	}
	require.NoError(t, store.Save(ctx, records))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "20201006094019", loaded[1].BuildID)
	assert.Equal(t, 9, loaded[1].Data.LegacyOnlyEvents)
	assert.Equal(t, "alice: Bug 1 - mirror <search> events", loaded[1].Log)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<search>")
}

func TestStore_RewriteKeepsExistingLines(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	// Historic lines with a different field set and spacing.
	existing := "{\"buildid\":\"20201005215809\",\"data\":{\"events\":1},\"log\":\"\"}\n" +
		"\n" +
		"{\"buildid\": \"20201006094019\", \"data\": {\"events\": 2}, \"log\": \"x\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	loaded = append(loaded, models.NewMigrationRecord("20201007000000", models.MigrationData{Events: 3}, ""))
	require.NoError(t, store.Save(ctx, loaded))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "{\"buildid\":\"20201005215809\",\"data\":{\"events\":1},\"log\":\"\"}\n" +
		"{\"buildid\": \"20201006094019\", \"data\": {\"events\": 2}, \"log\": \"x\"}\n" +
		"{\"buildid\":\"20201007000000\",\"data\":{\"events\":3,\"legacyOnlyEvents\":0,\"histograms\":0," +
		"\"legacyOnlyHistograms\":0,\"scalars\":0,\"legacyOnlyScalars\":0,\"metrics\":0," +
		"\"metricsWithoutUseCounters\":0,\"metricsWithTelemetryMirror\":0,\"environmentProbes\":0," +
		"\"gleanEnvironmentProbes\":0,\"legacyOnlyEnvironmentProbes\":0},\"log\":\"\"}\n"
	assert.Equal(t, want, string(raw))
}

func TestStore_LoadMalformedLine(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{\"buildid\":\"20201005215809\",\"data\":{}}\n{oops\n"), 0644))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestStore_SaveRejectsDuplicates(t *testing.T) {
	store, path := newTestStore(t)

	records := []*models.MigrationRecord{
		models.NewMigrationRecord("20201005215809", models.MigrationData{}, ""),
		models.NewMigrationRecord("20201005215809", models.MigrationData{}, ""),
	}
	err := store.Save(context.Background(), records)
	assert.ErrorIs(t, err, models.ErrDuplicateBuildID)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing must be written")
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
