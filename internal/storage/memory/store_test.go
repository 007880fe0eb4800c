package memory

import (
	"context"
	"testing"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := New()

	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	in := []*models.MigrationRecord{
		models.NewMigrationRecord("20201005215809", models.MigrationData{Events: 1}, ""),
	}
	require.NoError(t, store.Save(ctx, in))

	// The caller's slice must not alias the store.
	in[0] = models.NewMigrationRecord("20201006094019", models.MigrationData{}, "")

	records, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "20201005215809", records[0].BuildID)
	assert.Equal(t, 1, store.Len())
}

func TestStore_SaveRejectsDuplicates(t *testing.T) {
	store := NewWithRecords(nil)
	err := store.Save(context.Background(), []*models.MigrationRecord{
		models.NewMigrationRecord("20201005215809", models.MigrationData{}, ""),
		models.NewMigrationRecord("20201005215809", models.MigrationData{}, ""),
	})
	assert.ErrorIs(t, err, models.ErrDuplicateBuildID)
	assert.Zero(t, store.Len())
}
