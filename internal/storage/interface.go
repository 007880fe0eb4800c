// Package storage defines the storage interface for the migration history log.
package storage

import (
	"context"

	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Storage persists the history log. The log is append-only: Save receives
// the full log, and records already persisted are never rewritten.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Load returns the log in append order. A missing log is empty.
	Load(ctx context.Context) ([]*models.MigrationRecord, error)

	// Save persists the full log.
	Save(ctx context.Context, records []*models.MigrationRecord) error

	// Close the storage (for cleanup, e.g., DB connections)
	Close() error
}
