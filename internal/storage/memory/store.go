// Package memory provides an in-memory history log.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Store is an in-memory history log.
type Store struct {
	records []*models.MigrationRecord
	mu      sync.RWMutex
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// NewWithRecords creates a store holding records, as if loaded from disk.
func NewWithRecords(records []*models.MigrationRecord) *Store {
	s := New()
	s.records = append(s.records, records...)
	return s
}

// Load returns a copy of the stored log.
func (s *Store) Load(ctx context.Context) ([]*models.MigrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	return append([]*models.MigrationRecord(nil), s.records...), nil
}

// Save replaces the stored log.
func (s *Store) Save(ctx context.Context, records []*models.MigrationRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.BuildID]; dup {
			return fmt.Errorf("%s: %w", r.BuildID, models.ErrDuplicateBuildID)
		}
		seen[r.BuildID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]*models.MigrationRecord(nil), records...)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
