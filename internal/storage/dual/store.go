// Package dual mirrors the history log to a secondary backend.
package dual

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Backend is the subset of storage.Storage the dual store wraps.
type Backend interface {
	Load(ctx context.Context) ([]*models.MigrationRecord, error)
	Save(ctx context.Context, records []*models.MigrationRecord) error
	Close() error
}

// Store wraps two storage backends.
// Writes go to both primary and secondary.
// Reads come from primary only.
type Store struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// Config holds dual store configuration.
type Config struct {
	Primary   Backend
	Secondary Backend
	Logger    *slog.Logger
}

// New creates a new dual-write store.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		logger:    cfg.Logger,
	}
}

// Load reads the log from the primary backend only.
func (s *Store) Load(ctx context.Context) ([]*models.MigrationRecord, error) {
	return s.primary.Load(ctx)
}

// Save writes the primary first; its result decides success. Errors from
// the secondary are logged, the next Save catches it up.
func (s *Store) Save(ctx context.Context, records []*models.MigrationRecord) error {
	if err := s.primary.Save(ctx, records); err != nil {
		return err
	}

	if err := s.secondary.Save(ctx, records); err != nil {
		s.logger.Error("dual-write to secondary failed",
			"records", len(records),
			"error", err,
		)
	}

	return nil
}

// Close closes both backends.
func (s *Store) Close() error {
	primaryErr := s.primary.Close()
	secondaryErr := s.secondary.Close()

	if primaryErr != nil {
		return fmt.Errorf("close primary: %w", primaryErr)
	}
	if secondaryErr != nil {
		return fmt.Errorf("close secondary: %w", secondaryErr)
	}

	return nil
}
