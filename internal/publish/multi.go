package publish

import (
	"context"
	"errors"

	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Publisher makes a saved history log visible.
type Publisher interface {
	Publish(ctx context.Context, buildIDs []string, records []*models.MigrationRecord) error
}

// Multi publishes to every publisher in order. A failing publisher does not
// stop the others; the errors are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, buildIDs []string, records []*models.MigrationRecord) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, buildIDs, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
