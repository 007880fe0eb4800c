// Package analyzer turns the definitions of a checked-out snapshot into
// migration counts.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fidde/glean_migration_tracker/internal/definitions"
	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// DefinitionReader reads the definitions of the current checkout.
type DefinitionReader interface {
	Read(ctx context.Context) (*definitions.Set, error)
	TrackedFiles(set *definitions.Set) []string
}

// Result is the analysis of one snapshot.
type Result struct {
	Data models.MigrationData

	// TrackedFiles are the definition files the counts were derived from
	TrackedFiles []string
}

// Analyzer reads, indexes and accounts one snapshot.
type Analyzer struct {
	reader DefinitionReader
	logger *slog.Logger
}

// New creates an analyzer.
func New(reader DefinitionReader, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		reader: reader,
		logger: logger,
	}
}

// Analyze runs the readers and accounts the result.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	set, err := a.reader.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}

	index := BuildMirrorIndex(set.Metrics)
	data := Account(set, index)

	if data.LegacyOnlyEnvironmentProbes < 0 {
		a.logger.Warn("environment annotations inconsistent, Glean count exceeds legacy count",
			"legacy", data.EnvironmentProbes,
			"glean", data.GleanEnvironmentProbes,
		)
	}

	a.logger.Debug("snapshot analyzed",
		"events", data.Events,
		"histograms", data.Histograms,
		"scalars", data.Scalars,
		"metrics", data.Metrics,
		"mirrors", len(index),
	)

	return &Result{
		Data:         data,
		TrackedFiles: a.reader.TrackedFiles(set),
	}, nil
}
