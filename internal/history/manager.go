// Package history keeps the migration history log up to date with the
// nightly releases of the upstream tree.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fidde/glean_migration_tracker/internal/analyzer"
	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/google/uuid"
)

// Storage persists the history log.
type Storage interface {
	Load(ctx context.Context) ([]*models.MigrationRecord, error)
	Save(ctx context.Context, records []*models.MigrationRecord) error
}

// Discoverer lists the published releases, oldest first.
type Discoverer interface {
	Releases(ctx context.Context) ([]models.Release, error)
}

// Checkout moves the local clone between revisions.
type Checkout interface {
	Pull(ctx context.Context) error
	UpdateTo(ctx context.Context, rev string) error
	LogBetween(ctx context.Context, from, to string, paths []string) (string, error)
}

// Analyzer computes the counts of the current checkout.
type Analyzer interface {
	Analyze(ctx context.Context) (*analyzer.Result, error)
}

// Publisher makes a saved log visible. It receives the build ids added by
// the run and the full log.
type Publisher interface {
	Publish(ctx context.Context, buildIDs []string, records []*models.MigrationRecord) error
}

// Observer is notified about run progress.
type Observer interface {
	SnapshotProcessed(record *models.MigrationRecord)

	// LogPersisted receives the stored log after a save, or the loaded log
	// when the run found nothing new.
	LogPersisted(records []*models.MigrationRecord)

	RunFinished(result models.RunResult, err error)
}

// Manager runs the discover, analyze, append and publish cycle.
type Manager struct {
	storage    Storage
	discoverer Discoverer
	checkout   Checkout
	analyzer   Analyzer
	publisher  Publisher
	observer   Observer
	logger     *slog.Logger

	// mu serializes runs
	mu sync.Mutex

	lastMu  sync.RWMutex
	lastRun *models.RunResult
}

// Config holds the manager's collaborators. Publisher and Observer are optional.
type Config struct {
	Storage    Storage
	Discoverer Discoverer
	Checkout   Checkout
	Analyzer   Analyzer
	Publisher  Publisher
	Observer   Observer
	Logger     *slog.Logger
}

// NewManager creates a history manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		storage:    cfg.Storage,
		discoverer: cfg.Discoverer,
		checkout:   cfg.Checkout,
		analyzer:   cfg.Analyzer,
		publisher:  cfg.Publisher,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
	}
}

// PendingSnapshots returns the releases whose build id is not in known,
// in the order of releases, each paired with the release listed before it.
func PendingSnapshots(releases []models.Release, known map[string]struct{}) []models.PendingSnapshot {
	var pending []models.PendingSnapshot
	var prev *models.Release

	for i := range releases {
		r := releases[i]
		if _, ok := known[r.BuildID]; !ok {
			snap := models.PendingSnapshot{Release: r}
			if prev != nil {
				p := *prev
				snap.Previous = &p
			}
			pending = append(pending, snap)
		}
		prev = &releases[i]
	}
	return pending
}

// Run appends a record for every release missing from the log, saves the
// log once and publishes it. Nothing is written when no release is new.
// A failure before the save leaves the stored log untouched.
func (m *Manager) Run(ctx context.Context) (models.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := models.RunResult{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}
	logger := m.logger.With("run_id", result.RunID)

	err := m.run(ctx, logger, &result)

	result.Finished = time.Now().UTC()
	if err != nil {
		result.Error = err.Error()
		logger.Error("run failed", "error", err, "duration", result.Finished.Sub(result.Started))
	} else {
		logger.Info("run finished",
			"new_build_ids", len(result.NewBuildIDs),
			"duration", result.Finished.Sub(result.Started),
		)
	}

	m.lastMu.Lock()
	last := result
	m.lastRun = &last
	m.lastMu.Unlock()

	if m.observer != nil {
		m.observer.RunFinished(result, err)
	}
	return result, err
}

func (m *Manager) run(ctx context.Context, logger *slog.Logger, result *models.RunResult) error {
	records, err := m.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading history log: %w", err)
	}

	releases, err := m.discoverer.Releases(ctx)
	if err != nil {
		return fmt.Errorf("discovering releases: %w", err)
	}
	result.Discovered = len(releases)

	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.BuildID] = struct{}{}
	}

	pending := PendingSnapshots(releases, known)
	if len(pending) == 0 {
		logger.Info("history log is up to date", "records", len(records), "releases", len(releases))
		if m.observer != nil {
			m.observer.LogPersisted(records)
		}
		return nil
	}
	logger.Info("new releases found", "count", len(pending))

	if err := m.checkout.Pull(ctx); err != nil {
		return err
	}

	added := make([]*models.MigrationRecord, 0, len(pending))
	for _, snap := range pending {
		record, err := m.process(ctx, logger, snap)
		if err != nil {
			return fmt.Errorf("processing build %s: %w", snap.BuildID, err)
		}
		added = append(added, record)
	}

	all := make([]*models.MigrationRecord, 0, len(records)+len(added))
	all = append(all, records...)
	all = append(all, added...)

	if err := m.storage.Save(ctx, all); err != nil {
		return fmt.Errorf("saving history log: %w", err)
	}
	result.NewBuildIDs = models.BuildIDs(added)
	if m.observer != nil {
		m.observer.LogPersisted(all)
	}

	if m.publisher == nil {
		return nil
	}
	if err := m.publisher.Publish(ctx, result.NewBuildIDs, all); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	return nil
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, snap models.PendingSnapshot) (*models.MigrationRecord, error) {
	if err := m.checkout.UpdateTo(ctx, snap.Hash); err != nil {
		return nil, err
	}

	analysis, err := m.analyzer.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	var log string
	if snap.Previous != nil {
		log, err = m.checkout.LogBetween(ctx, snap.Previous.Hash, snap.Hash, analysis.TrackedFiles)
		if err != nil {
			return nil, err
		}
	}

	record := models.NewMigrationRecord(snap.BuildID, analysis.Data, log)
	logger.Info("snapshot processed",
		"build_id", snap.BuildID,
		"hash", snap.Hash,
		"events", record.Data.Events,
		"legacy_only_events", record.Data.LegacyOnlyEvents,
		"metrics", record.Data.Metrics,
	)

	if m.observer != nil {
		m.observer.SnapshotProcessed(record)
	}
	return record, nil
}

// LastRun returns the result of the most recent run.
func (m *Manager) LastRun() (models.RunResult, bool) {
	m.lastMu.RLock()
	defer m.lastMu.RUnlock()

	if m.lastRun == nil {
		return models.RunResult{}, false
	}
	return *m.lastRun, true
}
