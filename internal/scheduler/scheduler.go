// Package scheduler re-runs a job at a fixed interval. Each run holds an
// exclusive file lock so that two tracker processes never update the same
// history log at once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
)

// DefaultInterval is the time between two runs.
const DefaultInterval = 6 * time.Hour

// ErrLocked is returned by RunOnce when another process holds the lock.
var ErrLocked = errors.New("run lock held by another process")

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Config holds the scheduler settings.
type Config struct {
	Interval time.Duration

	// LockFile guards runs across processes
	LockFile string
}

// Scheduler runs a job immediately and then every interval.
type Scheduler struct {
	interval time.Duration
	lockFile string
	job      Job
	logger   *slog.Logger
}

// New creates a scheduler.
func New(cfg Config, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{
		interval: cfg.Interval,
		lockFile: cfg.LockFile,
		job:      job,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Job errors are logged and the next
// tick runs the job again.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "lock_file", s.lockFile)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrLocked):
		s.logger.Warn("previous run still in progress, skipping", "lock_file", s.lockFile)
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err, "next_run", time.Now().Add(s.interval))
	}
}

// RunOnce runs the job under the lock.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.lockFile == "" {
		return s.job(ctx)
	}

	lock := flock.New(s.lockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing run lock", "error", err)
		}
	}()

	return s.job(ctx)
}
