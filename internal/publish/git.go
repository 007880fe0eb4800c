// Package publish makes an updated history log visible outside the host.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/command"
	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Git commits the data file and pushes it to the default remote.
type Git struct {
	repoDir  string
	dataFile string
	git      string
	runner   command.Runner
	logger   *slog.Logger
}

// GitConfig holds the repository settings.
type GitConfig struct {
	// RepoDir is the working tree containing DataFile
	RepoDir  string
	DataFile string

	// Binary is the git executable, "git" when empty
	Binary string
}

// NewGit creates a git publisher. A nil runner uses os/exec.
func NewGit(cfg GitConfig, runner command.Runner, logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = command.NewExecRunner(logger)
	}
	bin := cfg.Binary
	if bin == "" {
		bin = "git"
	}
	dataFile := cfg.DataFile
	if abs, err := filepath.Abs(dataFile); err == nil {
		dataFile = abs
	}
	repoDir := cfg.RepoDir
	if repoDir == "" {
		repoDir = filepath.Dir(dataFile)
	}
	return &Git{
		repoDir:  repoDir,
		dataFile: dataFile,
		git:      bin,
		runner:   runner,
		logger:   logger,
	}
}

// Publish commits the data file and pushes.
func (g *Git) Publish(ctx context.Context, buildIDs []string, _ []*models.MigrationRecord) error {
	if len(buildIDs) == 0 {
		return nil
	}

	msg := CommitMessage(buildIDs)
	if _, err := g.runner.Run(ctx, g.repoDir, g.git, "commit", "-m", msg, g.dataFile); err != nil {
		return fmt.Errorf("committing data file: %w", err)
	}

	// --porcelain reports on stdout; git push otherwise only writes to stderr.
	if _, err := g.runner.Run(ctx, g.repoDir, g.git, "push", "--porcelain"); err != nil {
		return fmt.Errorf("pushing: %w", err)
	}

	g.logger.Info("history log published", "commit", msg)
	return nil
}

// CommitMessage builds "Automated update for build id A." or
// "Automated update for build ids A, B and C.".
func CommitMessage(buildIDs []string) string {
	var list string
	switch n := len(buildIDs); n {
	case 0:
	case 1:
		list = buildIDs[0]
	default:
		list = strings.Join(buildIDs[:n-1], ", ") + " and " + buildIDs[n-1]
	}

	plural := ""
	if len(buildIDs) > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Automated update for build id%s %s.", plural, list)
}
