// Package vcs drives the Mercurial checkout of the upstream tree.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/command"
)

// LogTemplate renders one line per changeset: the author's user name and
// the first line of the description.
const LogTemplate = "{author|user}: {desc|strip|firstline}\n"

// Mercurial runs hg in a local clone.
type Mercurial struct {
	dir    string
	hg     string
	runner command.Runner
	logger *slog.Logger
}

// Config holds the checkout settings.
type Config struct {
	// Dir is the local clone of the upstream repository
	Dir string

	// Binary is the hg executable, "hg" when empty
	Binary string
}

// NewMercurial creates a checkout driver. A nil runner uses os/exec.
func NewMercurial(cfg Config, runner command.Runner, logger *slog.Logger) *Mercurial {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = command.NewExecRunner(logger)
	}
	hg := cfg.Binary
	if hg == "" {
		hg = "hg"
	}
	return &Mercurial{
		dir:    cfg.Dir,
		hg:     hg,
		runner: runner,
		logger: logger,
	}
}

// Dir returns the clone directory.
func (m *Mercurial) Dir() string {
	return m.dir
}

// Pull fetches new changesets from the default remote.
func (m *Mercurial) Pull(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, m.dir, m.hg, "pull"); err != nil {
		return fmt.Errorf("pulling: %w", err)
	}
	return nil
}

// UpdateTo checks out rev.
func (m *Mercurial) UpdateTo(ctx context.Context, rev string) error {
	if _, err := m.runner.Run(ctx, m.dir, m.hg, "update", "-r", rev); err != nil {
		return fmt.Errorf("updating to %s: %w", rev, err)
	}
	return nil
}

// LogBetween lists the changesets in the range from:to that touch any of
// paths, one templated line each.
func (m *Mercurial) LogBetween(ctx context.Context, from, to string, paths []string) (string, error) {
	args := []string{
		"log",
		"-r", from + ":" + to,
		"--template", LogTemplate,
	}
	args = append(args, paths...)

	out, err := m.quiet().Run(ctx, m.dir, m.hg, args...)
	if err != nil {
		return "", fmt.Errorf("reading log %s..%s: %w", from, to, err)
	}
	return strings.TrimSpace(out), nil
}

// quiet drops the per-command log line for the exec runner; log queries
// name every tracked file and would flood the output.
func (m *Mercurial) quiet() command.Runner {
	if r, ok := m.runner.(*command.ExecRunner); ok {
		q := *r
		q.Quiet = true
		return &q
	}
	return m.runner
}
