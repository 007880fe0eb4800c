// Package command runs external programs against the checked-out tree.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const stderrLimit = 8 << 10 // 8 KiB

// ErrCommandFailed is returned when a command exits with an error or
// writes to stderr without producing any output.
var ErrCommandFailed = errors.New("command failed")

// Runner executes a program in a working directory and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	logger *slog.Logger

	// Quiet suppresses the per-command info line (used for log queries).
	Quiet bool
}

// NewExecRunner creates a runner that logs every invocation.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes name with args in dir. Output on stderr is logged; it is
// only fatal when stdout stayed empty.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if !r.Quiet {
		r.logger.Info("executing", "cmd", cmd.String(), "dir", dir)
	}

	err := cmd.Run()

	if stderr.Len() > 0 {
		s := trimStderr(stderr.String())
		r.logger.Warn("command wrote to stderr", "cmd", cmd.String(), "stderr", s)
		if stdout.Len() == 0 {
			return "", fmt.Errorf("%w: %s: %s", ErrCommandFailed, cmd, s)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return stdout.String(), fmt.Errorf("%w: %s: %w", ErrCommandFailed, cmd, err)
	}

	return stdout.String(), nil
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrLimit {
		s = s[:stderrLimit] + "… (truncated)"
	}
	return s
}
