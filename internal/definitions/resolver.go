package definitions

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/command"
)

// MetricsIndexDir holds metrics_index.py, relative to the source root.
const MetricsIndexDir = "toolkit/components/glean"

// MetricsIndexFile is the index script listing every metrics.yaml.
const MetricsIndexFile = MetricsIndexDir + "/metrics_index.py"

const metricsIndexScript = `exec(open("metrics_index.py").read());print("\n".join(metrics_yamls))`

// PathResolver lists the metrics.yaml files of the checked-out tree,
// relative to the source root.
type PathResolver interface {
	MetricsFiles(ctx context.Context) ([]string, error)
}

// PythonIndexResolver evaluates the upstream metrics_index.py.
type PythonIndexResolver struct {
	SourceDir string
	Python    string
	Runner    command.Runner
}

// NewPythonIndexResolver creates a resolver running python in sourceDir.
func NewPythonIndexResolver(sourceDir, python string, runner command.Runner) *PythonIndexResolver {
	if python == "" {
		python = "python3"
	}
	return &PythonIndexResolver{
		SourceDir: sourceDir,
		Python:    python,
		Runner:    runner,
	}
}

// MetricsFiles runs the index script and returns one path per output line.
func (r *PythonIndexResolver) MetricsFiles(ctx context.Context) ([]string, error) {
	dir := filepath.Join(r.SourceDir, filepath.FromSlash(MetricsIndexDir))
	out, err := r.Runner.Run(ctx, dir, r.Python, "-c", metricsIndexScript)
	if err != nil {
		return nil, fmt.Errorf("resolving metrics index: %w", err)
	}
	return splitLines(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
