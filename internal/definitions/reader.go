// Package definitions reads the telemetry and Glean definition files of a
// checked-out source tree into normalized structures.
package definitions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"
)

// Default locations, relative to the source root.
const (
	DefaultEventsPath            = "toolkit/components/telemetry/Events.yaml"
	DefaultHistogramsPath        = "toolkit/components/telemetry/Histograms.json"
	DefaultScalarsPath           = "toolkit/components/telemetry/Scalars.yaml"
	DefaultEnvironmentPath       = "toolkit/components/telemetry/app/TelemetryEnvironment.sys.mjs"
	DefaultLegacyEnvironmentPath = "toolkit/components/telemetry/app/TelemetryEnvironment.jsm"
)

// Config holds the definition file locations.
type Config struct {
	// SourceDir is the root of the checked-out tree
	SourceDir string

	EventsPath     string
	HistogramsPath string
	ScalarsPath    string

	// EnvironmentPath is tried first, LegacyEnvironmentPath when it is missing
	EnvironmentPath       string
	LegacyEnvironmentPath string
}

// DefaultConfig returns the mozilla-central layout rooted at sourceDir.
func DefaultConfig(sourceDir string) Config {
	return Config{
		SourceDir:             sourceDir,
		EventsPath:            DefaultEventsPath,
		HistogramsPath:        DefaultHistogramsPath,
		ScalarsPath:           DefaultScalarsPath,
		EnvironmentPath:       DefaultEnvironmentPath,
		LegacyEnvironmentPath: DefaultLegacyEnvironmentPath,
	}
}

// Set is everything read from one snapshot.
type Set struct {
	Events      []Event
	Histograms  []string
	Scalars     []Scalar
	Metrics     []Metric
	MetricFiles []string
	Environment EnvironmentProbes
}

// Reader reads the definition files of the current checkout.
type Reader struct {
	cfg      Config
	resolver PathResolver
	logger   *slog.Logger
}

// NewReader creates a reader. The resolver lists the metrics.yaml files.
func NewReader(cfg Config, resolver PathResolver, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
	}
}

// Read parses every category concurrently. A malformed or missing file
// leaves its category empty; resolver and I/O errors are returned.
func (r *Reader) Read(ctx context.Context) (*Set, error) {
	var (
		events      []Event
		histograms  []string
		scalars     []Scalar
		metrics     []Metric
		metricFiles []string
		environment EnvironmentProbes
	)

	p := pool.New().WithErrors().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		var err error
		events, err = readCategory(r, "events", r.cfg.EventsPath, ParseEvents)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		histograms, err = readCategory(r, "histograms", r.cfg.HistogramsPath, ParseHistograms)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		scalars, err = readCategory(r, "scalars", r.cfg.ScalarsPath, ParseScalars)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		metrics, metricFiles, err = r.readMetrics(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		environment, err = r.readEnvironment()
		return err
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}

	return &Set{
		Events:      events,
		Histograms:  histograms,
		Scalars:     scalars,
		Metrics:     metrics,
		MetricFiles: metricFiles,
		Environment: environment,
	}, nil
}

// TrackedFiles lists the files whose history explains changes between two
// snapshots.
func (r *Reader) TrackedFiles(set *Set) []string {
	env := r.cfg.EnvironmentPath
	if set.Environment.Source != "" {
		env = set.Environment.Source
	}

	files := []string{
		r.cfg.EventsPath,
		r.cfg.HistogramsPath,
		r.cfg.ScalarsPath,
		env,
		MetricsIndexFile,
	}
	return append(files, set.MetricFiles...)
}

func readCategory[T any](r *Reader, category, path string, parse func([]byte) ([]T, error)) ([]T, error) {
	data, ok, err := r.readSource(path)
	if err != nil || !ok {
		return nil, err
	}

	items, err := parse(data)
	if err != nil {
		r.logger.Warn("definition file could not be parsed, category left empty",
			"category", category,
			"path", path,
			"error", err,
		)
		return nil, nil
	}
	return items, nil
}

func (r *Reader) readMetrics(ctx context.Context) ([]Metric, []string, error) {
	files, err := r.resolver.MetricsFiles(ctx)
	if err != nil {
		return nil, nil, err
	}

	var metrics []Metric
	for _, file := range files {
		data, ok, err := r.readSource(file)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}

		parsed, err := ParseMetrics(file, data)
		if err != nil {
			r.logger.Warn("metrics file could not be parsed, skipped",
				"path", file,
				"error", err,
			)
			continue
		}
		metrics = append(metrics, parsed...)
	}

	return metrics, files, nil
}

func (r *Reader) readEnvironment() (EnvironmentProbes, error) {
	for _, path := range []string{r.cfg.EnvironmentPath, r.cfg.LegacyEnvironmentPath} {
		if path == "" {
			continue
		}
		data, ok, err := r.readSource(path)
		if err != nil {
			return EnvironmentProbes{}, err
		}
		if !ok {
			continue
		}

		probes := ParseEnvironmentProbes(data)
		probes.Source = path
		if !probes.Annotated {
			r.logger.Debug("no environment count annotations, using baseline",
				"path", path,
				"legacy", probes.Legacy,
			)
		}
		return probes, nil
	}

	r.logger.Warn("environment source not found, using baseline",
		"path", r.cfg.EnvironmentPath,
		"legacy_path", r.cfg.LegacyEnvironmentPath,
	)
	return EnvironmentProbes{Legacy: DefaultLegacyEnvironmentProbes}, nil
}

// readSource reads a file relative to the source root. A missing file is
// reported with ok=false rather than an error.
func (r *Reader) readSource(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(r.cfg.SourceDir, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("definition file not found", "path", path)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, true, nil
}
