package analyzer

import (
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/definitions"
)

// histogramMirrorTag marks telemetry_mirror values that name a histogram.
const histogramMirrorTag = "h#"

// MirrorIndex is the set of legacy probe identifiers some Glean metric
// mirrors to. Lookups are exact and case-sensitive.
type MirrorIndex map[string]struct{}

// BuildMirrorIndex collects the telemetry_mirror declarations of metrics.
// Values are not checked against the legacy registries.
func BuildMirrorIndex(metrics []definitions.Metric) MirrorIndex {
	index := make(MirrorIndex)
	for _, m := range metrics {
		if m.TelemetryMirror == "" {
			continue
		}
		index[strings.TrimPrefix(m.TelemetryMirror, histogramMirrorTag)] = struct{}{}
	}
	return index
}

// Has reports whether id is mirrored by a Glean metric.
func (idx MirrorIndex) Has(id string) bool {
	_, ok := idx[id]
	return ok
}
