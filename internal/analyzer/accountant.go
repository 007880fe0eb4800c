package analyzer

import (
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/definitions"
	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Use counters are generated in bulk and reported apart from other metrics.
const useCounterCategoryPrefix = "use.counter"

// Account computes the migration counts of one snapshot.
func Account(set *definitions.Set, index MirrorIndex) models.MigrationData {
	var data models.MigrationData

	for _, e := range set.Events {
		data.Events++
		if !EventHasMirror(e, index) {
			data.LegacyOnlyEvents++
		}
	}

	for _, h := range set.Histograms {
		data.Histograms++
		if !index.Has(h) {
			data.LegacyOnlyHistograms++
		}
	}

	for _, s := range set.Scalars {
		data.Scalars++
		if !index.Has(ScalarMirrorName(s)) {
			data.LegacyOnlyScalars++
		}
	}

	for _, m := range set.Metrics {
		data.Metrics++
		if !strings.HasPrefix(m.Category, useCounterCategoryPrefix) {
			data.MetricsWithoutUseCounters++
		}
		if m.TelemetryMirror != "" {
			data.MetricsWithTelemetryMirror++
		}
	}

	data.EnvironmentProbes = set.Environment.Legacy
	data.GleanEnvironmentProbes = set.Environment.Glean
	data.LegacyOnlyEnvironmentProbes = set.Environment.Legacy - set.Environment.Glean

	return data
}
