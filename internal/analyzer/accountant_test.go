package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/fidde/glean_migration_tracker/internal/definitions"
	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMirrorIndex(t *testing.T) {
	index := BuildMirrorIndex([]definitions.Metric{
		{Name: "a", TelemetryMirror: "h#SOME_HISTOGRAM"},
		{Name: "b", TelemetryMirror: "BROWSER_ENGAGEMENT_TAB_OPEN_EVENT_COUNT"},
		{Name: "c"},
		{Name: "d", TelemetryMirror: "Navigation_Search_Urlbar"},
	})

	assert.Len(t, index, 3)
	assert.True(t, index.Has("SOME_HISTOGRAM"))
	assert.False(t, index.Has("h#SOME_HISTOGRAM"))
	assert.True(t, index.Has("BROWSER_ENGAGEMENT_TAB_OPEN_EVENT_COUNT"))
	assert.True(t, index.Has("Navigation_Search_Urlbar"))
}

func testSet() *definitions.Set {
	return &definitions.Set{
		Events: []definitions.Event{
			{Category: "navigation", Name: "search", Objects: []string{"urlbar", "about_home"}, Methods: []string{"search"}},
			{Category: "storage.test", Name: "probe", Objects: []string{"db"}},
		},
		Histograms: []string{"GC_MS", "PAGE_LOAD"},
		Scalars: []definitions.Scalar{
			{Category: "browser.engagement", Name: "tab_open_event_count"},
			{Category: "telemetry", Name: "data_upload_optin"},
		},
		Metrics: []definitions.Metric{
			{Category: "navigation", Name: "search", TelemetryMirror: "Navigation_Search_AboutHome"},
			{Category: "gc", Name: "ms", TelemetryMirror: "h#GC_MS"},
			{Category: "browser.engagement", Name: "tab_open", TelemetryMirror: "BROWSER_ENGAGEMENT_TAB_OPEN_EVENT_COUNT"},
			{Category: "use.counter.page", Name: "svg"},
			{Category: "use.counter.doc", Name: "svg"},
		},
		Environment: definitions.EnvironmentProbes{Legacy: 130, Glean: 40, Annotated: true},
	}
}

func TestAccount(t *testing.T) {
	set := testSet()
	data := Account(set, BuildMirrorIndex(set.Metrics))

	assert.Equal(t, models.MigrationData{
		Events:                      2,
		LegacyOnlyEvents:            1,
		Histograms:                  2,
		LegacyOnlyHistograms:        1,
		Scalars:                     2,
		LegacyOnlyScalars:           1,
		Metrics:                     5,
		MetricsWithoutUseCounters:   3,
		MetricsWithTelemetryMirror:  3,
		EnvironmentProbes:           130,
		GleanEnvironmentProbes:      40,
		LegacyOnlyEnvironmentProbes: 90,
	}, data)
}

func TestAccount_NegativeEnvironmentGapIsKept(t *testing.T) {
	set := &definitions.Set{Environment: definitions.EnvironmentProbes{Legacy: 10, Glean: 15}}
	data := Account(set, MirrorIndex{})
	assert.Equal(t, -5, data.LegacyOnlyEnvironmentProbes)
}

func TestAccount_Empty(t *testing.T) {
	data := Account(&definitions.Set{}, MirrorIndex{})
	assert.Equal(t, models.MigrationData{}, data)
}

type fakeReader struct {
	set *definitions.Set
	err error
}

func (f fakeReader) Read(context.Context) (*definitions.Set, error) { return f.set, f.err }

func (f fakeReader) TrackedFiles(set *definitions.Set) []string {
	return append([]string{"Events.yaml"}, set.MetricFiles...)
}

func TestAnalyzer_Analyze(t *testing.T) {
	set := testSet()
	set.MetricFiles = []string{"dom/metrics.yaml"}

	result, err := New(fakeReader{set: set}, nil).Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 90, result.Data.LegacyOnlyEnvironmentProbes)
	assert.Equal(t, 1, result.Data.LegacyOnlyEvents)
	assert.Equal(t, []string{"Events.yaml", "dom/metrics.yaml"}, result.TrackedFiles)
}

func TestAnalyzer_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(fakeReader{err: boom}, nil).Analyze(context.Background())
	assert.ErrorIs(t, err, boom)
}
