package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsYAML = `
navigation:
  search:
    objects: ["about_home", "urlbar"]
    methods: ["search"]
  click:
    objects: ["button"]
telemetry.test:
  test1:
    objects: ["object1"]
telemetry.test.foo:
  bar:
    objects: ["baz"]
storage.test:
  probe:
    objects: ["db"]
    methods: []
`

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents([]byte(eventsYAML))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, Event{
		Category: "navigation",
		Name:     "search",
		Objects:  []string{"about_home", "urlbar"},
		Methods:  []string{"search"},
	}, events[0])

	assert.Equal(t, "click", events[1].Name)
	assert.Nil(t, events[1].Methods)
	assert.Equal(t, []string{"click"}, events[1].MethodsOrName())

	// Only telemetry.test* is a test prefix.
	assert.Equal(t, "storage.test", events[2].Category)
	assert.NotNil(t, events[2].Methods)
	assert.Empty(t, events[2].MethodsOrName())
}

func TestParseEvents_DuplicateKeys(t *testing.T) {
	data := `
navigation:
  search:
    objects: ["first"]
  search:
    objects: ["second"]
navigation:
  other:
    objects: ["x"]
`
	events, err := ParseEvents([]byte(data))
	require.NoError(t, err)

	// The repeated category keeps its last value.
	require.Len(t, events, 1)
	assert.Equal(t, "other", events[0].Name)

	data = `
navigation:
  search:
    objects: ["first"]
  search:
    objects: ["second"]
`
	events, err = ParseEvents([]byte(data))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"second"}, events[0].Objects)
}

func TestParseEvents_Malformed(t *testing.T) {
	_, err := ParseEvents([]byte("navigation: [unclosed"))
	assert.Error(t, err)

	_, err = ParseEvents([]byte("- a\n- b\n"))
	assert.ErrorIs(t, err, errNotMapping)

	events, err := ParseEvents([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEvents_NullGroupAndAnchors(t *testing.T) {
	data := `
empty.group:
base:
  one: &def
    objects: ["obj"]
  two: *def
`
	events, err := ParseEvents([]byte(data))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"obj"}, events[1].Objects)
}

func TestParseHistograms(t *testing.T) {
	data := `{
  "GC_MS": {"kind": "exponential"},
  "TELEMETRY_TEST_FLAG": {"kind": "flag"},
  "PAGE_LOAD": {"kind": "linear"},
  "GC_MS": {"kind": "exponential"}
}`
	names, err := ParseHistograms([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"GC_MS", "PAGE_LOAD"}, names)

	_, err = ParseHistograms([]byte(`{"GC_MS": `))
	assert.ErrorIs(t, err, errInvalidJSON)

	_, err = ParseHistograms([]byte(`["GC_MS"]`))
	assert.Error(t, err)
}

func TestParseScalars(t *testing.T) {
	data := `
telemetry:
  event_counts:
    kind: uint
  dynamic_event_counts:
    kind: uint
  keyed_scalars_exceed_limit:
    kind: uint
  keyed_scalars_unknown_keys:
    kind: uint
  data_upload_optin:
    kind: boolean
telemetry.test:
  unsigned_int_kind:
    kind: uint
telemetry.discarded:
  accumulations:
    kind: uint
browser.engagement:
  tab_open_event_count:
    kind: uint
`
	scalars, err := ParseScalars([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []Scalar{
		{Category: "telemetry", Name: "data_upload_optin"},
		{Category: "browser.engagement", Name: "tab_open_event_count"},
	}, scalars)
}

func TestParseMetrics(t *testing.T) {
	data := `
$schema: moz://mozilla.org/schemas/glean/metrics/2-0-0
$tags:
  - "Toolkit :: Telemetry"
fog.ipc:
  replay_failures:
    type: counter
    telemetry_mirror: h#FOG_IPC_REPLAY_FAILURES
  buffer_sizes:
    type: memory_distribution
use.counter.page:
  svgsvgelement_getelementbyid:
    type: counter
`
	metrics, err := ParseMetrics("toolkit/components/glean/metrics.yaml", []byte(data))
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	assert.Equal(t, Metric{
		File:            "toolkit/components/glean/metrics.yaml",
		Category:        "fog.ipc",
		Name:            "replay_failures",
		TelemetryMirror: "h#FOG_IPC_REPLAY_FAILURES",
	}, metrics[0])
	assert.Empty(t, metrics[1].TelemetryMirror)
	assert.Equal(t, "use.counter.page", metrics[2].Category)
}

func TestParseEnvironmentProbes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want EnvironmentProbes
	}{
		{
			name: "both annotations",
			text: "// Legacy Count: 130\n// Glean Count: 40\n",
			want: EnvironmentProbes{Legacy: 130, Glean: 40, Annotated: true},
		},
		{
			name: "no annotations",
			text: "export var TelemetryEnvironment = {};",
			want: EnvironmentProbes{Legacy: DefaultLegacyEnvironmentProbes},
		},
		{
			name: "legacy only",
			text: "Legacy Count: 12",
			want: EnvironmentProbes{Legacy: 12, Annotated: true},
		},
		{
			name: "glean larger than legacy",
			text: "Legacy Count: 10 Glean Count: 15",
			want: EnvironmentProbes{Legacy: 10, Glean: 15, Annotated: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEnvironmentProbes([]byte(tt.text)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a/metrics.yaml", "b/metrics.yaml"}, splitLines("a/metrics.yaml\n\n b/metrics.yaml \n"))
	assert.Nil(t, splitLines(""))
}
