package definitions

import "strings"

// Top-level keys starting with this sigil are file metadata ($schema, $tags).
const metadataSigil = "$"

// Metric is one Glean metric from a metrics.yaml file.
type Metric struct {
	File     string
	Category string
	Name     string

	// TelemetryMirror is the legacy probe the metric mirrors to, possibly
	// tagged (e.g. "h#NAME" for histograms). Empty when not mirrored.
	TelemetryMirror string
}

// ParseMetrics reads a metrics.yaml file: {category: {metric: definition}}.
func ParseMetrics(file string, data []byte) ([]Metric, error) {
	categories, err := parseYAMLMapping(data)
	if err != nil {
		return nil, err
	}

	var metrics []Metric
	for _, category := range categories {
		if strings.HasPrefix(category.Key, metadataSigil) {
			continue
		}

		for _, entry := range mappingEntries(category.Value) {
			metrics = append(metrics, Metric{
				File:            file,
				Category:        category.Key,
				Name:            entry.Key,
				TelemetryMirror: scalarString(lookup(entry.Value, "telemetry_mirror")),
			})
		}
	}

	return metrics, nil
}
