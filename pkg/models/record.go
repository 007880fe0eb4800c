// Package models defines the core data structures for migration tracking.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Build ids are nightly timestamps: YYYYMMDDhhmmss.
var buildIDRegex = regexp.MustCompile(`^[0-9]{14}$`)

// Record errors
var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidBuildID   = errors.New("invalid build id: must be a 14 digit timestamp")
	ErrDuplicateBuildID = errors.New("build id already recorded")
	ErrEmptyRecordLine  = errors.New("empty record line")
)

// ValidateBuildID checks that a build id looks like a nightly timestamp.
func ValidateBuildID(buildID string) error {
	if !buildIDRegex.MatchString(buildID) {
		return ErrInvalidBuildID
	}
	return nil
}

// MigrationData holds the counts computed for one snapshot.
// The JSON field names are the durable format of the history log.
type MigrationData struct {
	Events                     int `json:"events"`
	LegacyOnlyEvents           int `json:"legacyOnlyEvents"`
	Histograms                 int `json:"histograms"`
	LegacyOnlyHistograms       int `json:"legacyOnlyHistograms"`
	Scalars                    int `json:"scalars"`
	LegacyOnlyScalars          int `json:"legacyOnlyScalars"`
	Metrics                    int `json:"metrics"`
	MetricsWithoutUseCounters  int `json:"metricsWithoutUseCounters"`
	MetricsWithTelemetryMirror int `json:"metricsWithTelemetryMirror"`
	EnvironmentProbes          int `json:"environmentProbes"`
	GleanEnvironmentProbes     int `json:"gleanEnvironmentProbes"`

	// LegacyOnlyEnvironmentProbes is legacy minus Glean count. It is negative
	// when the upstream annotations disagree and is stored as is.
	LegacyOnlyEnvironmentProbes int `json:"legacyOnlyEnvironmentProbes"`
}

// Count is one named value of MigrationData.
type Count struct {
	Name  string
	Value int
}

// Counts returns the values keyed by their JSON field names, in field order.
func (d MigrationData) Counts() []Count {
	return []Count{
		{"events", d.Events},
		{"legacyOnlyEvents", d.LegacyOnlyEvents},
		{"histograms", d.Histograms},
		{"legacyOnlyHistograms", d.LegacyOnlyHistograms},
		{"scalars", d.Scalars},
		{"legacyOnlyScalars", d.LegacyOnlyScalars},
		{"metrics", d.Metrics},
		{"metricsWithoutUseCounters", d.MetricsWithoutUseCounters},
		{"metricsWithTelemetryMirror", d.MetricsWithTelemetryMirror},
		{"environmentProbes", d.EnvironmentProbes},
		{"gleanEnvironmentProbes", d.GleanEnvironmentProbes},
		{"legacyOnlyEnvironmentProbes", d.LegacyOnlyEnvironmentProbes},
	}
}

// MigrationRecord is one line of the history log.
type MigrationRecord struct {
	BuildID string        `json:"buildid"`
	Data    MigrationData `json:"data"`
	Log     string        `json:"log"`

	// raw is the line as it was read from storage, without the newline.
	raw []byte
}

// NewMigrationRecord creates a record that has not been persisted yet.
func NewMigrationRecord(buildID string, data MigrationData, log string) *MigrationRecord {
	return &MigrationRecord{
		BuildID: buildID,
		Data:    data,
		Log:     log,
	}
}

// ParseRecordLine decodes one history log line and keeps its bytes so the
// line is written back unchanged.
func ParseRecordLine(line []byte) (*MigrationRecord, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, ErrEmptyRecordLine
	}

	var record MigrationRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}
	if record.BuildID == "" {
		return nil, fmt.Errorf("record without buildid: %w", ErrInvalidBuildID)
	}

	record.raw = append([]byte(nil), line...)
	return &record, nil
}

// Line returns the JSON line for the record, without a trailing newline.
// Records read from storage return their original bytes.
func (r *MigrationRecord) Line() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("marshaling record %s: %w", r.BuildID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Persisted reports whether the record was loaded from storage.
func (r *MigrationRecord) Persisted() bool {
	return r.raw != nil
}

// BuildIDs returns the build ids of records in log order.
func BuildIDs(records []*MigrationRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.BuildID)
	}
	return ids
}
