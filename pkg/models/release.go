package models

import "time"

// buildIDLayout parses nightly build ids.
const buildIDLayout = "20060102150405"

// Release is a nightly snapshot of the upstream tree.
type Release struct {
	// Hash is the upstream revision the build was made from
	Hash string `json:"hash"`

	// BuildID is the nightly build timestamp
	BuildID string `json:"buildid"`
}

// BuildTime returns the build id as a UTC time.
func (r Release) BuildTime() (time.Time, error) {
	return time.Parse(buildIDLayout, r.BuildID)
}

// PendingSnapshot is a release missing from the history log.
type PendingSnapshot struct {
	Release

	// Previous is the chronological predecessor in the discovered list,
	// nil for the first discovered release.
	Previous *Release
}

// RunResult summarizes one tracker run.
type RunResult struct {
	RunID       string    `json:"run_id"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Discovered  int       `json:"discovered"`
	NewBuildIDs []string  `json:"new_build_ids"`
	Error       string    `json:"error,omitempty"`
}
