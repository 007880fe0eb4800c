package definitions

import (
	"regexp"
	"strconv"
)

// DefaultLegacyEnvironmentProbes is the legacy environment size assumed for
// snapshots that predate the count annotations. Those snapshots had no
// Glean environment coverage.
const DefaultLegacyEnvironmentProbes = 224

var (
	legacyCountRegex = regexp.MustCompile(`Legacy Count: ([0-9]+)`)
	gleanCountRegex  = regexp.MustCompile(`Glean Count: ([0-9]+)`)
)

// EnvironmentProbes holds the counts annotated in the environment source.
type EnvironmentProbes struct {
	Legacy int
	Glean  int

	// Source is the path the counts were read from, empty when neither
	// the current nor the legacy file exists.
	Source string

	// Annotated is false when the legacy count fell back to the baseline.
	Annotated bool
}

// ParseEnvironmentProbes extracts the "Legacy Count: N" and "Glean Count: N"
// annotations.
func ParseEnvironmentProbes(text []byte) EnvironmentProbes {
	probes := EnvironmentProbes{Legacy: DefaultLegacyEnvironmentProbes}

	if n, ok := matchCount(legacyCountRegex, text); ok {
		probes.Legacy = n
		probes.Annotated = true
	}
	if n, ok := matchCount(gleanCountRegex, text); ok {
		probes.Glean = n
	}

	return probes
}

func matchCount(re *regexp.Regexp, text []byte) (int, bool) {
	m := re.FindSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}
