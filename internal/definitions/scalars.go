package definitions

// Scalar groups that never count toward the migration.
var excludedScalarGroups = map[string]bool{
	"telemetry.test":      true,
	"telemetry.discarded": true,
}

// bookkeepingScalarGroup holds scalars telemetry records about itself.
const bookkeepingScalarGroup = "telemetry"

var bookkeepingScalars = map[string]bool{
	"event_counts":               true,
	"dynamic_event_counts":       true,
	"keyed_scalars_exceed_limit": true,
	"keyed_scalars_unknown_keys": true,
}

// Scalar is one entry of Scalars.yaml.
type Scalar struct {
	Category string
	Name     string
}

// ParseScalars reads the {group: {name: definition}} registry without
// test, discarded or bookkeeping scalars.
func ParseScalars(data []byte) ([]Scalar, error) {
	groups, err := parseYAMLMapping(data)
	if err != nil {
		return nil, err
	}

	var scalars []Scalar
	for _, group := range groups {
		if excludedScalarGroups[group.Key] {
			continue
		}

		for _, entry := range mappingEntries(group.Value) {
			if group.Key == bookkeepingScalarGroup && bookkeepingScalars[entry.Key] {
				continue
			}
			scalars = append(scalars, Scalar{Category: group.Key, Name: entry.Key})
		}
	}

	return scalars, nil
}
