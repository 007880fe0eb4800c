package definitions

import "strings"

// Event categories with this prefix only exist for telemetry's own tests.
const testEventCategoryPrefix = "telemetry.test"

// Event is one entry of Events.yaml.
type Event struct {
	Category string
	Name     string
	Objects  []string

	// Methods is nil when the definition declares none; the event name is
	// then used as the only method.
	Methods []string
}

// MethodsOrName returns the declared methods, or the event name when the
// definition has no methods key.
func (e Event) MethodsOrName() []string {
	if e.Methods == nil {
		return []string{e.Name}
	}
	return e.Methods
}

// ParseEvents reads the {category: {name: {objects, methods}}} registry,
// leaving out test categories.
func ParseEvents(data []byte) ([]Event, error) {
	categories, err := parseYAMLMapping(data)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, category := range categories {
		if strings.HasPrefix(category.Key, testEventCategoryPrefix) {
			continue
		}

		for _, entry := range mappingEntries(category.Value) {
			objects, _ := stringList(lookup(entry.Value, "objects"))
			methods, _ := stringList(lookup(entry.Value, "methods"))

			events = append(events, Event{
				Category: category.Key,
				Name:     entry.Key,
				Objects:  objects,
				Methods:  methods,
			})
		}
	}

	return events, nil
}
