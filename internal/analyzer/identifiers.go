package analyzer

import (
	"strings"

	"github.com/fidde/glean_migration_tracker/internal/definitions"
)

// EventMirrorNames derives the C++ enum names the legacy event API uses for
// every (object, method) pair of an event, e.g. category "navigation",
// method "search", object "about_home" gives "Navigation_Search_AboutHome".
func EventMirrorNames(e definitions.Event) []string {
	category := camelJoin(e.Category, ".")
	methods := e.MethodsOrName()

	names := make([]string, 0, len(e.Objects)*len(methods))
	for _, object := range e.Objects {
		obj := camelJoin(object, "_")
		for _, method := range methods {
			names = append(names, category+"_"+camelJoin(method, "_")+"_"+obj)
		}
	}
	return names
}

// EventHasMirror reports whether any derived name of the event is mirrored.
func EventHasMirror(e definitions.Event, index MirrorIndex) bool {
	for _, name := range EventMirrorNames(e) {
		if index.Has(name) {
			return true
		}
	}
	return false
}

// ScalarMirrorName derives the legacy scalar enum name,
// e.g. "browser.engagement", "tab_open_event_count" gives
// "BROWSER_ENGAGEMENT_TAB_OPEN_EVENT_COUNT".
func ScalarMirrorName(s definitions.Scalar) string {
	return strings.ReplaceAll(strings.ToUpper(s.Category+"_"+s.Name), ".", "_")
}

// camelJoin splits s on sep, capitalizes the first character of each part,
// lower-cases the rest, and concatenates the parts.
func camelJoin(s, sep string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, part := range strings.Split(s, sep) {
		b.WriteString(ucFirst(part))
	}
	return b.String()
}

func ucFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
