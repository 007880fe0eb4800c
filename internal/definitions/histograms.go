package definitions

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

const testHistogramPrefix = "TELEMETRY_TEST_"

var errInvalidJSON = errors.New("invalid JSON")

// ParseHistograms returns the histogram names of Histograms.json in file
// order, leaving out test histograms. Definitions are not decoded.
func ParseHistograms(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("histograms root is not an object")
	}

	var names []string
	seen := make(map[string]struct{})
	root.ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		if strings.HasPrefix(name, testHistogramPrefix) {
			return true
		}
		if _, dup := seen[name]; dup {
			return true
		}
		seen[name] = struct{}{}
		names = append(names, name)
		return true
	})

	return names, nil
}
