package definitions

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errNotMapping = errors.New("document root is not a mapping")

// mappingEntry is one key of a YAML mapping.
type mappingEntry struct {
	Key   string
	Value *yaml.Node
}

// parseYAMLMapping parses a document whose root is a mapping.
//
// The registries have historically contained repeated keys, which yaml.v3
// rejects when decoding into Go maps. Decoding into a yaml.Node skips that
// check, so the mapping is walked by hand: a repeated key keeps its first
// position and takes its last value.
func parseYAMLMapping(data []byte) ([]mappingEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	root := resolveNode(&doc)
	if root == nil || isNull(root) {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}
	return mappingEntries(root), nil
}

// resolveNode unwraps documents and aliases.
func resolveNode(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		case 0:
			// empty document
			return nil
		default:
			return n
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// mappingEntries returns the keys of a mapping node in document order.
// Non-mapping nodes have no entries.
func mappingEntries(n *yaml.Node) []mappingEntry {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}

	entries := make([]mappingEntry, 0, len(n.Content)/2)
	index := make(map[string]int, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := resolveNode(n.Content[i])
		if key == nil || key.Kind != yaml.ScalarNode {
			continue
		}
		value := n.Content[i+1]

		if pos, ok := index[key.Value]; ok {
			entries[pos].Value = value
			continue
		}
		index[key.Value] = len(entries)
		entries = append(entries, mappingEntry{Key: key.Value, Value: value})
	}

	return entries
}

// lookup returns the value stored under key, nil if absent.
func lookup(n *yaml.Node, key string) *yaml.Node {
	var found *yaml.Node
	for _, e := range mappingEntries(n) {
		if e.Key == key {
			found = e.Value
		}
	}
	return resolveNode(found)
}

// stringList reads a sequence of scalars. The boolean is false when the
// node is absent or null, which callers treat differently from an empty list.
func stringList(n *yaml.Node) ([]string, bool) {
	n = resolveNode(n)
	if n == nil || isNull(n) {
		return nil, false
	}

	switch n.Kind {
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveNode(item)
			if item == nil || item.Kind != yaml.ScalarNode || isNull(item) {
				continue
			}
			items = append(items, item.Value)
		}
		return items, true
	case yaml.ScalarNode:
		return []string{n.Value}, true
	default:
		return nil, false
	}
}

// scalarString returns the value of a non-null string scalar.
func scalarString(n *yaml.Node) string {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return ""
	}
	return n.Value
}
