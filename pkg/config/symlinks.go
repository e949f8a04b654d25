package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Symlink maps a virtual (web-facing) path prefix to a real filesystem prefix
type Symlink struct {
	Virtual string `mapstructure:"virtual"`
	Real    string `mapstructure:"real"`
}

// SymlinkTable is an ordered virtual-path table. Lookups walk it front to
// back and the first readable match wins, so order is part of the config.
type SymlinkTable []Symlink

// ParseSymlinks accepts the shapes callers use for the symlinks option.
// A Go map has no insertion order, so its entries are sorted longest virtual
// prefix first (ties broken lexically) to keep resolution deterministic.
func ParseSymlinks(v any) (SymlinkTable, error) {
	switch t := v.(type) {
	case nil:
		return SymlinkTable{}, nil
	case SymlinkTable:
		return t, nil
	case []Symlink:
		return SymlinkTable(t), nil
	case map[string]string:
		table := make(SymlinkTable, 0, len(t))
		for virtual, target := range t {
			table = append(table, Symlink{Virtual: virtual, Real: target})
		}
		sortByPrefix(table)
		return table, nil
	case map[string]any:
		table := make(SymlinkTable, 0, len(t))
		for virtual, raw := range t {
			target, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: symlink %q must map to a string, got %T", ErrConfigType, virtual, raw)
			}
			table = append(table, Symlink{Virtual: virtual, Real: target})
		}
		sortByPrefix(table)
		return table, nil
	default:
		return nil, fmt.Errorf("%w: symlinks must be a mapping, got %T", ErrConfigType, v)
	}
}

func sortByPrefix(table SymlinkTable) {
	sort.SliceStable(table, func(i, j int) bool {
		if len(table[i].Virtual) != len(table[j].Virtual) {
			return len(table[i].Virtual) > len(table[j].Virtual)
		}
		return table[i].Virtual < table[j].Virtual
	})
}

// UnmarshalYAML reads a mapping node and keeps the document order
func (t *SymlinkTable) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*t = SymlinkTable{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: symlinks must be a mapping", value.Line)
	}

	table := make(SymlinkTable, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: symlink entries must be plain strings", key.Line)
		}
		table = append(table, Symlink{Virtual: key.Value, Real: val.Value})
	}

	*t = table
	return nil
}

// MarshalYAML writes the table back as an ordered mapping
func (t SymlinkTable) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, link := range t {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: link.Virtual},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: link.Real},
		)
	}
	return node, nil
}
