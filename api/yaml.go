package api

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a mapping of relation -> field, keeping declaration order.
func (m *AttributeMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping of relation to field, got %s",
			value.Line, nodeKind(value.Kind))
	}

	out := make(AttributeMap, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: attribute %q must map to a field name", k.Line, k.Value)
		}
		out = append(out, Attribute{Relation: k.Value, Field: v.Value})
	}
	*m = out
	return nil
}

// MarshalYAML encodes the map back as an ordered mapping.
func (m AttributeMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Relation},
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Field},
		)
	}
	return node, nil
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "mapping"
	}
}

// ParseTypeTable decodes a YAML type table.
func ParseTypeTable(data []byte) (*TypeTable, error) {
	var table TypeTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse type table: %w", err)
	}
	return &table, nil
}
