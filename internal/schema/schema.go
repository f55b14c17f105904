// Package schema turns the static type table into query-ready attribute
// schemas and a closed registry of resource types.
package schema

import (
	"github.com/agentic-research/cpharvest/api"
)

// Schema is an ordered mapping from relation name to output field name.
// The zero value is an empty schema.
type Schema struct {
	attrs []api.Attribute
	index map[string]int // relation -> position in attrs
}

// New builds a schema from a single attribute map. Later duplicates of a
// relation replace earlier ones.
func New(own api.AttributeMap) Schema {
	return Merge(Schema{}, own)
}

// Merge overlays own on parent. The result holds every relation of both
// inputs; when a relation appears in both, own's field wins and keeps the
// parent's position.
func Merge(parent Schema, own api.AttributeMap) Schema {
	out := Schema{
		attrs: make([]api.Attribute, len(parent.attrs), len(parent.attrs)+len(own)),
		index: make(map[string]int, len(parent.attrs)+len(own)),
	}
	copy(out.attrs, parent.attrs)
	for i, a := range out.attrs {
		out.index[a.Relation] = i
	}
	for _, a := range own {
		if i, ok := out.index[a.Relation]; ok {
			out.attrs[i].Field = a.Field
			continue
		}
		out.index[a.Relation] = len(out.attrs)
		out.attrs = append(out.attrs, a)
	}
	return out
}

// Len returns the number of relations.
func (s Schema) Len() int { return len(s.attrs) }

// Attributes returns a copy of the mappings in declaration order.
func (s Schema) Attributes() []api.Attribute {
	out := make([]api.Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Field returns the output field a relation maps to.
func (s Schema) Field(relation string) (string, bool) {
	i, ok := s.index[relation]
	if !ok {
		return "", false
	}
	return s.attrs[i].Field, true
}

// Has reports whether the schema declares relation.
func (s Schema) Has(relation string) bool {
	_, ok := s.index[relation]
	return ok
}

// Fields returns the distinct output fields in declaration order.
func (s Schema) Fields() []string {
	seen := make(map[string]bool, len(s.attrs))
	out := make([]string, 0, len(s.attrs))
	for _, a := range s.attrs {
		if seen[a.Field] {
			continue
		}
		seen[a.Field] = true
		out = append(out, a.Field)
	}
	return out
}
