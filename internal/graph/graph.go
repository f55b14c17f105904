// Package graph holds the fetched metadata of remote resources: typed value
// bindings, per-resource records and the fetched-once store they live in.
package graph

import (
	"sort"
)

// IdentifierField is the record field that holds the resource's own URI.
const IdentifierField = "identifier"

// Kind is the term type of a bound value.
type Kind string

const (
	KindLiteral Kind = "literal"
	KindURI     Kind = "uri"
	KindBNode   Kind = "bnode"
)

// Binding is one value bound to a query variable.
type Binding struct {
	Kind     Kind   `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Literal returns a plain literal binding.
func Literal(v string) Binding { return Binding{Kind: KindLiteral, Value: v} }

// URI returns a uri binding.
func URI(v string) Binding { return Binding{Kind: KindURI, Value: v} }

// IsURI reports whether the binding references another resource.
func (b Binding) IsURI() bool { return b.Kind == KindURI }

// Record is the metadata of one resource: field name -> bound values.
// Multi-valued attributes and multi-row results keep every value in order.
type Record map[string][]Binding

// Identifier returns the resource URI stored under IdentifierField.
func (r Record) Identifier() string {
	if v := r[IdentifierField]; len(v) > 0 {
		return v[0].Value
	}
	return ""
}

// First returns the first value bound to field.
func (r Record) First(field string) (Binding, bool) {
	v := r[field]
	if len(v) == 0 {
		return Binding{}, false
	}
	return v[0], true
}

// Add appends b to field unless an identical binding is already there.
func (r Record) Add(field string, b Binding) {
	for _, have := range r[field] {
		if have == b {
			return
		}
	}
	r[field] = append(r[field], b)
}

// Fields returns the record's field names, sorted.
func (r Record) Fields() []string {
	out := make([]string, 0, len(r))
	for f := range r {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
