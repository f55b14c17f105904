package api

// TypeTable is the static description of the remote graph's resource types.
// It is the only input the type registry is built from.
type TypeTable struct {
	// Version of the table format.
	Version string `yaml:"version" json:"version"`
	// Namespaces are the query prefixes, in declaration order.
	Namespaces []Namespace `yaml:"namespaces" json:"namespaces"`
	// Types of the graph. Parents may be declared after their children.
	Types []TypeDef `yaml:"types" json:"types"`
}

// Namespace binds a query prefix to its IRI.
type Namespace struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	IRI    string `yaml:"iri" json:"iri"`
}

// Kind classifies a type for repacking.
type Kind string

const (
	// KindIntermediate types are only ever inlined into their referrers.
	KindIntermediate Kind = ""
	// KindDocument types are downloadable datasets, one output record each.
	KindDocument Kind = "document"
	// KindVariable types are dataset columns, cataloged as their own records.
	KindVariable Kind = "variable"
)

// TypeDef declares one resource type.
type TypeDef struct {
	// Name is the last path segment of the class IRI (e.g. "DataObject").
	Name string `yaml:"name" json:"name"`
	// Class is the full class IRI. Optional for purely abstract types.
	Class string `yaml:"class,omitempty" json:"class,omitempty"`
	// Parent names the type this one inherits attributes from.
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	// Kind drives repacking and flatten stop conditions.
	Kind Kind `yaml:"kind,omitempty" json:"kind,omitempty"`
	// CategoryFiltered types are selected through their object specification
	// instead of their rdf:type.
	CategoryFiltered bool `yaml:"category_filtered,omitempty" json:"category_filtered,omitempty"`
	// NamingRelation is the relation whose field names the output record.
	NamingRelation string `yaml:"naming_relation,omitempty" json:"naming_relation,omitempty"`
	// EquivalentClasses are alias type names sharing this schema.
	EquivalentClasses []string `yaml:"equivalent_classes,omitempty" json:"equivalent_classes,omitempty"`
	// Attributes maps relation names to output field names.
	Attributes AttributeMap `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Attribute is one relation -> field mapping.
type Attribute struct {
	Relation string `json:"relation"`
	Field    string `json:"field"`
}

// AttributeMap is an ordered relation -> field mapping.
type AttributeMap []Attribute
