package schema

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/agentic-research/cpharvest/api"
	errs "github.com/agentic-research/cpharvest/internal/errors"
)

// IdentifierField is the reserved field holding a record's own identifier.
const IdentifierField = "identifier"

//go:embed types.yaml
var defaultTable []byte

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Descriptor is the resolved form of one type: merged schema plus the
// properties traversal and repacking dispatch on.
type Descriptor struct {
	Name             string
	Class            string
	Parent           string
	Kind             api.Kind
	CategoryFiltered bool
	NamingRelation   string
	NamingField      string
	Aliases          []string
	Schema           Schema
}

// Registry is the closed set of known types, looked up by type name.
type Registry struct {
	types    map[string]*Descriptor
	aliases  map[string]string // alias -> canonical name
	byClass  map[string]*Descriptor
	prefixes []api.Namespace
}

// Default builds the registry from the embedded type table.
func Default() (*Registry, error) {
	table, err := api.ParseTypeTable(defaultTable)
	if err != nil {
		return nil, errs.WrapInvalid(fmt.Errorf("%w: %v", errs.ErrInvalidSchema, err), "schema", "Default", "parse embedded table")
	}
	return NewRegistry(table)
}

// Load builds the registry from a YAML type table on disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type table %s: %w", path, err)
	}
	table, err := api.ParseTypeTable(data)
	if err != nil {
		return nil, errs.WrapInvalid(fmt.Errorf("%w: %v", errs.ErrInvalidSchema, err), "schema", "Load", "parse "+path)
	}
	return NewRegistry(table)
}

// NewRegistry validates table and resolves every type's inheritance chain.
func NewRegistry(table *api.TypeTable) (*Registry, error) {
	r := &Registry{
		types:    make(map[string]*Descriptor, len(table.Types)),
		aliases:  make(map[string]string),
		byClass:  make(map[string]*Descriptor),
		prefixes: append([]api.Namespace(nil), table.Namespaces...),
	}

	known := make(map[string]bool, len(table.Namespaces))
	for _, ns := range table.Namespaces {
		if ns.Prefix == "" || ns.IRI == "" {
			return nil, invalid("namespace %q: prefix and iri are required", ns.Prefix)
		}
		known[ns.Prefix] = true
	}

	defs := make(map[string]api.TypeDef, len(table.Types))
	for _, def := range table.Types {
		if def.Name == "" {
			return nil, invalid("type with class %q has no name", def.Class)
		}
		if _, dup := defs[def.Name]; dup {
			return nil, invalid("type %q declared twice", def.Name)
		}
		defs[def.Name] = def
	}

	resolving := make(map[string]bool)
	var resolve func(name string) (*Descriptor, error)
	resolve = func(name string) (*Descriptor, error) {
		if d, ok := r.types[name]; ok {
			return d, nil
		}
		def, ok := defs[name]
		if !ok {
			return nil, invalid("unknown type %q", name)
		}
		if resolving[name] {
			return nil, invalid("inheritance cycle through %q", name)
		}
		resolving[name] = true
		defer delete(resolving, name)

		var parent *Descriptor
		if def.Parent != "" {
			p, err := resolve(def.Parent)
			if err != nil {
				return nil, fmt.Errorf("parent of %s: %w", name, err)
			}
			parent = p
		}

		d := &Descriptor{
			Name:             def.Name,
			Class:            def.Class,
			Parent:           def.Parent,
			Kind:             def.Kind,
			CategoryFiltered: def.CategoryFiltered,
			NamingRelation:   def.NamingRelation,
		}
		if parent != nil {
			d.Schema = Merge(parent.Schema, def.Attributes)
			if d.NamingRelation == "" {
				d.NamingRelation = parent.NamingRelation
			}
		} else {
			d.Schema = New(def.Attributes)
		}
		r.types[name] = d
		return d, nil
	}

	for _, def := range table.Types {
		if _, err := resolve(def.Name); err != nil {
			return nil, err
		}
	}

	for _, def := range table.Types {
		d := r.types[def.Name]
		if err := r.check(d, def, known); err != nil {
			return nil, err
		}
		if d.Class != "" {
			if other, dup := r.byClass[d.Class]; dup {
				return nil, invalid("types %q and %q share class %s", other.Name, d.Name, d.Class)
			}
			r.byClass[d.Class] = d
		}
	}

	for _, def := range table.Types {
		for _, alias := range def.EquivalentClasses {
			if _, clash := r.types[alias]; clash {
				return nil, invalid("alias %q of %s is already a declared type", alias, def.Name)
			}
			if owner, clash := r.aliases[alias]; clash {
				return nil, invalid("alias %q claimed by both %s and %s", alias, owner, def.Name)
			}
			r.aliases[alias] = def.Name
			d := r.types[def.Name]
			d.Aliases = append(d.Aliases, alias)
		}
	}

	return r, nil
}

func (r *Registry) check(d *Descriptor, def api.TypeDef, known map[string]bool) error {
	for _, a := range def.Attributes {
		if !fieldPattern.MatchString(a.Field) {
			return invalid("type %s: field %q for %s is not a valid variable name", d.Name, a.Field, a.Relation)
		}
		if a.Field == IdentifierField {
			return invalid("type %s: field %q is reserved", d.Name, IdentifierField)
		}
		if err := checkRelation(a.Relation, known); err != nil {
			return invalid("type %s: %v", d.Name, err)
		}
	}

	switch d.Kind {
	case api.KindIntermediate:
	case api.KindDocument, api.KindVariable:
		if d.NamingRelation == "" {
			return invalid("type %s: %s types need a naming_relation", d.Name, d.Kind)
		}
	default:
		return invalid("type %s: unknown kind %q", d.Name, d.Kind)
	}

	if d.NamingRelation != "" {
		field, ok := d.Schema.Field(d.NamingRelation)
		if !ok {
			return invalid("type %s: naming relation %s is not in its schema", d.Name, d.NamingRelation)
		}
		d.NamingField = field
	}
	return nil
}

func checkRelation(rel string, known map[string]bool) error {
	if strings.HasPrefix(rel, "<") && strings.HasSuffix(rel, ">") {
		return nil
	}
	prefix, local, ok := strings.Cut(rel, ":")
	if !ok || local == "" {
		return fmt.Errorf("relation %q is neither prefixed nor an <iri>", rel)
	}
	if !known[prefix] {
		return fmt.Errorf("relation %q uses undeclared prefix %q", rel, prefix)
	}
	return nil
}

func invalid(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", errs.ErrInvalidSchema, fmt.Sprintf(format, args...))
	return errs.WrapInvalid(err, "schema", "NewRegistry", "build registry")
}

// Lookup returns the descriptor for a type name or one of its aliases.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	d, ok := r.types[name]
	return d, ok
}

// ByClass returns the descriptor whose class IRI is iri.
func (r *Registry) ByClass(iri string) (*Descriptor, bool) {
	d, ok := r.byClass[iri]
	return d, ok
}

// Kinds returns every type name, aliases included, of the given kind.
func (r *Registry) Kinds(kind api.Kind) []string {
	var out []string
	for name, d := range r.types {
		if d.Kind != kind {
			continue
		}
		out = append(out, name)
		out = append(out, d.Aliases...)
	}
	sort.Strings(out)
	return out
}

// Names returns the canonical type names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Prefixes returns the namespace table in declaration order.
func (r *Registry) Prefixes() []api.Namespace {
	return append([]api.Namespace(nil), r.prefixes...)
}
