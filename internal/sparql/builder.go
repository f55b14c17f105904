// Package sparql builds the queries the harvester sends to the metadata
// endpoint and runs them.
package sparql

import (
	"fmt"
	"strings"

	"github.com/agentic-research/cpharvest/api"
	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/schema"
)

// Builder renders queries against one endpoint's vocabulary.
type Builder struct {
	// Prefixes are rendered as the prefix header of every query.
	Prefixes []api.Namespace
	// CategoryBase is prepended to category names to form specification IRIs.
	CategoryBase string
}

// NewBuilder returns a builder for the given prefixes and category base.
// An empty base falls back to DefaultCategoryBase.
func NewBuilder(prefixes []api.Namespace, categoryBase string) *Builder {
	if categoryBase == "" {
		categoryBase = DefaultCategoryBase
	}
	return &Builder{Prefixes: prefixes, CategoryBase: categoryBase}
}

// Query describes what to select.
type Query struct {
	// Class is the type's class IRI. May be empty when an identifier filter
	// is given.
	Class string
	// Schema lists the attributes to bind, one OPTIONAL clause each.
	Schema schema.Schema
	// CategoryFiltered selects through the object specification instead of
	// the class.
	CategoryFiltered bool
	Filters          Filters
}

// Header renders the prefix declarations.
func (b *Builder) Header() string {
	var sb strings.Builder
	for _, ns := range b.Prefixes {
		fmt.Fprintf(&sb, "prefix %s: <%s>\n", ns.Prefix, ns.IRI)
	}
	return sb.String()
}

// Build renders q. All filters are validated before any text is produced.
func (b *Builder) Build(q Query) (string, error) {
	if err := q.Filters.Validate(); err != nil {
		return "", err
	}
	f := q.Filters
	ids := f.IDs()
	if q.Class == "" && len(ids) == 0 && !q.CategoryFiltered {
		return "", errs.WrapInvalid(errs.ErrNoSelection, "sparql", "Build", "select resources")
	}
	if q.Class != "" {
		if err := graph.ValidateIdentifier(q.Class); err != nil {
			return "", errs.WrapInvalid(err, "sparql", "Build", "class")
		}
	}

	var sb strings.Builder
	sb.WriteString("select ?" + SubjectVar)
	for _, field := range q.Schema.Fields() {
		sb.WriteString(" ?" + field)
	}
	sb.WriteString("\nwhere {")

	if len(ids) > 0 {
		fmt.Fprintf(&sb, "\n\tVALUES ?%s {%s}", SubjectVar, iriList(ids))
	}

	switch {
	case q.CategoryFiltered:
		if cats := f.CategoryNames(); len(cats) > 0 {
			iris := make([]string, len(cats))
			for i, c := range cats {
				iris[i] = b.CategoryBase + c
			}
			fmt.Fprintf(&sb, "\n\tVALUES ?spec {%s}", iriList(iris))
		}
		fmt.Fprintf(&sb, "\n\t?%s %s ?spec .", SubjectVar, RelObjectSpec)
	case q.Class != "":
		fmt.Fprintf(&sb, "\n\t?%s %s <%s> .", SubjectVar, RelSubClassPath, q.Class)
	}

	if q.Schema.Has(RelSubmittedBy) {
		fmt.Fprintf(&sb, "\n\t?%s %s [\n\t\t%s ?submTime ;\n\t\t%s ?submitter\n\t\t] .",
			SubjectVar, RelSubmittedBy, RelEndedAtTime, RelAssociated)
		// Validate has already accepted both bounds.
		for _, bound := range []struct{ op, value string }{{">=", f.Since}, {"<=", f.Until}} {
			clause, _ := TimeBound(bound.op, bound.value)
			if clause != "" {
				sb.WriteString("\n\t" + clause)
			}
		}
	}

	if q.Schema.Has(RelNextVersionOf) && f.LatestOnly {
		sb.WriteString("\n\t" + latestOnlyClause())
	}

	for _, a := range q.Schema.Attributes() {
		fmt.Fprintf(&sb, "\n\tOPTIONAL { ?%s %s ?%s .}", SubjectVar, a.Relation, a.Field)
	}
	sb.WriteString("\n}")

	if f.Limit > 0 {
		fmt.Fprintf(&sb, "\nlimit %d", f.Limit)
	}
	return sb.String(), nil
}

// TypeQuery selects the rdf:type values of id into ?objtype.
func (b *Builder) TypeQuery(id string) (string, error) {
	if err := graph.ValidateIdentifier(id); err != nil {
		return "", errs.WrapInvalid(err, "sparql", "TypeQuery", "identifier")
	}
	return fmt.Sprintf("select ?objtype\nwhere {\n\t<%s> %s ?objtype\n}", id, RelType), nil
}

// NamesQuery selects the latest-version resources of class whose naming
// relation matches one of names.
func (b *Builder) NamesQuery(class, namingRelation string, names []string) (string, error) {
	if err := graph.ValidateIdentifier(class); err != nil {
		return "", errs.WrapInvalid(err, "sparql", "NamesQuery", "class")
	}
	if namingRelation == "" || len(names) == 0 {
		return "", errs.WrapInvalid(errs.ErrNoSelection, "sparql", "NamesQuery", "select names")
	}
	literals := make([]string, len(names))
	for i, n := range names {
		literals[i] = Literal(n)
	}
	return fmt.Sprintf("select ?%[1]s\nwhere {\n\tVALUES ?name {%[2]s}\n\t?%[1]s %[3]s <%[4]s> ;\n\t\t%[5]s ?name .\n\t%[6]s\n}",
		SubjectVar, strings.Join(literals, " "), RelType, class, namingRelation, latestOnlyClause()), nil
}

// Literal quotes s as a string literal.
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func latestOnlyClause() string {
	return fmt.Sprintf("FILTER NOT EXISTS {[] %s ?%s}", RelNextVersionOf, SubjectVar)
}

func iriList(iris []string) string {
	parts := make([]string, len(iris))
	for i, iri := range iris {
		parts[i] = "<" + iri + ">"
	}
	return strings.Join(parts, " ")
}
