package entity

import (
	"context"
	"sort"

	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/schema"
	"github.com/agentic-research/cpharvest/internal/sparql"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many names go into one lookup query.
const DefaultBatchSize = 50

// DefaultTypeHost is the namespace host of the ICOS metadata vocabulary.
const DefaultTypeHost = "meta.icos-cp.eu"

// Source resolves and fetches resources through one executor.
type Source struct {
	Exec     sparql.Executor
	Builder  *sparql.Builder
	Registry *schema.Registry
	// TypeHosts are the hosts whose class IRIs count as the graph's own types.
	TypeHosts []string
	BatchSize int
	Logger    *zap.Logger
}

// Result is what Fetch learned about one identifier.
type Result struct {
	// Class is the resolved class IRI; empty when the resource has no
	// type in the graph's namespace.
	Class string
	// TypeName is the local name of Class.
	TypeName string
	// Descriptor is nil when TypeName is not in the registry.
	Descriptor *schema.Descriptor
	Record     graph.Record
}

// Supported reports whether the resource has a registered type.
func (r Result) Supported() bool { return r.Descriptor != nil }

func (s *Source) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// New returns an unfetched entity for desc narrowed by filters.
func (s *Source) New(desc *schema.Descriptor, filters sparql.Filters) *Entity {
	return &Entity{
		Descriptor: desc,
		Filters:    filters,
		Meta:       make(map[string]graph.Record),
		src:        s,
	}
}

// ResolveType returns the class IRI of id, keeping only classes whose host
// is one of TypeHosts. Several candidates are logged and the first is used.
func (s *Source) ResolveType(ctx context.Context, id string) (string, error) {
	q, err := s.Builder.TypeQuery(id)
	if err != nil {
		return "", err
	}
	rows, err := s.Exec.Run(ctx, q)
	if err != nil {
		return "", errs.Wrap(err, "entity", "ResolveType", "query rdf:type of "+id)
	}

	var candidates []string
	for _, row := range rows {
		b, ok := row["objtype"]
		if !ok || !b.IsURI() || !s.ownType(b.Value) {
			continue
		}
		candidates = append(candidates, b.Value)
	}
	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
	default:
		s.logger().Error("ambiguous resource type, using the first",
			zap.String("id", id), zap.Strings("candidates", candidates))
	}
	return candidates[0], nil
}

func (s *Source) ownType(iri string) bool {
	hosts := s.TypeHosts
	if len(hosts) == 0 {
		hosts = []string{DefaultTypeHost}
	}
	host := graph.Host(iri)
	for _, h := range hosts {
		if host == h {
			return true
		}
	}
	return false
}

// Entity resolves id's type and returns an entity selecting only id. Types
// outside the registry fail with ErrUnknownType.
func (s *Source) Entity(ctx context.Context, id string) (*Entity, error) {
	class, err := s.ResolveType(ctx, id)
	if err != nil {
		return nil, err
	}
	name := graph.TypeName(class)
	desc, ok := s.Registry.Lookup(name)
	if class == "" || !ok {
		return nil, errs.WrapConsistency(errs.ErrUnknownType, "entity", "Entity", "look up type "+name+" of "+id)
	}
	return s.New(desc, sparql.Filters{Identifier: id}), nil
}

// Fetch resolves id's type and, for registered types, fetches its record.
// Unregistered and untyped resources come back without a descriptor and
// without an error.
func (s *Source) Fetch(ctx context.Context, id string) (Result, error) {
	class, err := s.ResolveType(ctx, id)
	if err != nil {
		return Result{}, err
	}
	res := Result{Class: class}
	if class == "" {
		return res, nil
	}
	res.TypeName = graph.TypeName(class)
	desc, ok := s.Registry.Lookup(res.TypeName)
	if !ok {
		return res, nil
	}
	res.Descriptor = desc

	e := s.New(desc, sparql.Filters{Identifier: id})
	if err := e.FetchMeta(ctx); err != nil {
		return Result{}, errs.Wrap(err, "entity", "Fetch", "fetch "+res.TypeName+" "+id)
	}
	rec, ok := e.Meta[id]
	if !ok {
		s.logger().Warn("no metadata row for resource",
			zap.String("id", id), zap.String("type", res.TypeName))
		rec = graph.Record{graph.IdentifierField: {graph.URI(id)}}
	}
	res.Record = rec
	return res, nil
}

// ListIdentifiersByName maps resource names (the naming attribute of desc)
// to the identifiers of their latest versions. Names are queried in batches
// of BatchSize; the result is sorted and free of duplicates.
func (s *Source) ListIdentifiersByName(ctx context.Context, desc *schema.Descriptor, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if desc.NamingRelation == "" {
		return nil, errs.WrapInvalid(errs.ErrNoSelection, "entity", "ListIdentifiersByName", desc.Name+" has no naming relation")
	}

	unique := dedupe(names)
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	seen := make(map[string]bool)
	var out []string
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		q, err := s.Builder.NamesQuery(desc.Class, desc.NamingRelation, unique[start:end])
		if err != nil {
			return nil, err
		}
		rows, err := s.Exec.Run(ctx, q)
		if err != nil {
			return nil, errs.Wrap(err, "entity", "ListIdentifiersByName", "look up names")
		}
		for _, row := range rows {
			b, ok := row[sparql.SubjectVar]
			if !ok || seen[b.Value] {
				continue
			}
			seen[b.Value] = true
			out = append(out, b.Value)
		}
		s.logger().Debug("looked up names",
			zap.Int("batch", end-start), zap.Int("found", len(out)))
	}
	sort.Strings(out)
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
