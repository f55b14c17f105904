// Package entity fetches typed resources from the metadata endpoint.
package entity

import (
	"context"

	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/schema"
	"github.com/agentic-research/cpharvest/internal/sparql"
	"go.uber.org/zap"
)

// Entity is one schema-bearing query: a type, the filters narrowing it, and
// the records it fetched, keyed by identifier.
type Entity struct {
	Descriptor *schema.Descriptor
	Filters    sparql.Filters
	Meta       map[string]graph.Record

	order []string
	src   *Source
}

// IDs returns the fetched identifiers in the order the endpoint returned them.
func (e *Entity) IDs() []string {
	return append([]string(nil), e.order...)
}

// Query returns the query text FetchMeta would run.
func (e *Entity) Query() (string, error) {
	return e.src.Builder.Build(sparql.Query{
		Class:            e.Descriptor.Class,
		Schema:           e.Descriptor.Schema,
		CategoryFiltered: e.Descriptor.CategoryFiltered,
		Filters:          e.Filters,
	})
}

// FetchMeta runs the entity's query and merges every row into Meta. Rows for
// the same identifier accumulate into one record.
func (e *Entity) FetchMeta(ctx context.Context) error {
	q, err := e.Query()
	if err != nil {
		return err
	}
	rows, err := e.src.Exec.Run(ctx, q)
	if err != nil {
		return err
	}

	for _, row := range rows {
		subject, ok := row[sparql.SubjectVar]
		if !ok || subject.Value == "" {
			e.src.logger().Warn("row without subject binding",
				zap.String("type", e.Descriptor.Name))
			continue
		}
		id := subject.Value
		rec, ok := e.Meta[id]
		if !ok {
			rec = graph.Record{graph.IdentifierField: {graph.URI(id)}}
			e.Meta[id] = rec
			e.order = append(e.order, id)
		}
		for name, b := range row {
			if name == sparql.SubjectVar {
				continue
			}
			rec.Add(name, b)
		}
	}
	return nil
}
