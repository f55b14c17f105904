// Package flatten denormalizes the metadata graph reachable from a set of
// datasets into flat, named catalog records.
//
// A run has two phases. Expand fetches every resource reachable from the
// roots into the metadata store. Repack then flattens each root, inlining
// referenced resources under path-qualified keys, and catalogs the result.
// Variable resources met along the way are cataloged as records of their own.
package flatten

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/cpharvest/api"
	"github.com/agentic-research/cpharvest/internal/entity"
	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/metrics"
	"github.com/agentic-research/cpharvest/internal/schema"
	"go.uber.org/zap"
)

// Fetcher resolves and fetches one resource.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (entity.Result, error)
}

// Engine runs traversals against one registry and fetcher.
type Engine struct {
	Registry *schema.Registry
	Fetcher  Fetcher
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Options  Options

	blocked map[string]bool
}

// NewEngine returns an engine; zero option fields take their defaults.
func NewEngine(reg *schema.Registry, f Fetcher, logger *zap.Logger, m *metrics.Collector, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	blocked := make(map[string]bool, len(opts.Blocklist))
	for _, b := range opts.Blocklist {
		blocked[b] = true
	}
	return &Engine{
		Registry: reg,
		Fetcher:  f,
		Logger:   logger.Named("flatten"),
		Metrics:  m,
		Options:  opts,
		blocked:  blocked,
	}
}

// Harvest expands the graph below roots and repacks each root into a fresh
// catalog.
func (e *Engine) Harvest(ctx context.Context, roots []string) (*Catalog, error) {
	return e.HarvestStore(ctx, nil, roots)
}

// HarvestStore is Harvest over a store that may already hold some of the
// resources, typically roots returned by a selection query. Resources in
// store are not fetched again.
func (e *Engine) HarvestStore(ctx context.Context, store *graph.MetadataStore, roots []string) (*Catalog, error) {
	t := NewTraversal(store)
	if err := e.Expand(ctx, t, roots); err != nil {
		return nil, err
	}
	for _, id := range roots {
		if err := e.Repack(t, id); err != nil {
			return nil, err
		}
	}
	e.Logger.Info("harvest complete",
		zap.Int("roots", len(roots)),
		zap.Int("resources", t.Store.Len()),
		zap.Int("datasets", len(t.Catalog.Datasets)),
		zap.Int("variables", len(t.Catalog.Variables)))
	return t.Catalog, nil
}

// Expand fetches every resource reachable from roots that is not yet in the
// store, breadth-first. Blocklisted fields are not followed. Resources of
// unknown type are stored as unsupported so they are never fetched again.
func (e *Engine) Expand(ctx context.Context, t *Traversal, roots []string) error {
	visited := roaring.New()
	queue := append([]string(nil), roots...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !visited.CheckedAdd(t.Store.Intern(id)) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !t.Store.Has(id) {
			if err := e.fetch(ctx, t, id); err != nil {
				return err
			}
		}

		entry, _ := t.Store.Get(id)
		if !entry.Supported {
			continue
		}
		for _, field := range entry.Record.Fields() {
			if field == graph.IdentifierField || e.blocked[field] {
				continue
			}
			for _, b := range entry.Record[field] {
				if b.IsURI() && !visited.Contains(t.Store.Intern(b.Value)) {
					queue = append(queue, b.Value)
				}
			}
		}
	}
	return nil
}

func (e *Engine) fetch(ctx context.Context, t *Traversal, id string) error {
	if err := graph.ValidateIdentifier(id); err != nil {
		e.Logger.Warn("reference is not a resource identifier, keeping it as a value",
			zap.String("id", id), zap.Error(err))
		t.Store.Put(id, graph.Entry{})
		return nil
	}

	res, err := e.Fetcher.Fetch(ctx, id)
	if err != nil {
		return errs.Wrap(err, "flatten", "Expand", "fetch "+id)
	}
	if !res.Supported() {
		e.Logger.Warn("unsupported resource type, not descending",
			zap.String("id", id), zap.String("type", res.TypeName), zap.String("class", res.Class))
		e.Metrics.IncUnsupported()
		t.Store.Put(id, graph.Entry{Type: res.TypeName})
		return nil
	}

	e.Logger.Debug("fetched resource", zap.String("id", id), zap.String("type", res.Descriptor.Name))
	e.Metrics.IncFetched()
	t.Store.Put(id, graph.Entry{Type: res.Descriptor.Name, Record: res.Record, Supported: true})
	return nil
}

// Flatten returns the flat record of id, inlining every referenced resource
// under "field<sep>child" keys. References to a type in exclude are repacked
// as records of their own instead. Results are memoized per identifier and
// exclusion context; a record cut short by the cycle guard is not memoized,
// since its content depends on the path it was reached by.
func (e *Engine) Flatten(t *Traversal, id string, exclude map[string]bool, depth int) (FlatRecord, error) {
	rec, _, err := e.flatten(t, id, exclude, depth)
	return rec, err
}

func (e *Engine) flatten(t *Traversal, id string, exclude map[string]bool, depth int) (out FlatRecord, truncated bool, err error) {
	key := keyFor(id, exclude)
	if rec, ok := t.memo[key]; ok {
		return rec, false, nil
	}
	if depth > e.Options.MaxDepth {
		return nil, false, errs.WrapInternal(fmt.Errorf("%w: depth %d at %s", errs.ErrDepthExceeded, depth, id),
			"flatten", "Flatten", "inline "+id)
	}
	entry, ok := t.Store.Get(id)
	if !ok {
		return nil, false, errs.WrapInternal(fmt.Errorf("%w: %s", errs.ErrNotInStore, id),
			"flatten", "Flatten", "look up "+id)
	}

	self := t.Store.Intern(id)
	t.onPath.Add(self)
	defer t.onPath.Remove(self)

	out = FlatRecord{}
	for _, field := range entry.Record.Fields() {
		if field == graph.IdentifierField || e.blocked[field] {
			continue
		}
		for _, b := range entry.Record[field] {
			if !b.IsURI() {
				out.Add(e.rename(field), b.Value)
				continue
			}
			cut, err := e.inline(t, out, field, b.Value, exclude, depth)
			if err != nil {
				return nil, false, err
			}
			truncated = truncated || cut
		}
	}

	if !truncated {
		t.memo[key] = out
	}
	return out, truncated, nil
}

// inline merges target's record into out and reports whether the cycle guard
// cut anything below it.
func (e *Engine) inline(t *Traversal, out FlatRecord, field, target string, exclude map[string]bool, depth int) (bool, error) {
	te, ok := t.Store.Get(target)
	if !ok {
		return false, errs.WrapInternal(fmt.Errorf("%w: %s", errs.ErrNotInStore, target),
			"flatten", "Flatten", "look up "+target)
	}
	if !te.Supported {
		out.Add(e.rename(field), target)
		return false, nil
	}
	if exclude[te.Type] {
		return false, e.Repack(t, target)
	}
	if t.onPath.Contains(t.Store.Intern(target)) {
		e.Logger.Warn("reference cycle, not inlining",
			zap.String("field", field), zap.String("target", target))
		e.Metrics.IncCycle()
		return true, nil
	}

	child, cut, err := e.flatten(t, target, exclude, depth+1)
	if err != nil {
		return false, err
	}
	for _, k := range child.Keys() {
		out.Add(e.rename(field+e.Options.Separator+k), child[k]...)
	}
	return cut, nil
}

func (e *Engine) rename(key string) string {
	if to, ok := e.Options.Renames[key]; ok {
		return to
	}
	return key
}

// Repack catalogs id as a dataset or variable record. Documents and
// variables without their naming attribute abort the run; other kinds are
// logged and skipped.
func (e *Engine) Repack(t *Traversal, id string) error {
	entry, ok := t.Store.Get(id)
	if !ok {
		return errs.WrapInternal(fmt.Errorf("%w: %s", errs.ErrNotInStore, id),
			"flatten", "Repack", "look up "+id)
	}
	desc, ok := e.Registry.Lookup(entry.Type)
	if !entry.Supported || !ok {
		e.Logger.Error("repack of unsupported resource", zap.String("id", id), zap.String("type", entry.Type))
		return nil
	}

	var kind string
	var exclude map[string]bool
	switch desc.Kind {
	case api.KindDocument:
		kind = KindDataset
		exclude = e.variableTypes()
	case api.KindVariable:
		kind = KindVariable
	default:
		e.Logger.Error("repack of a type that is neither document nor variable",
			zap.String("id", id), zap.String("type", desc.Name))
		return nil
	}

	intID := t.Store.Intern(id)
	if t.repacked.Contains(intID) {
		return nil
	}

	name, ok := entry.Record.First(desc.NamingField)
	if !ok || name.Value == "" {
		e.Logger.Error("record cannot be named",
			zap.String("severity", "critical"),
			zap.String("id", id),
			zap.String("type", desc.Name),
			zap.String("field", desc.NamingField),
			zap.String("relation", desc.NamingRelation))
		return errs.WrapConsistency(fmt.Errorf("%w %s on %s %s", errs.ErrMissingName, desc.NamingField, desc.Name, id),
			"flatten", "Repack", "name "+kind)
	}
	t.repacked.Add(intID)

	key := VariableKey(name.Value)
	if kind == KindDataset {
		key = DatasetKey(e.Options.DatasetPrefix, name.Value)
	}

	// Each top-level record gets its own path.
	saved := t.onPath
	t.onPath = roaring.New()
	rec, err := e.Flatten(t, id, exclude, 0)
	t.onPath = saved
	if err != nil {
		return err
	}

	if prev := t.Catalog.Put(kind, key, id, rec); prev != "" && prev != id {
		e.Logger.Warn("catalog key reused, keeping the latest record",
			zap.String("key", key), zap.String("previous", prev), zap.String("id", id))
	}
	e.Metrics.IncRecord(kind)
	return nil
}

func (e *Engine) variableTypes() map[string]bool {
	out := make(map[string]bool)
	for _, name := range e.Registry.Kinds(api.KindVariable) {
		out[name] = true
	}
	return out
}
