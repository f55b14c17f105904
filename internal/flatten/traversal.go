package flatten

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/cpharvest/internal/graph"
)

// Traversal is the state of one harvest run. It is created per run and
// passed explicitly to Expand, Flatten and Repack.
type Traversal struct {
	Store   *graph.MetadataStore
	Catalog *Catalog

	memo     map[memoKey]FlatRecord
	onPath   *roaring.Bitmap // interned IDs being flattened above the current one
	repacked *roaring.Bitmap
}

// NewTraversal returns a traversal over store. A nil store starts empty.
func NewTraversal(store *graph.MetadataStore) *Traversal {
	if store == nil {
		store = graph.NewMetadataStore()
	}
	return &Traversal{
		Store:    store,
		Catalog:  NewCatalog(),
		memo:     make(map[memoKey]FlatRecord),
		onPath:   roaring.New(),
		repacked: roaring.New(),
	}
}

// memoKey separates records flattened for a dataset, where variable kinds
// are repacked, from records flattened for a variable, where they are inlined.
type memoKey struct {
	id        string
	excluding bool
}

func keyFor(id string, exclude map[string]bool) memoKey {
	return memoKey{id: id, excluding: len(exclude) > 0}
}

// Memoized reports whether id has a cached flat record in either context.
func (t *Traversal) Memoized(id string) bool {
	_, a := t.memo[memoKey{id: id}]
	_, b := t.memo[memoKey{id: id, excluding: true}]
	return a || b
}

// Kind of a cataloged record.
const (
	KindDataset  = "dataset"
	KindVariable = "variable"
)

// CatalogEntry is one named output record.
type CatalogEntry struct {
	Key        string
	Kind       string
	Identifier string
	Record     FlatRecord
}

// Catalog is the output of a run: dataset records and variable records,
// each keyed by its sanitized name.
type Catalog struct {
	Datasets  map[string]FlatRecord
	Variables map[string]FlatRecord

	entries []*CatalogEntry
	index   map[string]*CatalogEntry // kind + key -> entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Datasets:  make(map[string]FlatRecord),
		Variables: make(map[string]FlatRecord),
		index:     make(map[string]*CatalogEntry),
	}
}

// Put stores rec under key and reports the identifier it replaced, if any.
func (c *Catalog) Put(kind, key, id string, rec FlatRecord) (replaced string) {
	if e, ok := c.index[kind+"\x00"+key]; ok {
		replaced = e.Identifier
		e.Identifier = id
		e.Record = rec
	} else {
		e := &CatalogEntry{Key: key, Kind: kind, Identifier: id, Record: rec}
		c.entries = append(c.entries, e)
		c.index[kind+"\x00"+key] = e
	}
	switch kind {
	case KindDataset:
		c.Datasets[key] = rec
	case KindVariable:
		c.Variables[key] = rec
	}
	return replaced
}

// Entries returns every record in the order it was first cataloged.
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	for i, e := range c.entries {
		out[i] = *e
	}
	return out
}

// All returns datasets and variables in one mapping. A variable shadows a
// dataset of the same key.
func (c *Catalog) All() map[string]FlatRecord {
	out := make(map[string]FlatRecord, len(c.Datasets)+len(c.Variables))
	for k, v := range c.Datasets {
		out[k] = v
	}
	for k, v := range c.Variables {
		out[k] = v
	}
	return out
}

// Len returns the number of cataloged records.
func (c *Catalog) Len() int { return len(c.entries) }
