package graph

import (
	"github.com/RoaringBitmap/roaring"
)

// Entry is what the store keeps per identifier.
type Entry struct {
	// Type is the resolved type name; empty when the resource has no known type.
	Type string
	// Record is the fetched metadata. Nil for unsupported resources.
	Record Record
	// Supported is false for resources whose type is outside the registry.
	// They are kept so they are never fetched again.
	Supported bool
}

// MetadataStore maps identifiers to their fetched metadata. An identifier is
// written at most once; later writes are ignored. Not safe for concurrent use.
type MetadataStore struct {
	entries map[string]*Entry

	// Identifier interning shared with traversal bitmaps.
	nodeIntID   map[string]uint32 // identifier -> internal ID
	intToNodeID []string          // reverse: internal ID -> identifier
	present     *roaring.Bitmap   // internal IDs with an entry
}

// NewMetadataStore returns an empty store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		entries:   make(map[string]*Entry),
		nodeIntID: make(map[string]uint32),
		present:   roaring.New(),
	}
}

// Intern returns the stable internal ID for id, assigning one if needed.
// IDs are dense and assigned in first-seen order.
func (s *MetadataStore) Intern(id string) uint32 {
	if intID, ok := s.nodeIntID[id]; ok {
		return intID
	}
	intID := uint32(len(s.intToNodeID))
	s.nodeIntID[id] = intID
	s.intToNodeID = append(s.intToNodeID, id)
	return intID
}

// Lookup returns the identifier behind an internal ID.
func (s *MetadataStore) Lookup(intID uint32) (string, bool) {
	if int(intID) >= len(s.intToNodeID) {
		return "", false
	}
	return s.intToNodeID[intID], true
}

// Put stores e under id. It returns false, leaving the existing entry
// untouched, if id is already present.
func (s *MetadataStore) Put(id string, e Entry) bool {
	intID := s.Intern(id)
	if !s.present.CheckedAdd(intID) {
		return false
	}
	s.entries[id] = &e
	return true
}

// Has reports whether id has been stored.
func (s *MetadataStore) Has(id string) bool {
	intID, ok := s.nodeIntID[id]
	return ok && s.present.Contains(intID)
}

// Get returns the entry for id.
func (s *MetadataStore) Get(id string) (*Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Type returns the stored type name of id.
func (s *MetadataStore) Type(id string) (string, bool) {
	e, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return e.Type, true
}

// Len returns the number of stored identifiers.
func (s *MetadataStore) Len() int {
	return int(s.present.GetCardinality())
}

// IDs returns the stored identifiers in the order they were first interned.
func (s *MetadataStore) IDs() []string {
	out := make([]string, 0, s.Len())
	it := s.present.Iterator()
	for it.HasNext() {
		out = append(out, s.intToNodeID[it.Next()])
	}
	return out
}
