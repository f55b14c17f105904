package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/cpharvest/api"
	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = `
version: v1
namespaces:
  - {prefix: rdfs, iri: "http://www.w3.org/2000/01/rdf-schema#"}
  - {prefix: cpmeta, iri: "http://meta.icos-cp.eu/ontologies/cpmeta/"}
types:
  - name: DataObject
    class: "http://meta.icos-cp.eu/ontologies/cpmeta/DataObject"
    parent: StaticObject
    kind: document
    category_filtered: true
    equivalent_classes: [SimpleDataObject]
    attributes:
      "cpmeta:hasObjectSpec": specification
  - name: StaticObject
    class: "http://meta.icos-cp.eu/ontologies/cpmeta/StaticObject"
    parent: Resource
    naming_relation: "cpmeta:hasName"
    attributes:
      "cpmeta:hasName": filename
  - name: Resource
    attributes:
      "rdfs:label": label
  - name: DatasetColumn
    class: "http://meta.icos-cp.eu/ontologies/cpmeta/DatasetColumn"
    parent: Resource
    kind: variable
    naming_relation: "cpmeta:hasColumnTitle"
    attributes:
      "cpmeta:hasColumnTitle": column_title
`

func mustTable(t *testing.T, src string) *api.TypeTable {
	t.Helper()
	table, err := api.ParseTypeTable([]byte(src))
	require.NoError(t, err)
	return table
}

func TestNewRegistry_Inheritance(t *testing.T) {
	r, err := NewRegistry(mustTable(t, testTable))
	require.NoError(t, err)

	d, ok := r.Lookup("DataObject")
	require.True(t, ok)
	assert.Equal(t, api.KindDocument, d.Kind)
	assert.True(t, d.CategoryFiltered)
	assert.Equal(t, "cpmeta:hasName", d.NamingRelation, "naming relation is inherited")
	assert.Equal(t, "filename", d.NamingField)
	assert.Equal(t, []string{"label", "filename", "specification"}, d.Schema.Fields())

	// kind is not inherited
	so, ok := r.Lookup("StaticObject")
	require.True(t, ok)
	assert.Equal(t, api.KindIntermediate, so.Kind)
	assert.False(t, so.CategoryFiltered)
}

func TestNewRegistry_Aliases(t *testing.T) {
	r, err := NewRegistry(mustTable(t, testTable))
	require.NoError(t, err)

	alias, ok := r.Lookup("SimpleDataObject")
	require.True(t, ok)
	canonical, _ := r.Lookup("DataObject")
	assert.Same(t, canonical, alias)

	assert.Equal(t, []string{"DataObject", "SimpleDataObject"}, r.Kinds(api.KindDocument))
	assert.Equal(t, []string{"DatasetColumn"}, r.Kinds(api.KindVariable))
	assert.NotContains(t, r.Names(), "SimpleDataObject")
}

func TestNewRegistry_ByClass(t *testing.T) {
	r, err := NewRegistry(mustTable(t, testTable))
	require.NoError(t, err)

	d, ok := r.ByClass("http://meta.icos-cp.eu/ontologies/cpmeta/DatasetColumn")
	require.True(t, ok)
	assert.Equal(t, "DatasetColumn", d.Name)

	_, ok = r.ByClass("http://example.org/Nothing")
	assert.False(t, ok)
}

func TestNewRegistry_Errors(t *testing.T) {
	header := `
namespaces:
  - {prefix: cpmeta, iri: "http://meta.icos-cp.eu/ontologies/cpmeta/"}
types:
`
	cases := []struct {
		name  string
		types string
	}{
		{"unknown parent", `
  - name: A
    parent: Missing
`},
		{"cycle", `
  - name: A
    parent: B
  - name: B
    parent: A
`},
		{"duplicate type", `
  - name: A
  - name: A
`},
		{"bad field name", `
  - name: A
    attributes:
      "cpmeta:hasName": "file name"
`},
		{"reserved field", `
  - name: A
    attributes:
      "cpmeta:hasName": identifier
`},
		{"undeclared prefix", `
  - name: A
    attributes:
      "dcterms:title": title
`},
		{"document without naming relation", `
  - name: A
    kind: document
    attributes:
      "cpmeta:hasName": name
`},
		{"naming relation outside schema", `
  - name: A
    kind: variable
    naming_relation: "cpmeta:hasColumnTitle"
    attributes:
      "cpmeta:hasName": name
`},
		{"unknown kind", `
  - name: A
    kind: folder
`},
		{"shared class", `
  - name: A
    class: "http://x.org/C"
  - name: B
    class: "http://x.org/C"
`},
		{"alias clashes with type", `
  - name: A
    equivalent_classes: [B]
  - name: B
`},
		{"alias claimed twice", `
  - name: A
    equivalent_classes: [C]
  - name: B
    equivalent_classes: [C]
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(mustTable(t, header+tc.types))
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrInvalidSchema)
			assert.True(t, errs.IsInvalid(err))
		})
	}
}

func TestParseTypeTable_RejectsNonMappingAttributes(t *testing.T) {
	for name, attrs := range map[string]string{
		"sequence": "\n      - cpmeta:hasName\n",
		"scalar":   " cpmeta:hasName\n",
		"nested":   "\n      \"cpmeta:hasName\": {field: name}\n",
	} {
		t.Run(name, func(t *testing.T) {
			src := "types:\n  - name: A\n    attributes:" + attrs
			_, err := api.ParseTypeTable([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testTable), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Names(), 4)
	assert.Equal(t, "rdfs", r.Prefixes()[0].Prefix)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	d, ok := r.Lookup("DataObject")
	require.True(t, ok)
	assert.Equal(t, "filename", d.NamingField)
	assert.True(t, d.Schema.Has("rdfs:label"))
	assert.True(t, d.Schema.Has("cpmeta:hasObjectSpec"))

	for _, name := range []string{"DatasetColumn", "DatasetVariable"} {
		v, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, api.KindVariable, v.Kind)
		assert.Equal(t, "column_title", v.NamingField)
	}

	vt, ok := r.Lookup("ValueType")
	require.True(t, ok)
	f, _ := vt.Schema.Field("cpmeta:hasUnit")
	assert.Equal(t, "units", f)

	_, ok = r.Lookup("SimpleDataObject")
	assert.True(t, ok)

	// Only data objects and their alias are selected by category.
	for _, name := range r.Names() {
		d, _ := r.Lookup(name)
		assert.Equal(t, name == "DataObject", d.CategoryFiltered, name)
	}
}
