package sparql

import (
	"strings"
	"testing"

	"github.com/agentic-research/cpharvest/api"
	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dataObjectClass = "http://meta.icos-cp.eu/ontologies/cpmeta/DataObject"
	stationClass    = "http://meta.icos-cp.eu/ontologies/cpmeta/Station"
)

func testBuilder() *Builder {
	return NewBuilder([]api.Namespace{
		{Prefix: "rdf", IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
		{Prefix: "cpmeta", IRI: "http://meta.icos-cp.eu/ontologies/cpmeta/"},
	}, "")
}

func objectSchema() schema.Schema {
	return schema.New(api.AttributeMap{
		{Relation: "rdfs:label", Field: "label"},
		{Relation: "cpmeta:hasName", Field: "filename"},
		{Relation: RelSubmittedBy, Field: "submission"},
		{Relation: RelNextVersionOf, Field: "NextVersionOf"},
	})
}

func TestBuild_Full(t *testing.T) {
	b := testBuilder()
	q, err := b.Build(Query{
		Class:            dataObjectClass,
		Schema:           objectSchema(),
		CategoryFiltered: true,
		Filters: Filters{
			Category:   "atcCo2L2DataObject",
			Since:      "2020-01-02",
			LatestOnly: true,
			Limit:      3,
		},
	})
	require.NoError(t, err)

	want := `select ?xxx ?label ?filename ?submission ?NextVersionOf
where {
	VALUES ?spec {<http://meta.icos-cp.eu/resources/cpmeta/atcCo2L2DataObject>}
	?xxx cpmeta:hasObjectSpec ?spec .
	?xxx cpmeta:wasSubmittedBy [
		prov:endedAtTime ?submTime ;
		prov:wasAssociatedWith ?submitter
		] .
	FILTER( ?submTime >= '2020-01-02T00:00:00.000000Z'^^xsd:dateTime )
	FILTER NOT EXISTS {[] cpmeta:isNextVersionOf ?xxx}
	OPTIONAL { ?xxx rdfs:label ?label .}
	OPTIONAL { ?xxx cpmeta:hasName ?filename .}
	OPTIONAL { ?xxx cpmeta:wasSubmittedBy ?submission .}
	OPTIONAL { ?xxx cpmeta:isNextVersionOf ?NextVersionOf .}
}
limit 3`
	assert.Equal(t, want, q)
}

func TestBuild_OneOptionalPerAttribute(t *testing.T) {
	s := schema.New(api.AttributeMap{
		{Relation: "cpmeta:hasColumnTitle", Field: "column_title"},
		{Relation: "cpmeta:hasVariableTitle", Field: "column_title"},
		{Relation: "<http://purl.org/dc/terms/title>", Field: "title"},
	})
	q, err := testBuilder().Build(Query{Class: stationClass, Schema: s})
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(q, "OPTIONAL {"))
	assert.Contains(t, q, "select ?xxx ?column_title ?title\n")
	assert.Contains(t, q, "OPTIONAL { ?xxx <http://purl.org/dc/terms/title> ?title .}")
	assert.Contains(t, q, "?xxx rdf:type/rdfs:subClassOf* <"+stationClass+"> .")
}

func TestBuild_FiltersIndependentlyOptional(t *testing.T) {
	b := testBuilder()

	q, err := b.Build(Query{Class: dataObjectClass, Schema: objectSchema()})
	require.NoError(t, err)
	assert.NotContains(t, q, "FILTER")
	assert.NotContains(t, q, "VALUES")
	assert.NotContains(t, q, "limit")
	assert.Contains(t, q, "cpmeta:wasSubmittedBy [")

	q, err = b.Build(Query{Class: dataObjectClass, Schema: objectSchema(), Filters: Filters{Until: "2021-06-30"}})
	require.NoError(t, err)
	assert.Contains(t, q, "FILTER( ?submTime <= '2021-06-30T00:00:00.000000Z'^^xsd:dateTime )")
	assert.NotContains(t, q, ">=")
}

func TestBuild_SchemaGatesSubmissionAndVersion(t *testing.T) {
	s := schema.New(api.AttributeMap{{Relation: "rdfs:label", Field: "label"}})
	q, err := testBuilder().Build(Query{
		Class:   stationClass,
		Schema:  s,
		Filters: Filters{Since: "2020-01-01", LatestOnly: true},
	})
	require.NoError(t, err)
	assert.NotContains(t, q, "submTime")
	assert.NotContains(t, q, "FILTER NOT EXISTS")
}

func TestBuild_IdentifierList(t *testing.T) {
	q, err := testBuilder().Build(Query{
		Schema: objectSchema(),
		Filters: Filters{
			Identifier:  "https://meta.icos-cp.eu/objects/a",
			Identifiers: []string{"https://meta.icos-cp.eu/objects/b"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, q, "VALUES ?xxx {<https://meta.icos-cp.eu/objects/a> <https://meta.icos-cp.eu/objects/b>}")
	assert.NotContains(t, q, "rdf:type")
}

func TestBuild_CategoryList(t *testing.T) {
	b := NewBuilder(nil, "http://example.org/spec/")
	q, err := b.Build(Query{
		Class:            dataObjectClass,
		Schema:           objectSchema(),
		CategoryFiltered: true,
		Filters:          Filters{Categories: []string{"pdt", "pdt2"}},
	})
	require.NoError(t, err)
	assert.Contains(t, q, "VALUES ?spec {<http://example.org/spec/pdt> <http://example.org/spec/pdt2>}")
}

func TestBuild_Limit(t *testing.T) {
	for _, tc := range []struct {
		limit int
		want  string
	}{
		{0, ""},
		{3, "\nlimit 3"},
	} {
		q, err := testBuilder().Build(Query{Class: stationClass, Filters: Filters{Limit: tc.limit}})
		require.NoError(t, err)
		if tc.want == "" {
			assert.False(t, strings.Contains(q, "limit"))
		} else {
			assert.True(t, strings.HasSuffix(q, tc.want))
		}
	}
}

func TestBuild_FailsFast(t *testing.T) {
	cases := []struct {
		name     string
		q        Query
		sentinel error
	}{
		{"relative identifier", Query{Filters: Filters{Identifier: "objects/a"}}, errs.ErrInvalidIdentifier},
		{"bad identifier in list", Query{Class: stationClass, Filters: Filters{Identifiers: []string{"nope"}}}, errs.ErrInvalidIdentifier},
		{"negative limit", Query{Class: stationClass, Filters: Filters{Limit: -1}}, errs.ErrInvalidLimit},
		{"unparseable since", Query{Class: stationClass, Filters: Filters{Since: "toto"}}, errs.ErrInvalidTime},
		{"bad class", Query{Class: "DataObject"}, errs.ErrInvalidIdentifier},
		{"no selection", Query{}, errs.ErrNoSelection},
		{"bad category", Query{Class: stationClass, CategoryFiltered: true, Filters: Filters{Category: "a b"}}, errs.ErrInvalidIdentifier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := testBuilder().Build(tc.q)
			require.Error(t, err)
			assert.Empty(t, q)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.True(t, errs.IsInvalid(err))
		})
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t,
		"prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>\nprefix cpmeta: <http://meta.icos-cp.eu/ontologies/cpmeta/>\n",
		testBuilder().Header())
}

func TestTypeQuery(t *testing.T) {
	q, err := testBuilder().TypeQuery("https://meta.icos-cp.eu/objects/a")
	require.NoError(t, err)
	assert.Equal(t, "select ?objtype\nwhere {\n\t<https://meta.icos-cp.eu/objects/a> rdf:type ?objtype\n}", q)

	_, err = testBuilder().TypeQuery("a")
	assert.ErrorIs(t, err, errs.ErrInvalidIdentifier)
}

func TestNamesQuery(t *testing.T) {
	q, err := testBuilder().NamesQuery(dataObjectClass, "cpmeta:hasName", []string{"a.csv", `we"ird.csv`})
	require.NoError(t, err)
	assert.Contains(t, q, `VALUES ?name {"a.csv" "we\"ird.csv"}`)
	assert.Contains(t, q, "?xxx rdf:type <"+dataObjectClass+"> ;\n\t\tcpmeta:hasName ?name .")
	assert.Contains(t, q, "FILTER NOT EXISTS {[] cpmeta:isNextVersionOf ?xxx}")

	_, err = testBuilder().NamesQuery(dataObjectClass, "cpmeta:hasName", nil)
	assert.ErrorIs(t, err, errs.ErrNoSelection)
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, Literal("plain"))
	assert.Equal(t, `"a\\b\"c\nd"`, Literal("a\\b\"c\nd"))
}
