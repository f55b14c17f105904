package sparql

// Vocabulary the builder relies on, independent of the type table.
const (
	// SubjectVar is the variable every generated query binds the resource to.
	SubjectVar = "xxx"

	RelType          = "rdf:type"
	RelSubClassPath  = "rdf:type/rdfs:subClassOf*"
	RelSubmittedBy   = "cpmeta:wasSubmittedBy"
	RelNextVersionOf = "cpmeta:isNextVersionOf"
	RelObjectSpec    = "cpmeta:hasObjectSpec"
	RelEndedAtTime   = "prov:endedAtTime"
	RelAssociated    = "prov:wasAssociatedWith"
)

const (
	// DefaultEndpoint is the ICOS Carbon Portal query service.
	DefaultEndpoint = "https://meta.icos-cp.eu/sparql"
	// DefaultCategoryBase is where object specifications (categories) live.
	DefaultCategoryBase = "http://meta.icos-cp.eu/resources/cpmeta/"

	// ResultsContentType is the response format requested from the endpoint.
	ResultsContentType = "application/sparql-results+json"
)
