package graph

import (
	"fmt"
	"net/url"
	"strings"

	errs "github.com/agentic-research/cpharvest/internal/errors"
)

// ValidateIdentifier checks that id is an absolute URI with a scheme and a host.
func ValidateIdentifier(id string) error {
	u, err := url.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %v", errs.ErrInvalidIdentifier, id, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w %q: need an absolute URI", errs.ErrInvalidIdentifier, id)
	}
	if strings.ContainsAny(id, "<>\" {}|\\^`") {
		return fmt.Errorf("%w %q: contains characters not allowed in an IRI", errs.ErrInvalidIdentifier, id)
	}
	return nil
}

// TypeName returns the local name of a class IRI: the fragment if there is
// one, otherwise the last path segment.
func TypeName(classIRI string) string {
	if i := strings.LastIndexByte(classIRI, '#'); i >= 0 {
		return classIRI[i+1:]
	}
	trimmed := strings.TrimRight(classIRI, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Host returns the host part of an IRI, or "" if it has none.
func Host(iri string) string {
	u, err := url.Parse(iri)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
