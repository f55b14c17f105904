package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/araddon/dateparse"
)

// TimeLayout is the literal form the endpoint compares xsd:dateTime values in.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Filters narrow a query. Every field is optional; the zero value selects
// everything the type clause matches.
type Filters struct {
	Identifier  string
	Identifiers []string
	Category    string
	Categories  []string
	// Since and Until are inclusive submission-time bounds in any common
	// date format.
	Since      string
	Until      string
	LatestOnly bool
	// Limit caps the result rows; zero means no limit.
	Limit int
}

// IDs returns the identifier filter values, single identifier first.
func (f Filters) IDs() []string {
	var out []string
	if f.Identifier != "" {
		out = append(out, f.Identifier)
	}
	return append(out, f.Identifiers...)
}

// CategoryNames returns the category filter values, single category first.
func (f Filters) CategoryNames() []string {
	var out []string
	if f.Category != "" {
		out = append(out, f.Category)
	}
	return append(out, f.Categories...)
}

// Validate checks every filter without building anything.
func (f Filters) Validate() error {
	for _, id := range f.IDs() {
		if err := graph.ValidateIdentifier(id); err != nil {
			return errs.WrapInvalid(err, "sparql", "Validate", "identifier filter")
		}
	}
	for _, c := range f.CategoryNames() {
		if c == "" || strings.ContainsAny(c, "<> \"{}|\\^`") {
			return errs.WrapInvalid(fmt.Errorf("%w: category %q", errs.ErrInvalidIdentifier, c),
				"sparql", "Validate", "category filter")
		}
	}
	if f.Limit < 0 {
		return errs.WrapInvalid(fmt.Errorf("%w: %d is negative", errs.ErrInvalidLimit, f.Limit),
			"sparql", "Validate", "limit filter")
	}
	if _, err := TimeBound(">=", f.Since); err != nil {
		return errs.WrapInvalid(err, "sparql", "Validate", "since filter")
	}
	if _, err := TimeBound("<=", f.Until); err != nil {
		return errs.WrapInvalid(err, "sparql", "Validate", "until filter")
	}
	return nil
}

// ParseLimit converts user text to a limit. Empty text means no limit.
func ParseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.WrapInvalid(fmt.Errorf("%w: %q is not an integer", errs.ErrInvalidLimit, s),
			"sparql", "ParseLimit", "parse limit")
	}
	if n < 0 {
		return 0, errs.WrapInvalid(fmt.Errorf("%w: %d is negative", errs.ErrInvalidLimit, n),
			"sparql", "ParseLimit", "parse limit")
	}
	return n, nil
}

// NormalizeTime parses a date in any common format and renders it in
// TimeLayout. Zone-less input is taken as UTC.
func NormalizeTime(s string) (string, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", errs.ErrInvalidTime, s, err)
	}
	return t.UTC().Format(TimeLayout), nil
}

var validOperators = []string{"<=", ">=", "<", ">"}

// TimeBound renders a submission-time filter clause. An empty value yields
// an empty clause.
func TimeBound(op, value string) (string, error) {
	valid := false
	for _, o := range validOperators {
		if op == o {
			valid = true
			break
		}
	}
	if !valid {
		return "", fmt.Errorf("%w %q: valid operators are %s",
			errs.ErrInvalidOperator, op, strings.Join(validOperators, " "))
	}
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	ts, err := NormalizeTime(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("FILTER( ?submTime %s '%s'^^xsd:dateTime )", op, ts), nil
}
