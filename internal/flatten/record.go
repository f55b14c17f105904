package flatten

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// FlatRecord maps path-qualified field names to their values. A field that
// is multi-valued at the source keeps every distinct value in order.
type FlatRecord map[string][]string

// Add appends values to key, skipping ones already present.
func (r FlatRecord) Add(key string, values ...string) {
	have := r[key]
	for _, v := range values {
		dup := false
		for _, h := range have {
			if h == v {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, v)
		}
	}
	r[key] = have
}

// Keys returns the record's keys, sorted.
func (r FlatRecord) Keys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Export returns the record as a generic JSON object, single values
// unwrapped to scalars.
func (r FlatRecord) Export() map[string]any {
	out := make(map[string]any, len(r))
	for k, vs := range r {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}
	return out
}

var (
	nonWord     = regexp.MustCompile(`[^A-Za-z0-9_]`)
	unitBracket = regexp.MustCompile(`\s*\[[^\]]*\]`)
)

// DatasetKey names a dataset record after its file: the file stem, prefixed,
// with every character outside [A-Za-z0-9_] replaced by an underscore.
func DatasetKey(prefix, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if prefix != "" {
		stem = prefix + "_" + stem
	}
	return nonWord.ReplaceAllString(stem, "_")
}

// VariableKey names a variable record after its title, without the bracketed
// unit suffix: "Temperature [degC]" becomes "Temperature".
func VariableKey(title string) string {
	return strings.TrimSpace(unitBracket.ReplaceAllString(title, ""))
}
