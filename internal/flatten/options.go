package flatten

// DefaultBlocklist names the back-edge fields (version history and
// provenance) that are never followed.
var DefaultBlocklist = []string{"NextVersionOf", "RevisionOf", "PrimarySource", "QualityFlagFor"}

const (
	DefaultSeparator     = "_"
	DefaultMaxDepth      = 64
	DefaultDatasetPrefix = "icos"
)

// Options tune one Engine. Zero fields take their defaults.
type Options struct {
	// Separator joins a field to the fields inlined beneath it.
	Separator string
	// Blocklist fields are neither expanded nor flattened.
	Blocklist []string
	// Renames replace produced keys, e.g. type_units -> units.
	Renames map[string]string
	// MaxDepth bounds the inlining depth.
	MaxDepth int
	// DatasetPrefix is prepended to dataset keys.
	DatasetPrefix string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Separator:     DefaultSeparator,
		Blocklist:     append([]string(nil), DefaultBlocklist...),
		Renames:       map[string]string{"type" + DefaultSeparator + "units": "units"},
		MaxDepth:      DefaultMaxDepth,
		DatasetPrefix: DefaultDatasetPrefix,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Separator == "" {
		o.Separator = d.Separator
	}
	if o.Blocklist == nil {
		o.Blocklist = d.Blocklist
	}
	if o.Renames == nil {
		o.Renames = map[string]string{"type" + o.Separator + "units": "units"}
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.DatasetPrefix == "" {
		o.DatasetPrefix = d.DatasetPrefix
	}
	return o
}
