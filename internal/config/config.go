// Package config loads harvester settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/entity"
	"github.com/agentic-research/cpharvest/internal/flatten"
	"github.com/agentic-research/cpharvest/internal/sparql"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CPHARVEST_ENDPOINT.
const EnvPrefix = "CPHARVEST"

// Config holds every setting of a harvest run.
type Config struct {
	Endpoint     string        `mapstructure:"endpoint" validate:"required,url"`
	Environment  string        `mapstructure:"environment" validate:"oneof=development production"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	TypeHosts    []string      `mapstructure:"type_hosts" validate:"min=1,dive,required"`
	CategoryBase string        `mapstructure:"category_base" validate:"required,url"`
	TypesFile    string        `mapstructure:"types_file"`

	// Selection
	Categories []string `mapstructure:"categories" validate:"dive,required"`
	Since      string   `mapstructure:"since"`
	Until      string   `mapstructure:"until"`
	LatestOnly bool     `mapstructure:"latest_only"`
	Limit      int      `mapstructure:"limit" validate:"min=0"`

	// Local datasets and flattening. An empty DatasetDir skips the local scan.
	DatasetDir    string `mapstructure:"dataset_dir"`
	DatasetPrefix string `mapstructure:"dataset_prefix"`
	BatchSize     int    `mapstructure:"batch_size" validate:"min=1"`
	MaxDepth      int    `mapstructure:"max_depth" validate:"min=1"`
	Separator     string `mapstructure:"separator" validate:"required"`

	// Output
	Output      string `mapstructure:"output" validate:"required"`
	JSONOutput  string `mapstructure:"json_output"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Endpoint:      sparql.DefaultEndpoint,
		Environment:   "production",
		LogLevel:      "info",
		Timeout:       60 * time.Second,
		TypeHosts:     []string{entity.DefaultTypeHost},
		CategoryBase:  sparql.DefaultCategoryBase,
		LatestOnly:    true,
		DatasetPrefix: flatten.DefaultDatasetPrefix,
		BatchSize:     entity.DefaultBatchSize,
		MaxDepth:      flatten.DefaultMaxDepth,
		Separator:     flatten.DefaultSeparator,
		Output:        "cpharvest.db",
	}
}

// Load reads path, or cpharvest.yaml from the working directory when path
// is empty, over Default. Environment variables win over the file. A
// missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cpharvest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, errs.WrapInvalid(fmt.Errorf("%w: read %s: %v", errs.ErrInvalidConfig, path, err),
				"config", "Load", "read config file")
		}
	}

	if err := overlay(v, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var keys = []string{
	"endpoint", "environment", "log_level", "timeout", "type_hosts", "category_base",
	"types_file", "categories", "since", "until", "latest_only", "limit", "dataset_dir",
	"dataset_prefix", "batch_size", "max_depth", "separator", "output", "json_output",
	"metrics_file",
}

func overlay(v *viper.Viper, cfg *Config) error {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	list := func(key string, dst *[]string) {
		if v.IsSet(key) {
			*dst = splitList(v.GetStringSlice(key))
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("endpoint", &cfg.Endpoint)
	str("environment", &cfg.Environment)
	str("log_level", &cfg.LogLevel)
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}
	list("type_hosts", &cfg.TypeHosts)
	str("category_base", &cfg.CategoryBase)
	str("types_file", &cfg.TypesFile)

	list("categories", &cfg.Categories)
	str("since", &cfg.Since)
	str("until", &cfg.Until)
	if v.IsSet("latest_only") {
		cfg.LatestOnly = v.GetBool("latest_only")
	}
	if v.IsSet("limit") {
		n, err := sparql.ParseLimit(v.GetString("limit"))
		if err != nil {
			return err
		}
		cfg.Limit = n
	}

	str("dataset_dir", &cfg.DatasetDir)
	str("dataset_prefix", &cfg.DatasetPrefix)
	integer("batch_size", &cfg.BatchSize)
	integer("max_depth", &cfg.MaxDepth)
	str("separator", &cfg.Separator)

	str("output", &cfg.Output)
	str("json_output", &cfg.JSONOutput)
	str("metrics_file", &cfg.MetricsFile)
	return nil
}

// splitList accepts both YAML sequences and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var validate = validator.New()

// Validate checks field constraints and that the time bounds parse.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.WrapInvalid(fmt.Errorf("%w: %s", errs.ErrInvalidConfig, formatValidationError(err)),
			"config", "Validate", "check settings")
	}
	f := c.Filters()
	if err := f.Validate(); err != nil {
		return errs.WrapInvalid(err, "config", "Validate", "check filters")
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a URL", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "min", "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, tagWord(e.Tag()), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func tagWord(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}

// Filters returns the selection settings as query filters.
func (c Config) Filters() sparql.Filters {
	return sparql.Filters{
		Categories: c.Categories,
		Since:      c.Since,
		Until:      c.Until,
		LatestOnly: c.LatestOnly,
		Limit:      c.Limit,
	}
}

// FlattenOptions returns the flattening settings.
func (c Config) FlattenOptions() flatten.Options {
	return flatten.Options{
		Separator:     c.Separator,
		MaxDepth:      c.MaxDepth,
		DatasetPrefix: c.DatasetPrefix,
	}
}
