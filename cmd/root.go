package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/cpharvest/internal/config"
	"github.com/agentic-research/cpharvest/internal/entity"
	"github.com/agentic-research/cpharvest/internal/logging"
	"github.com/agentic-research/cpharvest/internal/metrics"
	"github.com/agentic-research/cpharvest/internal/schema"
	"github.com/agentic-research/cpharvest/internal/sparql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to cpharvest.yaml (default ./cpharvest.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:           "cpharvest",
	Short:         "Harvest ICOS Carbon Portal metadata into flat dataset and variable records",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every command builds from the loaded configuration.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *schema.Registry
	metrics  *metrics.Collector
	builder  *sparql.Builder
	client   *sparql.Client
	source   *entity.Source
}

func setup() (*env, error) {
	// 1. Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// 2. Logger
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	// 3. Type registry
	var reg *schema.Registry
	if cfg.TypesFile != "" {
		reg, err = schema.Load(cfg.TypesFile)
	} else {
		reg, err = schema.Default()
	}
	if err != nil {
		return nil, err
	}

	// 4. Endpoint access
	m := metrics.New()
	b := sparql.NewBuilder(reg.Prefixes(), cfg.CategoryBase)
	c := sparql.NewClient(cfg.Endpoint, b.Header(), cfg.Timeout, logger, m)

	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  m,
		builder:  b,
		client:   c,
		source: &entity.Source{
			Exec:      c,
			Builder:   b,
			Registry:  reg,
			TypeHosts: cfg.TypeHosts,
			BatchSize: cfg.BatchSize,
			Logger:    logger.Named("entity"),
		},
	}, nil
}

// selectionFlags registers the query narrowing flags shared by harvest and
// query. Set flags win over the configuration.
func selectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("category", nil, "Data object specification names to select")
	cmd.Flags().String("since", "", "Lower submission time bound (inclusive)")
	cmd.Flags().String("until", "", "Upper submission time bound (inclusive)")
	cmd.Flags().Bool("latest-only", true, "Skip resources that have a newer version")
	cmd.Flags().String("limit", "", "Maximum number of result rows")
}

func applySelection(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("category") {
		cfg.Categories, _ = flags.GetStringSlice("category")
	}
	if flags.Changed("since") {
		cfg.Since, _ = flags.GetString("since")
	}
	if flags.Changed("until") {
		cfg.Until, _ = flags.GetString("until")
	}
	if flags.Changed("latest-only") {
		cfg.LatestOnly, _ = flags.GetBool("latest-only")
	}
	if flags.Changed("limit") {
		s, _ := flags.GetString("limit")
		n, err := sparql.ParseLimit(s)
		if err != nil {
			return err
		}
		cfg.Limit = n
	}
	f := cfg.Filters()
	return f.Validate()
}
