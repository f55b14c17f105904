package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/agentic-research/cpharvest/internal/catalog"
	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/flatten"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/agentic-research/cpharvest/internal/localfs"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootType is the type whose instances seed a harvest.
const rootType = "DataObject"

var harvestCmd = &cobra.Command{
	Use:   "harvest [output.db]",
	Short: "Harvest metadata for local and newly submitted datasets into a catalog database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = e.logger.Sync() }()

		if err := applySelection(cmd, &e.cfg); err != nil {
			return err
		}
		if len(args) == 1 {
			e.cfg.Output = args[0]
		}

		start := time.Now()
		run, err := harvest(cmd.Context(), e)
		if err != nil {
			e.logger.Error("harvest failed", zap.Error(err), zap.String("class", errs.Classify(err).String()))
			return err
		}
		fmt.Printf("Harvested %d datasets and %d variables into %s in %v.\n",
			run.Datasets, run.Variables, e.cfg.Output, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	selectionFlags(harvestCmd)
	rootCmd.AddCommand(harvestCmd)
}

// harvest runs one full pass: pick roots, expand and repack them, then
// store the catalog and the run.
func harvest(ctx context.Context, e *env) (catalog.Run, error) {
	// 1. Open the catalog; the previous run supplies the default lower bound.
	store, err := catalog.Open(e.cfg.Output)
	if err != nil {
		return catalog.Run{}, err
	}
	defer func() { _ = store.Close() }()

	if e.cfg.Since == "" {
		last, ok, err := store.LastRun(ctx)
		if err != nil {
			return catalog.Run{}, err
		}
		if ok {
			e.cfg.Since = last.NextSince()
			e.logger.Info("continuing from previous run",
				zap.String("run", last.ID), zap.String("since", e.cfg.Since))
		}
	}
	run := catalog.NewRun(e.cfg.Since, e.cfg.Until)

	// 2. Roots; selected data objects arrive with their metadata.
	seeded := graph.NewMetadataStore()
	roots, err := selectRoots(ctx, e, seeded)
	if err != nil {
		return catalog.Run{}, err
	}
	e.logger.Info("harvesting", zap.String("run", run.ID), zap.Int("roots", len(roots)))

	// 3. Expand and repack
	engine := flatten.NewEngine(e.registry, e.source, e.logger, e.metrics, e.cfg.FlattenOptions())
	cat, err := engine.HarvestStore(ctx, seeded, roots)
	if err != nil {
		return catalog.Run{}, err
	}

	// 4. Store
	run.FinishedAt = time.Now().UTC()
	if err := store.Save(ctx, run, cat); err != nil {
		return catalog.Run{}, err
	}
	run.Datasets, run.Variables = len(cat.Datasets), len(cat.Variables)

	if e.cfg.JSONOutput != "" {
		if err := writeJSON(e.cfg.JSONOutput, cat); err != nil {
			return catalog.Run{}, err
		}
	}
	if e.cfg.MetricsFile != "" {
		if err := e.metrics.WriteTextfile(e.cfg.MetricsFile); err != nil {
			return catalog.Run{}, fmt.Errorf("write metrics: %w", err)
		}
	}
	return run, nil
}

// selectRoots unions the data objects named by local datasets with those the
// configured selection matches. Selected objects are put into store with the
// records the selection query returned.
func selectRoots(ctx context.Context, e *env, store *graph.MetadataStore) ([]string, error) {
	desc, ok := e.registry.Lookup(rootType)
	if !ok {
		return nil, errs.WrapInvalid(fmt.Errorf("%w: %s", errs.ErrUnknownType, rootType), "cmd", "harvest", "look up root type")
	}

	var roots []string
	seen := make(map[string]bool)
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				roots = append(roots, id)
			}
		}
	}

	if e.cfg.DatasetDir != "" {
		names, err := localfs.Scan(e.cfg.DatasetDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("scan %s: %w", e.cfg.DatasetDir, err)
		}
		ids, err := e.source.ListIdentifiersByName(ctx, desc, names)
		if err != nil {
			return nil, err
		}
		e.logger.Info("local datasets", zap.Int("names", len(names)), zap.Int("found", len(ids)))
		add(ids)
	}

	f := e.cfg.Filters()
	if len(f.CategoryNames()) > 0 || f.Since != "" || f.Until != "" || f.Limit > 0 {
		ent := e.source.New(desc, f)
		if err := ent.FetchMeta(ctx); err != nil {
			return nil, err
		}
		for _, id := range ent.IDs() {
			store.Put(id, graph.Entry{Type: desc.Name, Record: ent.Meta[id], Supported: true})
		}
		e.logger.Info("selected data objects", zap.Int("found", len(ent.IDs())))
		add(ent.IDs())
	}

	if len(roots) == 0 {
		e.logger.Warn("nothing to harvest")
	}
	return roots, nil
}

func writeJSON(path string, cat *flatten.Catalog) error {
	out := make(map[string]any)
	for key, rec := range cat.All() {
		out[key] = rec.Export()
	}
	data := oj.JSON(out, &oj.Options{Sort: true, Indent: 2})
	if err := os.WriteFile(path, []byte(data+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
