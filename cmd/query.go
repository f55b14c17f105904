package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	errs "github.com/agentic-research/cpharvest/internal/errors"
	"github.com/agentic-research/cpharvest/internal/graph"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var (
	queryExec bool
	queryIDs  []string
)

var queryCmd = &cobra.Command{
	Use:   "query <type>",
	Short: "Print the query selecting a type's metadata, or run it with --exec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = e.logger.Sync() }()

		if err := applySelection(cmd, &e.cfg); err != nil {
			return err
		}
		return runQuery(cmd.Context(), e, args[0], os.Stdout)
	},
}

func init() {
	selectionFlags(queryCmd)
	queryCmd.Flags().BoolVar(&queryExec, "exec", false, "Run the query and print the merged records as JSON")
	queryCmd.Flags().StringSliceVar(&queryIDs, "id", nil, "Restrict to these resource identifiers")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(ctx context.Context, e *env, typeName string, w io.Writer) error {
	desc, ok := e.registry.Lookup(typeName)
	if !ok {
		return errs.WrapInvalid(fmt.Errorf("%w: %s", errs.ErrUnknownType, typeName), "cmd", "query", "look up type")
	}
	f := e.cfg.Filters()
	f.Identifiers = queryIDs
	ent := e.source.New(desc, f)

	if !queryExec {
		q, err := ent.Query()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, e.builder.Header()+q)
		return err
	}

	if err := ent.FetchMeta(ctx); err != nil {
		return err
	}
	out := make([]any, 0, len(ent.IDs()))
	for _, id := range ent.IDs() {
		out = append(out, recordJSON(ent.Meta[id]))
	}
	_, err := fmt.Fprintln(w, oj.JSON(out, &oj.Options{Sort: true, Indent: 2}))
	return err
}

// recordJSON renders a fetched record as field -> value or list of values.
func recordJSON(rec graph.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for field, bs := range rec {
		if len(bs) == 1 {
			out[field] = bs[0].Value
			continue
		}
		list := make([]any, len(bs))
		for i, b := range bs {
			list[i] = b.Value
		}
		out[field] = list
	}
	return out
}
