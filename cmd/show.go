package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/cpharvest/internal/catalog"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var (
	showSelect string
	showKind   string
)

var showCmd = &cobra.Command{
	Use:   "show <catalog.db>",
	Short: "Print the records stored in a catalog database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return show(cmd.Context(), args[0], os.Stdout)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSelect, "select", "", "JSONPath applied to each record, e.g. $.units")
	showCmd.Flags().StringVar(&showKind, "kind", "", "Only show records of this kind (dataset or variable)")
	rootCmd.AddCommand(showCmd)
}

func show(ctx context.Context, dbPath string, w io.Writer) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	var x jp.Expr
	if showSelect != "" {
		var err error
		x, err = jp.ParseString(showSelect)
		if err != nil {
			return fmt.Errorf("invalid jsonpath '%s': %w", showSelect, err)
		}
	}

	store, err := catalog.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.Stream(ctx, func(r catalog.Record) error {
		if showKind != "" && r.Kind != showKind {
			return nil
		}
		value := r.Fields
		if x != nil {
			matches := x.Get(r.Fields)
			if len(matches) == 0 {
				return nil
			}
			value = matches
			if len(matches) == 1 {
				value = matches[0]
			}
		}
		_, err := fmt.Fprintf(w, "%s %s: %s\n", r.Kind, r.Key, oj.JSON(value, &oj.Options{Sort: true}))
		return err
	})
}
