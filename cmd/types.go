package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/agentic-research/cpharvest/internal/schema"
	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered metadata types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		return printTypes(os.Stdout, e.registry)
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func printTypes(w io.Writer, reg *schema.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPARENT\tATTRS\tALIASES")
	for _, name := range reg.Names() {
		d, _ := reg.Lookup(name)
		kind := string(d.Kind)
		if kind == "" {
			kind = "-"
		}
		parent := d.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.Name, kind, parent, d.Schema.Len(), strings.Join(d.Aliases, ","))
	}
	return tw.Flush()
}
