package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	"github.com/KaramelBytes/stressdash/internal/utils"
)

var colFormat string

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Describe the dataset columns and the detected stress column",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(colFormat)
		if err != nil {
			return err
		}
		t, err := newLoader().Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		target, ok := analysis.ResolveTarget(t)
		sums := analysis.Summarize(t)
		out := cmd.OutOrStdout()

		if format == "json" {
			b, err := utils.PrettyJSON(map[string]any{
				"source":  t.Source(),
				"rows":    t.Rows(),
				"target":  target,
				"columns": sums,
			})
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		}

		fmt.Fprintf(out, "Source: %s\n", t.Source())
		fmt.Fprintf(out, "Rows: %d, Columns: %d\n", t.Rows(), t.NumColumns())
		if ok {
			fmt.Fprintf(out, "Stress column: %s\n", target)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", analysis.ErrNoTarget)
		}
		fmt.Fprintln(out)
		for _, s := range sums {
			fmt.Fprintf(out, "- %s (%q): %s, non-null %d, missing %d", s.Name, s.Original, s.Kind, s.NonNull, s.Missing)
			if s.Unique > 0 {
				fmt.Fprintf(out, ", unique %d", s.Unique)
			} else if s.NonNull > 0 {
				fmt.Fprintf(out, ", mean %.4g", s.Mean)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().StringVarP(&colFormat, "format", "f", "markdown", "output format: markdown | json")
}
