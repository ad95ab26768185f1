package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stressdash/internal/dashboard"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List dashboard pages and their panels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, p := range dashboard.Pages() {
			ids := make([]string, len(p.Panels))
			for i, panel := range p.Panels {
				ids[i] = panel.ID
			}
			fmt.Fprintf(out, "%-16s %s\n", p.Name, p.Title)
			fmt.Fprintf(out, "%-16s panels: %s\n", "", strings.Join(ids, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}
