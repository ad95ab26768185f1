package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stressdash/internal/dashboard"
	"github.com/KaramelBytes/stressdash/internal/utils"
)

var (
	showFormat  string
	showOutput  string
	showGroupBy []string
	showBins    int
)

var showCmd = &cobra.Command{
	Use:   "show <page>",
	Short: "Build a dashboard page and print it as Markdown or JSON",
	Long: `Loads the configured dataset and builds one dashboard page. Panels whose
columns are absent are skipped with a note; pages: ` + strings.Join(dashboard.Names(), ", ") + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, ok := dashboard.Lookup(name); !ok {
			return &dashboard.UnknownPageError{Name: name}
		}
		format, err := parseFormat(showFormat)
		if err != nil {
			return err
		}
		opt := dashboardOptions()
		if len(showGroupBy) > 0 {
			opt.Analysis.GroupColumns = showGroupBy
		}
		if showBins > 0 {
			opt.HistogramBins = showBins
		}

		t, err := newLoader().Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		res, err := dashboard.Build(name, t, opt)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}

		var body []byte
		if format == "json" {
			if body, err = utils.PrettyJSON(res); err != nil {
				return err
			}
		} else {
			body = []byte(res.Markdown())
		}
		if showOutput == "" {
			_, err = cmd.OutOrStdout().Write(body)
			return err
		}
		if err := utils.SafeWriteFile(showOutput, body); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s page to %s\n", res.Page, showOutput)
		return nil
	},
}

// parseFormat accepts markdown (md) or json.
func parseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return "markdown", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use markdown or json)", s)
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "markdown", "output format: markdown | json")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "", "optional path to write the page instead of stdout")
	showCmd.Flags().StringSliceVar(&showGroupBy, "group-by", nil, "columns to break the stress mean down by (overrides config)")
	showCmd.Flags().IntVar(&showBins, "bins", 0, "histogram bins (overrides config)")
}
