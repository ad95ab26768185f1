package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/stressdash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set stressdash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "source: %s\n", cfg.Source)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "tier_low: %.2f\n", cfg.TierLow)
		fmt.Fprintf(out, "tier_high: %.2f\n", cfg.TierHigh)
		fmt.Fprintf(out, "group_columns: %s\n", strings.Join(cfg.GroupColumns, ","))
		fmt.Fprintf(out, "histogram_bins: %d\n", cfg.HistogramBins)
		fmt.Fprintf(out, "preview_rows: %d\n", cfg.PreviewRows)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "source":
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("source must not be empty")
			}
			cfg.Source = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			cfg.HTTPTimeoutSec = i
		case "tier_low", "tier_high":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %w", key, err)
			}
			if key == "tier_low" {
				cfg.TierLow = f
			} else {
				cfg.TierHigh = f
			}
			if err := cfg.Thresholds().Validate(); err != nil {
				return err
			}
		case "group_columns":
			var cols []string
			for _, c := range strings.Split(val, ",") {
				if c = strings.TrimSpace(c); c != "" {
					cols = append(cols, c)
				}
			}
			cfg.GroupColumns = cols
		case "histogram_bins":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for histogram_bins: %v", val)
			}
			cfg.HistogramBins = i
		case "preview_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for preview_rows: %v", val)
			}
			cfg.PreviewRows = i
		case "listen_addr":
			cfg.ListenAddr = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
