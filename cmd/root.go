package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	cfgpkg "github.com/KaramelBytes/stressdash/internal/config"
	"github.com/KaramelBytes/stressdash/internal/dashboard"
	"github.com/KaramelBytes/stressdash/internal/loader"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Source/HTTP flags (override config if set)
	flagSource         string
	flagHTTPTimeoutSec int

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "stressdash",
	Short: "stressdash: academic stress dashboard over a CSV dataset",
	Long: `stressdash loads a student stress survey (CSV or XLSX, local or remote), derives
summary metrics around its stress column, and renders dashboard pages as Markdown
or JSON, on the command line or over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogger(cmd); err != nil {
			return err
		}
		loadConfig(cmd)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.stressdash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "dataset URL or local path (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
}

// initLogger builds the process logger. One-shot commands only log warnings
// unless --debug is set; serve logs at info.
func initLogger(cmd *cobra.Command) error {
	zc := zap.NewProductionConfig()
	switch {
	case debug:
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case cmd.Name() == "serve":
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig(cmd *cobra.Command) {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := cmd.Root().PersistentFlags()
	if f.Changed("source") && flagSource != "" {
		cfg.Source = flagSource
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	logger.Debug("configuration loaded",
		zap.String("source", cfg.Source),
		zap.Duration("http_timeout", cfg.HTTPTimeout()),
		zap.Float64("tier_low", cfg.TierLow),
		zap.Float64("tier_high", cfg.TierHigh))
}

// newLoader returns a loader for the configured source.
func newLoader() *loader.Loader {
	return loader.New(cfg.Source,
		loader.WithTimeout(cfg.HTTPTimeout()),
		loader.WithLogger(logger.Named("loader")))
}

// dashboardOptions maps configuration onto page construction options.
func dashboardOptions() dashboard.Options {
	return dashboard.Options{
		Analysis: analysis.Options{
			Thresholds:   cfg.Thresholds(),
			GroupColumns: cfg.GroupColumns,
		},
		HistogramBins: cfg.HistogramBins,
		PreviewRows:   cfg.PreviewRows,
	}
}
