package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	"github.com/KaramelBytes/stressdash/internal/source"
)

// EnvPrefix namespaces environment overrides, e.g. STRESSDASH_SOURCE.
const EnvPrefix = "STRESSDASH"

// Global configuration structure.
type Global struct {
	Source         string  `mapstructure:"source" yaml:"source"`
	HTTPTimeoutSec int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	TierLow        float64 `mapstructure:"tier_low" yaml:"tier_low"`
	TierHigh       float64 `mapstructure:"tier_high" yaml:"tier_high"`
	// Categorical columns the stress mean is broken down by
	GroupColumns  []string `mapstructure:"group_columns" yaml:"group_columns"`
	HistogramBins int      `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	PreviewRows   int      `mapstructure:"preview_rows" yaml:"preview_rows"`
	ListenAddr    string   `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() *Global {
	th := analysis.DefaultThresholds()
	return &Global{
		Source:         source.DefaultURL,
		HTTPTimeoutSec: int(source.DefaultTimeout / time.Second),
		TierLow:        th.Low,
		TierHigh:       th.High,
		GroupColumns:   append([]string(nil), analysis.DefaultGroupColumns...),
		HistogramBins:  20,
		PreviewRows:    5,
		ListenAddr:     ":8080",
	}
}

// Thresholds returns the configured tier band.
func (c *Global) Thresholds() analysis.Thresholds {
	return analysis.Thresholds{Low: c.TierLow, High: c.TierHigh}
}

// HTTPTimeout returns the fetch timeout, falling back to the default for
// non-positive values.
func (c *Global) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSec <= 0 {
		return source.DefaultTimeout
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// Validate checks values that would otherwise fail late.
func (c *Global) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.New("source must not be empty")
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be >= 0, got %d", c.HistogramBins)
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must be >= 0, got %d", c.PreviewRows)
	}
	return nil
}

// Dir returns ~/.stressdash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".stressdash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.stressdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv exports the variables of an env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including ./.env) > config file > defaults. CLI flags are
// applied by the caller on top.
func Load(cfgFile string) (*Global, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("source", d.Source)
	v.SetDefault("http_timeout_sec", d.HTTPTimeoutSec)
	v.SetDefault("tier_low", d.TierLow)
	v.SetDefault("tier_high", d.TierHigh)
	v.SetDefault("group_columns", d.GroupColumns)
	v.SetDefault("histogram_bins", d.HistogramBins)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("listen_addr", d.ListenAddr)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
