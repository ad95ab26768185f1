package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/stressdash/internal/source"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source != source.DefaultURL {
		t.Fatalf("source = %q", c.Source)
	}
	if c.TierLow != 4 || c.TierHigh != 6 {
		t.Fatalf("thresholds = %v/%v", c.TierLow, c.TierHigh)
	}
	if c.HTTPTimeout() != 30*time.Second {
		t.Fatalf("timeout = %v", c.HTTPTimeout())
	}
	if len(c.GroupColumns) != 2 || c.GroupColumns[0] != "gender" {
		t.Fatalf("group columns = %v", c.GroupColumns)
	}
	if c.HistogramBins != 20 || c.PreviewRows != 5 || c.ListenAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "source: /data/stress.csv\ntier_high: 7.5\npreview_rows: 3\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRESSDASH_PREVIEW_ROWS", "9")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source != "/data/stress.csv" || c.TierHigh != 7.5 {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.PreviewRows != 9 {
		t.Fatalf("env should win over file, got %d", c.PreviewRows)
	}
	if c.TierLow != 4 {
		t.Fatalf("default tier_low lost: %v", c.TierLow)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tier_low: 8\ntier_high: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Source = "https://example.test/data.csv"
	c.GroupColumns = []string{"course_load"}
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Source != c.Source || len(got.GroupColumns) != 1 || got.GroupColumns[0] != "course_load" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "STRESSDASH_DOTENV_PROBE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("%s = %q", key, got)
	}
}
