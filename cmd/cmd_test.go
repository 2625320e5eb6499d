package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/selfie-finder/internal/constants"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{1500 * time.Millisecond, "1s"},
		{95 * time.Second, "1m35s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func newScrapeTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "scrape"}
	addScrapeFlags(c)
	if err := c.Flags().Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return c
}

func TestLoadScrapeConfig_Defaults(t *testing.T) {
	cfg, err := loadScrapeConfig(newScrapeTestCmd(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StartURL != constants.DefaultStartURL || cfg.OutputDir != constants.DefaultOutputDir {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.MinWidth != 1000 || cfg.MinHeight != 1000 {
		t.Errorf("expected 1000x1000 minimum, got %dx%d", cfg.MinWidth, cfg.MinHeight)
	}
}

func TestLoadScrapeConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrape.yaml")
	yaml := "start_url: https://example.com/list/\nmin_width: 800\nmin_height: 600\noutput_dir: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadScrapeConfig(newScrapeTestCmd(t,
		"--config", path,
		"--min-width", "1200",
		"--selector", "ul.uploads a",
		"--respect-robots",
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StartURL != "https://example.com/list/" {
		t.Errorf("expected start URL from file, got %s", cfg.StartURL)
	}
	if cfg.OutputDir != "from-file" {
		t.Errorf("expected output dir from file, got %s", cfg.OutputDir)
	}
	if cfg.MinWidth != 1200 {
		t.Errorf("expected flag to override min width, got %d", cfg.MinWidth)
	}
	if cfg.MinHeight != 600 {
		t.Errorf("expected min height from file, got %d", cfg.MinHeight)
	}
	if cfg.LinkSelector != "ul.uploads a" || !cfg.RespectRobots {
		t.Errorf("expected selector and robots from flags, got %+v", cfg)
	}
}

func TestLoadScrapeConfig_Invalid(t *testing.T) {
	if _, err := loadScrapeConfig(newScrapeTestCmd(t, "--start-url", "")); err == nil {
		t.Error("expected error for empty start URL")
	}
	if _, err := loadScrapeConfig(newScrapeTestCmd(t, "--min-width", "-1")); err == nil {
		t.Error("expected error for negative width")
	}
}
