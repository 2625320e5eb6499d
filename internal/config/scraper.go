package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/selfie-finder/internal/constants"
)

// ScraperConfig configures a single scrape run.
type ScraperConfig struct {
	StartURL      string        `yaml:"start_url"`
	OutputDir     string        `yaml:"output_dir"`
	MinWidth      int           `yaml:"min_width"`
	MinHeight     int           `yaml:"min_height"`
	LinkSelector  string        `yaml:"link_selector"` // CSS selector for the link list, empty = every <a>
	UserAgent     string        `yaml:"user_agent"`
	PageTimeout   time.Duration `yaml:"page_timeout"`
	ImageTimeout  time.Duration `yaml:"image_timeout"`
	RespectRobots bool          `yaml:"respect_robots"`
}

// DefaultScraperConfig returns the built-in scraper settings.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		StartURL:     constants.DefaultStartURL,
		OutputDir:    constants.DefaultOutputDir,
		MinWidth:     constants.DefaultMinWidth,
		MinHeight:    constants.DefaultMinHeight,
		UserAgent:    constants.DefaultUserAgent,
		PageTimeout:  constants.PageTimeout,
		ImageTimeout: constants.ImageTimeout,
	}
}

// LoadScraperConfig overlays the YAML file at path on the defaults.
// An empty path returns the defaults unchanged.
func LoadScraperConfig(path string) (ScraperConfig, error) {
	cfg := DefaultScraperConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return cfg, fmt.Errorf("reading scraper config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing scraper config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings a scrape cannot run with.
func (c ScraperConfig) Validate() error {
	if c.StartURL == "" {
		return errors.New("start_url is required")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir is required")
	}
	if c.MinWidth < 0 || c.MinHeight < 0 {
		return errors.New("min_width and min_height must not be negative")
	}
	if c.PageTimeout <= 0 || c.ImageTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}
