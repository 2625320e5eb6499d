package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/selfie-finder/internal/config"
	"github.com/kozaktomas/selfie-finder/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download the large images linked from a link-list page",
	Long: `Download the large images linked from a link-list page.

Every link on the start page is visited once. Links pointing directly at an
image are downloaded; other links are fetched as HTML and every <img> on them
is downloaded. Only images at least --min-width x --min-height pixels are
saved, as <page>_<n>_<name><ext> in the output folder.

Settings come from the built-in defaults, then the --config YAML file, then
explicitly set flags.

Examples:
  # Scrape with the defaults
  selfie-finder scrape

  # Only links inside the upload list, saved into ./images
  selfie-finder scrape --selector "ul.uploads a" --output images

  # Settings from a file, JSON summary
  selfie-finder scrape --config scrape.yaml --json`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addScrapeFlags(scrapeCmd)
}

func addScrapeFlags(c *cobra.Command) {
	c.Flags().String("config", "", "YAML file with scraper settings")
	c.Flags().String("start-url", "", "Link-list page to start from")
	c.Flags().String("output", "", "Folder the images are saved to")
	c.Flags().Int("min-width", 0, "Minimum image width in pixels")
	c.Flags().Int("min-height", 0, "Minimum image height in pixels")
	c.Flags().String("selector", "", "CSS selector for the links on the start page (default: every <a>)")
	c.Flags().Bool("respect-robots", false, "Skip URLs disallowed by robots.txt")
	c.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// ScrapeResult summarises a scrape run.
type ScrapeResult struct {
	RunID       string         `json:"run_id"`
	StartURL    string         `json:"start_url"`
	OutputDir   string         `json:"output_dir"`
	Links       int            `json:"links"`
	PagesFailed int            `json:"pages_failed"`
	Images      int            `json:"images"`
	Outcomes    map[string]int `json:"outcomes"`
	Saved       []string       `json:"saved"`
	DurationMs  int64          `json:"duration_ms"`
}

// loadScrapeConfig layers explicitly set flags over the config file.
func loadScrapeConfig(cmd *cobra.Command) (config.ScraperConfig, error) {
	cfg, err := config.LoadScraperConfig(mustGetString(cmd, "config"))
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("start-url") {
		cfg.StartURL = mustGetString(cmd, "start-url")
	}
	if flags.Changed("output") {
		cfg.OutputDir = mustGetString(cmd, "output")
	}
	if flags.Changed("min-width") {
		cfg.MinWidth = mustGetInt(cmd, "min-width")
	}
	if flags.Changed("min-height") {
		cfg.MinHeight = mustGetInt(cmd, "min-height")
	}
	if flags.Changed("selector") {
		cfg.LinkSelector = mustGetString(cmd, "selector")
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots = mustGetBool(cmd, "respect-robots")
	}
	return cfg, cfg.Validate()
}

func runScrape(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadScrapeConfig(cmd)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Scraping %s into %s (min %dx%d px)\n", cfg.StartURL, cfg.OutputDir, cfg.MinWidth, cfg.MinHeight)
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Checking images"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
		)
		s.OnResult = func(scraper.Result) { _ = bar.Add(1) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := s.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil && report == nil {
		return err
	}

	result := ScrapeResult{
		RunID:       report.RunID,
		StartURL:    report.StartURL,
		OutputDir:   cfg.OutputDir,
		Links:       report.Links,
		PagesFailed: report.PagesFailed,
		Images:      len(report.Results),
		Outcomes:    make(map[string]int, len(scraper.Outcomes)),
		Saved:       []string{},
		DurationMs:  report.Duration.Milliseconds(),
	}
	for _, o := range scraper.Outcomes {
		result.Outcomes[string(o)] = report.Count(o)
	}
	for _, r := range report.Results {
		if r.Outcome == scraper.OutcomeSaved {
			result.Saved = append(result.Saved, r.Path)
		}
	}

	if jsonOutput {
		if outErr := outputJSON(result); outErr != nil {
			return outErr
		}
		return err
	}

	if err != nil {
		fmt.Println("\nScrape interrupted.")
	} else {
		fmt.Println("\nScrape complete!")
	}
	fmt.Printf("  Run:          %s\n", result.RunID)
	fmt.Printf("  Links:        %d\n", result.Links)
	if result.PagesFailed > 0 {
		fmt.Printf("  Pages failed: %d\n", result.PagesFailed)
	}
	fmt.Printf("  Images:       %d\n", result.Images)
	for _, o := range scraper.Outcomes {
		if n := result.Outcomes[string(o)]; n > 0 {
			fmt.Printf("    %-12s %d\n", o+":", n)
		}
	}
	fmt.Printf("  Duration:     %s\n", formatDuration(report.Duration))
	return err
}
