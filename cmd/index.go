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
	"github.com/kozaktomas/selfie-finder/internal/facecache"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or update the face encoding cache",
	Long: `Build or update the face encoding cache without starting the server.

By default the cache is used as is when it can be read; a stale cache is only
reported. Use --refresh to re-encode added and changed images, or --rebuild
to encode every image again.

Examples:
  # Report the cache state, building it if missing
  selfie-finder index

  # Bring a stale cache up to date
  selfie-finder index --refresh

  # JSON output for scripting
  selfie-finder index --rebuild --json`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Bool("refresh", false, "Re-encode added and changed images")
	indexCmd.Flags().Bool("rebuild", false, "Encode every image, ignoring the cache")
	indexCmd.Flags().String("images", "", "Image folder (overrides IMAGE_FOLDER)")
	indexCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// IndexResult summarises an index run.
type IndexResult struct {
	Source     string `json:"source"`
	Images     int    `json:"images"`
	WithFaces  int    `json:"with_faces"`
	Indexed    int    `json:"indexed"`
	NoFace     int    `json:"no_face"`
	Errors     int    `json:"errors"`
	Removed    int    `json:"removed"`
	Added      int    `json:"stale_added"`
	Changed    int    `json:"stale_changed"`
	Missing    int    `json:"stale_removed"`
	SaveError  string `json:"save_error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func newIndexResult(ix *facecache.Indexer, report *facecache.Report) IndexResult {
	result := IndexResult{
		Source:     string(report.Source),
		Images:     ix.Cache.Len(),
		WithFaces:  ix.Cache.WithFaces(),
		Indexed:    report.Count(facecache.OutcomeIndexed),
		NoFace:     report.Count(facecache.OutcomeNoFace),
		Errors:     report.Count(facecache.OutcomeError),
		Removed:    report.Count(facecache.OutcomeRemoved),
		Added:      len(report.Stale.Added),
		Changed:    len(report.Stale.Changed),
		Missing:    len(report.Stale.Removed),
		DurationMs: report.Duration.Milliseconds(),
	}
	if report.SaveErr != nil {
		result.SaveError = report.SaveErr.Error()
	}
	return result
}

func runIndex(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	rebuild := mustGetBool(cmd, "rebuild")

	cfg := config.Load()
	if cmd.Flags().Changed("images") {
		cfg.Photos.Dir = mustGetString(cmd, "images")
	}
	if mustGetBool(cmd, "refresh") {
		cfg.Cache.Refresh = true
	}

	ix, cleanup, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if !ix.Encoder.Available() {
		return fmt.Errorf("face recognition not available (FACE_BACKEND=%s)", cfg.Faces.Backend)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Indexing %s into %s\n", cfg.Photos.Dir, ix.Store.Location())
		ix.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Encoding faces"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("images"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
				)
			}
			_ = bar.Set(done)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *facecache.Report
	if rebuild {
		report, err = ix.Rebuild(ctx)
	} else {
		report, err = ix.Load(ctx)
	}
	if bar != nil {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	result := newIndexResult(ix, report)
	if jsonOutput {
		return outputJSON(result)
	}
	printIndexResult(result)
	return nil
}

func printIndexResult(r IndexResult) {
	switch facecache.Source(r.Source) {
	case facecache.SourceNoFolder:
		fmt.Println("Image folder not found, nothing indexed.")
		return
	case facecache.SourceCache:
		fmt.Println("\nCache loaded.")
	case facecache.SourceRefresh:
		fmt.Println("\nCache refreshed!")
	default:
		fmt.Println("\nIndex complete!")
	}

	fmt.Printf("  Images:      %d\n", r.Images)
	fmt.Printf("  With faces:  %d\n", r.WithFaces)
	if r.Indexed+r.NoFace+r.Errors > 0 {
		fmt.Printf("  Encoded:     %d (%d without faces)\n", r.Indexed+r.NoFace, r.NoFace)
	}
	if r.Errors > 0 {
		fmt.Printf("  Errors:      %d\n", r.Errors)
	}
	if r.Removed > 0 {
		fmt.Printf("  Removed:     %d\n", r.Removed)
	}
	if facecache.Source(r.Source) == facecache.SourceCache && r.Added+r.Changed+r.Missing > 0 {
		fmt.Printf("  Stale:       %d added, %d changed, %d removed (run with --refresh)\n",
			r.Added, r.Changed, r.Missing)
	}
	if r.SaveError != "" {
		fmt.Printf("  Warning: cache not saved: %s\n", r.SaveError)
	}
}
