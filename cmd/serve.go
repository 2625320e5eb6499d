package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/selfie-finder/internal/config"
	"github.com/kozaktomas/selfie-finder/internal/facecache"
	"github.com/kozaktomas/selfie-finder/internal/faces"
	"github.com/kozaktomas/selfie-finder/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the face-match server",
	Long: `Start the face-match HTTP server.

On startup the face encodings of the image folder are loaded from the cache,
or computed and cached when no usable cache exists. The server then answers:

  GET  /photos        list of images in the folder
  GET  /images/<name> a single image
  POST /find_me       multipart "file" selfie, returns matching images
  GET  /health        service status`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 5000, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("images", "", "Image folder (overrides IMAGE_FOLDER)")
}

// applyServeFlags overrides environment configuration with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("images") {
		cfg.Photos.Dir = mustGetString(cmd, "images")
	}
}

// openIndex creates the encoder, store and indexer described by cfg.
// The returned cleanup closes what was opened.
func openIndex(cfg *config.Config) (*facecache.Indexer, func(), error) {
	encoder, err := faces.New(&cfg.Faces)
	if err != nil {
		fmt.Printf("Warning: face recognition not available: %v\n", err)
	}

	store, err := facecache.NewStore(&cfg.Cache)
	if err != nil {
		_ = encoder.Close()
		return nil, nil, fmt.Errorf("opening face cache: %w", err)
	}

	ix := facecache.NewIndexer(facecache.New(), store, encoder, cfg.Photos.Dir)
	ix.Refresh = cfg.Cache.Refresh

	cleanup := func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: closing face cache: %v\n", err)
		}
		_ = encoder.Close()
	}
	return ix, cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	ix, cleanup, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("--- FACE RECOGNITION SERVER ---")
	fmt.Printf("Serving images from: %s\n", cfg.Photos.Dir)
	fmt.Printf("Cache: %s\n", ix.Store.Location())
	fmt.Printf("Face recognition: %s\n", ix.Encoder.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := ix.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Printf("Warning: indexing failed, matching against an empty index: %v\n", err)
	}

	server := web.NewServer(cfg, ix.Cache, ix.Encoder)

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Selfie Finder on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
