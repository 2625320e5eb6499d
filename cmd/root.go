package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "selfie-finder",
	Short: "Find yourself in event photos with a selfie",
	Long: `Selfie Finder indexes the faces in a folder of event photos and serves
a small HTTP API that returns every photo containing the person in an
uploaded selfie. It also ships a scraper that collects the large photos
linked from an event's link-list page.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
