package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
)

var errUnsupportedURL = errors.New("unsupported image URL")

// DownloadImage fetches imgURL and saves it to the output folder when it is
// large enough. The folder is only created once an image qualifies.
func (s *Scraper) DownloadImage(ctx context.Context, imgURL, pageURL string, index int) Result {
	res := Result{Index: index, URL: imgURL, PageURL: pageURL}
	log.Printf("Checking image: %s", imgURL)

	if u, err := url.Parse(imgURL); err != nil || !isHTTP(u) {
		err = fmt.Errorf("%w: %.40s", errUnsupportedURL, imgURL)
		log.Printf("Failed to download image: %v", err)
		res.Outcome, res.Err = OutcomeFetchFailed, err
		return res
	}

	if s.robots != nil && !s.robots.Allowed(ctx, imgURL) {
		log.Printf("Skipping %s: %v", imgURL, errBlocked)
		res.Outcome, res.Err = OutcomeBlocked, errBlocked
		return res
	}

	data, err := s.fetch(ctx, imgURL, s.cfg.ImageTimeout)
	if err != nil {
		log.Printf("Failed to download image %s: %v", imgURL, err)
		res.Outcome, res.Err = OutcomeFetchFailed, err
		return res
	}

	w, h, ok, err := ImageIsBigEnough(data, s.cfg.MinWidth, s.cfg.MinHeight)
	if err != nil {
		log.Printf("Error reading image %s: %v", imgURL, err)
		res.Outcome, res.Err = OutcomeDecodeFailed, err
		return res
	}
	res.Width, res.Height = w, h
	if !ok {
		log.Printf("Size: %dx%d px | too small", w, h)
		res.Outcome = OutcomeTooSmall
		return res
	}
	log.Printf("Size: %dx%d px | OK", w, h)

	path := filepath.Join(s.cfg.OutputDir, BuildFilename(imgURL, pageURL, index))
	if err := writeFile(path, data); err != nil {
		log.Printf("Error saving image %s: %v", path, err)
		res.Outcome, res.Err = OutcomeWriteFailed, err
		return res
	}

	log.Printf("Saved as: %s", path)
	res.Outcome, res.Path = OutcomeSaved, path
	return res
}

// writeFile writes data next to path and renames it into place so a partly
// written image never appears under its final name.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil { //nolint:gosec // images are meant to be readable
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename image: %w", err)
	}
	return nil
}
