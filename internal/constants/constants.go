// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultEuclideanTolerance is the maximum Euclidean distance between two
	// dlib face encodings for them to be considered the same person.
	// Lower values = stricter matching
	DefaultEuclideanTolerance = 0.6

	// DefaultCosineTolerance is the maximum cosine distance between two
	// embeddings from the face embedding server
	DefaultCosineTolerance = 0.5

	// CacheFormatVersion is bumped whenever the persisted cache layout changes.
	// A cache written with a different version is treated as unreadable.
	CacheFormatVersion = 2
)

// Image folder constants
var (
	// AllowedImageExtensions are the extensions (lowercase, without dot) the
	// face service indexes, lists and accepts as uploads.
	AllowedImageExtensions = []string{"png", "jpg", "jpeg", "gif"}

	// ScrapeImageExtensions are the URL path suffixes the scraper treats as
	// direct image links.
	ScrapeImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff"}
)

// Scraper constants
const (
	// DefaultStartURL is the link-list page crawled when nothing else is configured
	DefaultStartURL = "https://hack.tum.de/wp-content/uploads/2024/11/"

	// DefaultOutputDir is where qualifying images are written
	DefaultOutputDir = "images_hackatum2024"

	// DefaultMinWidth and DefaultMinHeight are the minimum pixel dimensions
	// an image must meet to be saved
	DefaultMinWidth  = 1000
	DefaultMinHeight = 1000

	// DefaultUserAgent is sent with every scraper request
	DefaultUserAgent = "Mozilla/5.0 (compatible; ImageScraper/1.0)"

	// PageTimeout bounds a single HTML page fetch
	PageTimeout = 15 * time.Second

	// ImageTimeout bounds a single image download
	ImageTimeout = 20 * time.Second

	// MaxDownloadSize caps how many bytes are read from a single response (50MB)
	MaxDownloadSize = 50 << 20
)
