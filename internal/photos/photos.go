// Package photos enumerates the image folder served by the face-match service.
package photos

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/selfie-finder/internal/constants"
)

// Photo is a listing entry returned by GET /photos.
type Photo struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Filename string `json:"filename"`
}

// File is an image found in the folder together with the attributes used
// to detect that it changed.
type File struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// IsAllowed reports whether filename has one of the allowed image extensions.
// Matching is case-insensitive and a name without a dot is never allowed.
func IsAllowed(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	return slices.Contains(constants.AllowedImageExtensions, ext)
}

// Scan returns the allowed image files directly inside dir, sorted by name.
// A missing dir yields an error wrapping fs.ErrNotExist. Entries that cannot
// be inspected are logged and skipped.
func Scan(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image folder: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !IsAllowed(name) {
			continue
		}

		path := filepath.Join(dir, name)
		// Stat follows symlinks, entry.Info does not.
		info, err := os.Stat(path)
		if err != nil {
			log.Printf("Skipping %s: %v", name, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, File{
			Name:    name,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// List returns the photo listing for dir. It never fails: a missing folder
// yields an empty list and other errors are logged.
func List(dir string) []Photo {
	files, err := Scan(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Error scanning image folder: %v", err)
		}
		return []Photo{}
	}

	list := make([]Photo, 0, len(files))
	for _, f := range files {
		list = append(list, Photo{
			ID:       f.Name,
			URI:      constants.ImagesRoutePrefix + f.Name,
			Filename: f.Name,
		})
	}
	return list
}
