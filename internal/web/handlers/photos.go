package handlers

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/selfie-finder/internal/photos"
)

// PhotosHandler lists and serves the images in the photo folder.
type PhotosHandler struct {
	dir string
}

// NewPhotosHandler creates a new photos handler for dir.
func NewPhotosHandler(dir string) *PhotosHandler {
	return &PhotosHandler{dir: dir}
}

// List returns every image in the folder.
func (h *PhotosHandler) List(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, photos.List(h.dir))
}

// Serve streams a single file from the folder. Paths leaving the folder,
// directories and missing files are all reported as not found.
func (h *PhotosHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := filepath.FromSlash(chi.URLParam(r, "*"))
	if name == "" || !filepath.IsLocal(name) {
		http.NotFound(w, r)
		return
	}

	f, err := os.OpenInRoot(h.dir, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Failed to open image %s: %v", sanitizeForLog(name), err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
