package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/selfie-finder/internal/facecache"
	"github.com/kozaktomas/selfie-finder/internal/faces"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthHandler reports whether face matching is usable.
type HealthHandler struct {
	cache   *facecache.Cache
	encoder faces.Encoder
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cache *facecache.Cache, encoder faces.Encoder) *HealthHandler {
	return &HealthHandler{cache: cache, encoder: encoder}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Faces   bool   `json:"faces"`
	Indexed int    `json:"indexed"`
}

// Get handles the health check endpoint.
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Faces:   h.encoder.Available(),
		Indexed: h.cache.WithFaces(),
	})
}
