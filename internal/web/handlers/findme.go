package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/kozaktomas/selfie-finder/internal/constants"
	"github.com/kozaktomas/selfie-finder/internal/facecache"
	"github.com/kozaktomas/selfie-finder/internal/faces"
	"github.com/kozaktomas/selfie-finder/internal/photos"
)

const msgUnavailable = "Face recognition not available (library missing)."

// FindMeHandler matches an uploaded selfie against the indexed photos.
type FindMeHandler struct {
	cache     *facecache.Cache
	encoder   faces.Encoder
	tolerance float64
}

// NewFindMeHandler creates a new find-me handler. A tolerance <= 0 uses the
// default of the encoder's metric.
func NewFindMeHandler(cache *facecache.Cache, encoder faces.Encoder, tolerance float64) *FindMeHandler {
	if tolerance <= 0 {
		tolerance = encoder.Metric().DefaultTolerance()
	}
	return &FindMeHandler{
		cache:     cache,
		encoder:   encoder,
		tolerance: tolerance,
	}
}

// FindMeResponse is the body of a successful POST /find_me.
type FindMeResponse struct {
	Message string   `json:"message"`
	Matches []string `json:"matches"`
}

// Find handles POST /find_me with the selfie in the multipart field "file".
func (h *FindMeHandler) Find(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	upload, err := readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(w, http.StatusBadRequest, "No file part")
		return
	}

	if upload.filename == "" {
		respondError(w, http.StatusBadRequest, "No selected file")
		return
	}

	if !h.encoder.Available() {
		respondUnavailable(w)
		return
	}

	if !photos.IsAllowed(upload.filename) {
		respondError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	encodings, err := h.encoder.Encode(r.Context(), upload.data)
	if err != nil {
		switch {
		case errors.Is(err, faces.ErrUnavailable):
			log.Printf("Face recognition failed: %v", err)
			respondUnavailable(w)
		case errors.Is(err, faces.ErrUndecodable):
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to process image: %v", err))
		default:
			log.Printf("Failed to process %s: %v", sanitizeForLog(upload.filename), err)
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process image: %v", err))
		}
		return
	}

	if len(encodings) == 0 {
		respondJSON(w, http.StatusOK, FindMeResponse{
			Message: "No face found in the selfie.",
			Matches: []string{},
		})
		return
	}

	log.Printf("Comparing selfie against %d images...", h.cache.WithFaces())
	matches := h.cache.Match(encodings[0], h.encoder.Metric(), h.tolerance)

	respondJSON(w, http.StatusOK, FindMeResponse{
		Message: fmt.Sprintf("Found %d matches.", len(matches)),
		Matches: matches,
	})
}

var errNoFilePart = errors.New("no file part")

type selfieUpload struct {
	filename string
	data     []byte
}

// readUpload returns the first "file" part that carries a filename
// parameter, which may be empty. Parts without one are plain form values.
func readUpload(r *http.Request) (*selfieUpload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}

		if part.FormName() != "file" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, err
			}
			continue
		}
		_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		if err != nil {
			return nil, err
		}
		filename, ok := params["filename"]
		if !ok {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, err
			}
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("reading upload: %w", err)
		}
		if filename != "" {
			filename = filepath.Base(filename)
		}
		return &selfieUpload{filename: filename, data: data}, nil
	}
}

func respondUnavailable(w http.ResponseWriter) {
	respondJSON(w, http.StatusServiceUnavailable, FindMeResponse{
		Message: msgUnavailable,
		Matches: []string{},
	})
}
