// Package faces wraps the external face recognisers behind a small Encoder
// interface and provides the distance/tolerance comparison used for matching.
package faces

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/selfie-finder/internal/config"
	"github.com/kozaktomas/selfie-finder/internal/constants"
)

var (
	// ErrUnavailable is returned when no face recogniser can be reached.
	ErrUnavailable = errors.New("face recognition not available")
	// ErrUndecodable is returned when the input is not a readable image.
	ErrUndecodable = errors.New("image could not be decoded")
)

// Encoding is a fixed-length face descriptor produced by a recogniser.
type Encoding []float32

// Encoder detects faces in an image and returns one encoding per face.
type Encoder interface {
	// Encode returns the encodings of every face found in imageData.
	// A picture without faces yields an empty slice and no error.
	Encode(ctx context.Context, imageData []byte) ([]Encoding, error)
	// Available reports whether Encode can be expected to work at all.
	Available() bool
	// Name identifies the backend. Encodings from different backends are
	// not comparable.
	Name() string
	// Metric is the distance the backend's encodings are compared with.
	Metric() Metric
	Close() error
}

// New creates the encoder selected by cfg.Backend.
// A backend that cannot be initialised yields an unavailable encoder and the reason.
func New(cfg *config.FacesConfig) (Encoder, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		return NewHTTPEncoder(cfg.EncoderURL), nil
	case config.BackendDlib:
		enc, err := NewDlibEncoder(cfg.ModelsDir)
		if err != nil {
			return Unavailable{}, err
		}
		return enc, nil
	case config.BackendNone, "":
		return Unavailable{}, nil
	default:
		return Unavailable{}, fmt.Errorf("unknown face backend %q", cfg.Backend)
	}
}

// Metric names how two encodings are compared. Smaller is more similar.
type Metric string

const (
	// MetricEuclidean is the dlib/face_recognition distance.
	MetricEuclidean Metric = "euclidean"
	// MetricCosine is used for the normalised embeddings of the HTTP server.
	MetricCosine Metric = "cosine"
)

// Distance returns the distance between a and b under m.
func (m Metric) Distance(a, b Encoding) float64 {
	if m == MetricCosine {
		return CosineDistance(a, b)
	}
	return Distance(a, b)
}

// DefaultTolerance returns the match threshold used when none is configured.
func (m Metric) DefaultTolerance() float64 {
	if m == MetricCosine {
		return constants.DefaultCosineTolerance
	}
	return constants.DefaultEuclideanTolerance
}

// AnyMatch returns true if at least one known encoding is within tolerance
// of the candidate under m.
func (m Metric) AnyMatch(known []Encoding, candidate Encoding, tolerance float64) bool {
	for _, k := range known {
		if m.Distance(k, candidate) <= tolerance {
			return true
		}
	}
	return false
}

// CosineDistance returns 1 - cosine similarity, between 0 (identical) and
// 2 (opposite). Invalid or zero vectors are at distance 2.
func CosineDistance(a, b Encoding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point error
	similarity = max(-1, min(1, similarity))
	return 1 - similarity
}

// Distance returns the Euclidean distance between two encodings.
// Encodings of different length are infinitely far apart.
func Distance(a, b Encoding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CompareFaces reports, for every known encoding, whether it is within
// tolerance of the candidate.
func CompareFaces(known []Encoding, candidate Encoding, tolerance float64) []bool {
	results := make([]bool, len(known))
	for i, k := range known {
		results[i] = Distance(k, candidate) <= tolerance
	}
	return results
}

// AnyMatch returns true if at least one known encoding is within Euclidean
// tolerance of the candidate.
func AnyMatch(known []Encoding, candidate Encoding, tolerance float64) bool {
	return MetricEuclidean.AnyMatch(known, candidate, tolerance)
}

// Unavailable is the encoder used when no recogniser is configured.
type Unavailable struct{}

func (Unavailable) Encode(context.Context, []byte) ([]Encoding, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Available() bool { return false }

func (Unavailable) Name() string { return "none" }

func (Unavailable) Metric() Metric { return MetricEuclidean }

func (Unavailable) Close() error { return nil }
