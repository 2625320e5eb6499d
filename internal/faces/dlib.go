//go:build dlib

package faces

import (
	"context"
	"errors"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"
)

// DlibEncoder runs the dlib ResNet face recogniser in-process.
type DlibEncoder struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlibEncoder loads the dlib models from modelsDir.
func NewDlibEncoder(modelsDir string) (*DlibEncoder, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: loading dlib models from %s: %w", ErrUnavailable, modelsDir, err)
	}
	return &DlibEncoder{rec: rec}, nil
}

// Encode returns one 128-dimensional descriptor per detected face.
func (e *DlibEncoder) Encode(ctx context.Context, imageData []byte) ([]Encoding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jpg, err := toJPEG(imageData)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return nil, ErrUnavailable
	}

	found, err := e.rec.Recognize(jpg)
	if err != nil {
		var loadErr face.ImageLoadError
		if errors.As(err, &loadErr) {
			return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
		}
		return nil, fmt.Errorf("dlib recognition failed: %w", err)
	}

	encodings := make([]Encoding, 0, len(found))
	for _, f := range found {
		desc := make(Encoding, len(f.Descriptor))
		copy(desc, f.Descriptor[:])
		encodings = append(encodings, desc)
	}
	return encodings, nil
}

func (e *DlibEncoder) Available() bool { return e.rec != nil }

func (e *DlibEncoder) Name() string { return "dlib" }

func (e *DlibEncoder) Metric() Metric { return MetricEuclidean }

func (e *DlibEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
	return nil
}
