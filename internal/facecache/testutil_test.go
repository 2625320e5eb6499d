package facecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kozaktomas/selfie-finder/internal/faces"
)

// fakeEncoder returns encodings keyed by the exact file content.
// Unknown content has no faces.
type fakeEncoder struct {
	mu        sync.Mutex
	name      string
	byContent map[string][]faces.Encoding
	failOn    map[string]error
	calls     int
	available bool
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{
		name:      "fake",
		byContent: make(map[string][]faces.Encoding),
		failOn:    make(map[string]error),
		available: true,
	}
}

func (f *fakeEncoder) Encode(_ context.Context, data []byte) ([]faces.Encoding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failOn[string(data)]; ok {
		return nil, err
	}
	return f.byContent[string(data)], nil
}

func (f *fakeEncoder) Available() bool { return f.available }
func (f *fakeEncoder) Name() string    { return f.name }
func (f *fakeEncoder) Close() error    { return nil }

func (f *fakeEncoder) Metric() faces.Metric { return faces.MetricEuclidean }

func (f *fakeEncoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingStore always fails to save.
type failingStore struct{ *FileStore }

func (s *failingStore) Save([]Entry, Metadata) error { return errors.New("disk full") }

func writeImage(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
