// Package facecache holds the face encodings of the image folder, persists
// them between runs and keeps them in step with the folder contents.
package facecache

import (
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/selfie-finder/internal/faces"
)

// Entry is the cached state of one image. Encodings is empty when the image
// was processed but contained no face.
type Entry struct {
	Filename  string
	Size      int64
	ModTime   time.Time
	SHA256    string
	Encodings []faces.Encoding
}

// HasFaces reports whether at least one face was found in the image.
func (e *Entry) HasFaces() bool {
	return len(e.Encodings) > 0
}

// Cache maps image filenames to their face encodings.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Replace swaps the cache contents for entries.
func (c *Cache) Replace(entries []Entry) {
	m := make(map[string]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		m[e.Filename] = &e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = m
}

// Set adds or replaces a single entry.
func (c *Cache) Set(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Filename] = &e
}

// Delete removes the entry for filename.
func (c *Cache) Delete(filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, filename)
}

// Get returns a copy of the entry for filename.
func (c *Cache) Get(filename string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[filename]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of cached images, including those without faces.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WithFaces returns the number of cached images containing at least one face.
func (c *Cache) WithFaces() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.HasFaces() {
			n++
		}
	}
	return n
}

// Entries returns a snapshot of every entry sorted by filename.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// Match returns, sorted, the filenames with at least one encoding within
// tolerance of candidate under metric. Every entry is compared.
func (c *Cache) Match(candidate faces.Encoding, metric faces.Metric, tolerance float64) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := []string{}
	for name, e := range c.entries {
		if metric.AnyMatch(e.Encodings, candidate, tolerance) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}
