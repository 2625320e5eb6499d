package facecache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/selfie-finder/internal/faces"
)

func sampleEntries() []Entry {
	mod := time.Date(2024, 11, 23, 10, 0, 0, 0, time.UTC)
	return []Entry{
		{Filename: "b.jpg", Size: 10, ModTime: mod, SHA256: "bb", Encodings: []faces.Encoding{{1, 1}, {0, 0}}},
		{Filename: "a.jpg", Size: 20, ModTime: mod, SHA256: "aa", Encodings: []faces.Encoding{{0.1, 0}}},
		{Filename: "empty.png", Size: 5, ModTime: mod, SHA256: "ee"},
		{Filename: "far.jpg", Size: 7, ModTime: mod, SHA256: "ff", Encodings: []faces.Encoding{{9, 9}}},
	}
}

func TestCache_Match(t *testing.T) {
	c := New()
	c.Replace(sampleEntries())

	matches := c.Match(faces.Encoding{0, 0}, faces.MetricEuclidean, 0.6)

	expected := []string{"a.jpg", "b.jpg"}
	if len(matches) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, matches)
	}
	for i := range expected {
		if matches[i] != expected[i] {
			t.Errorf("match %d: expected %s, got %s", i, expected[i], matches[i])
		}
	}
}

func TestCache_MatchEmpty(t *testing.T) {
	matches := New().Match(faces.Encoding{0, 0}, faces.MetricEuclidean, 0.6)
	if matches == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
}

func TestCache_Counts(t *testing.T) {
	c := New()
	c.Replace(sampleEntries())

	if c.Len() != 4 {
		t.Errorf("expected 4 entries, got %d", c.Len())
	}
	if c.WithFaces() != 3 {
		t.Errorf("expected 3 entries with faces, got %d", c.WithFaces())
	}

	c.Delete("far.jpg")
	c.Set(Entry{Filename: "new.gif"})
	if c.Len() != 4 {
		t.Errorf("expected 4 entries after delete+set, got %d", c.Len())
	}
	if _, ok := c.Get("far.jpg"); ok {
		t.Error("expected far.jpg to be deleted")
	}

	entries := c.Entries()
	if entries[0].Filename != "a.jpg" || entries[len(entries)-1].Filename != "new.gif" {
		t.Errorf("expected entries sorted by filename, got %v", entries)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.gob")
	store := NewFileStore(path)

	built := time.Now().Truncate(time.Second)
	if err := store.Save(sampleEntries(), Metadata{BuildTime: built, Encoder: "fake"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, meta, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if meta.Encoder != "fake" || meta.Count != 4 || !meta.BuildTime.Equal(built) {
		t.Errorf("unexpected metadata %+v", meta)
	}

	c := New()
	c.Replace(entries)
	b, _ := c.Get("b.jpg")
	if len(b.Encodings) != 2 || b.Encodings[0][0] != 1 {
		t.Errorf("encodings not preserved: %+v", b)
	}
	if !b.ModTime.Equal(time.Date(2024, 11, 23, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("mod time not preserved: %v", b.ModTime)
	}
}

func TestFileStore_Missing(t *testing.T) {
	_, _, err := NewFileStore(filepath.Join(t.TempDir(), "none.gob")).Load()
	if !errors.Is(err, ErrNoCache) {
		t.Errorf("expected ErrNoCache, got %v", err)
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.gob")
	if err := os.WriteFile(path, []byte("this is not gob"), 0600); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	_, _, err := NewFileStore(path).Load()
	if err == nil {
		t.Fatal("expected error for corrupt cache")
	}
	if errors.Is(err, ErrNoCache) {
		t.Error("corrupt cache must not be reported as missing")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, _, err := store.Load(); !errors.Is(err, ErrNoCache) {
		t.Fatalf("expected ErrNoCache on fresh database, got %v", err)
	}

	if err := store.Save(sampleEntries(), Metadata{BuildTime: time.Now(), Encoder: "fake"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Saving again replaces rather than appends
	if err := store.Save(sampleEntries()[:2], Metadata{BuildTime: time.Now(), Encoder: "fake"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	entries, meta, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Filename != "a.jpg" {
		t.Errorf("expected rows ordered by filename, got %s first", entries[0].Filename)
	}
	if meta.Count != 2 || meta.Encoder != "fake" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if len(entries[1].Encodings) != 2 {
		t.Errorf("expected 2 encodings for b.jpg, got %d", len(entries[1].Encodings))
	}
}

func TestSQLiteStore_VersionMismatch(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Save(sampleEntries(), Metadata{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.db.Exec(`UPDATE meta SET value = '1' WHERE key = 'version'`); err != nil {
		t.Fatalf("failed to downgrade version: %v", err)
	}

	if _, _, err := store.Load(); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestSQLiteStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	garbage := bytes.Repeat([]byte("not a sqlite database "), 200)
	if err := os.WriteFile(path, garbage, 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("expected an unreadable database to be replaced, got %v", err)
	}
	defer store.Close()

	if _, _, err := store.Load(); !errors.Is(err, ErrNoCache) {
		t.Errorf("expected ErrNoCache from the new database, got %v", err)
	}
	moved, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("expected the unreadable file to be kept aside: %v", err)
	}
	if !bytes.Equal(moved, garbage) {
		t.Error("expected the moved file to keep its content")
	}

	if err := store.Save(sampleEntries(), Metadata{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if entries, _, err := store.Load(); err != nil || len(entries) != 4 {
		t.Errorf("expected 4 entries after save, got %d (%v)", len(entries), err)
	}
}
