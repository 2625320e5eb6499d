package facecache

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kozaktomas/selfie-finder/internal/constants"
)

// FileStore keeps the cache in a single gob file: a Metadata header
// followed by the entry list.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Location() string { return s.path }

// Load reads the cache file.
func (s *FileStore) Load() ([]Entry, Metadata, error) {
	var meta Metadata

	f, err := os.Open(s.path) //nolint:gosec // path is from trusted config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, meta, ErrNoCache
		}
		return nil, meta, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(&meta); err != nil {
		return nil, meta, fmt.Errorf("failed to decode cache header: %w", err)
	}
	if err := checkVersion(meta.Version); err != nil {
		return nil, meta, err
	}

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, meta, fmt.Errorf("failed to decode cache entries: %w", err)
	}
	return entries, meta, nil
}

// Save writes the cache to a temporary file and renames it into place.
func (s *FileStore) Save(entries []Entry, meta Metadata) error {
	meta.Version = constants.CacheFormatVersion
	meta.Count = len(entries)
	if entries == nil {
		entries = []Entry{}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	enc := gob.NewEncoder(w)
	err = enc.Encode(meta)
	if err == nil {
		err = enc.Encode(entries)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
