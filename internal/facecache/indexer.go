package facecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/kozaktomas/selfie-finder/internal/faces"
	"github.com/kozaktomas/selfie-finder/internal/photos"
)

// Indexer fills a Cache from the image folder, using the Store to avoid
// re-encoding between runs.
type Indexer struct {
	Cache   *Cache
	Store   Store // optional, nil disables persistence
	Encoder faces.Encoder
	Dir     string

	// Refresh makes Load re-encode added and changed images when the
	// persisted cache is stale. Without it staleness is only reported.
	Refresh bool

	// Progress, if set, is called after every processed image.
	Progress func(done, total int)
}

// NewIndexer creates an indexer for dir.
func NewIndexer(cache *Cache, store Store, encoder faces.Encoder, dir string) *Indexer {
	return &Indexer{
		Cache:   cache,
		Store:   store,
		Encoder: encoder,
		Dir:     dir,
	}
}

// Load fills the cache at startup. It uses the persisted cache when it can
// be read and falls back to a full rebuild otherwise. An unavailable encoder
// or a missing image folder leave the cache empty without an error.
func (ix *Indexer) Load(ctx context.Context) (*Report, error) {
	if !ix.Encoder.Available() {
		log.Printf("Face recognition not available, skipping indexing")
		return &Report{Source: SourceDisabled}, nil
	}

	files, err := photos.Scan(ix.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Error: image folder not found at %s", ix.Dir)
			return &Report{Source: SourceNoFolder}, nil
		}
		return nil, err
	}

	var loadErr error
	if ix.Store != nil {
		entries, meta, err := ix.Store.Load()
		if err == nil && meta.Encoder != "" && meta.Encoder != ix.Encoder.Name() {
			err = fmt.Errorf("%w: %s, now using %s", ErrEncoderMismatch, meta.Encoder, ix.Encoder.Name())
		}
		if err == nil {
			ix.Cache.Replace(entries)
			log.Printf("Loaded %d images from cache %s (built %s)",
				len(entries), ix.Store.Location(), meta.BuildTime.Format(time.RFC3339))

			stale := ix.staleness(files)
			if !stale.IsStale() {
				return &Report{Source: SourceCache, Stale: stale}, nil
			}
			log.Printf("Warning: cache is stale (%d added, %d changed, %d removed)",
				len(stale.Added), len(stale.Changed), len(stale.Removed))
			if ix.Refresh {
				return ix.refresh(ctx, files, stale)
			}
			return &Report{Source: SourceCache, Stale: stale}, nil
		}

		if errors.Is(err, ErrNoCache) {
			log.Printf("No cache found at %s", ix.Store.Location())
		} else {
			log.Printf("Failed to load cache, rebuilding: %v", err)
		}
		loadErr = err
	}

	log.Printf("Indexing faces from %d images... this might take a while.", len(files))
	return ix.rebuild(ctx, files, loadErr)
}

// Rebuild re-encodes every image in the folder and replaces the cache.
func (ix *Indexer) Rebuild(ctx context.Context) (*Report, error) {
	files, err := photos.Scan(ix.Dir)
	if err != nil {
		return nil, err
	}
	return ix.rebuild(ctx, files, nil)
}

// RefreshStale re-encodes added and changed images and drops removed ones.
func (ix *Indexer) RefreshStale(ctx context.Context) (*Report, error) {
	files, err := photos.Scan(ix.Dir)
	if err != nil {
		return nil, err
	}
	return ix.refresh(ctx, files, ix.staleness(files))
}

// Stale compares the cache with the current folder contents.
func (ix *Indexer) Stale() (Staleness, error) {
	files, err := photos.Scan(ix.Dir)
	if err != nil {
		return Staleness{}, err
	}
	return ix.staleness(files), nil
}

func (ix *Indexer) rebuild(ctx context.Context, files []photos.File, loadErr error) (*Report, error) {
	start := time.Now()
	report := &Report{Source: SourceRebuild, LoadErr: loadErr}

	entries := make([]Entry, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry, res := ix.encodeFile(ctx, f)
		if errors.Is(res.Err, faces.ErrUnavailable) {
			// Persisting now would store an empty cache as if it were valid.
			return report, fmt.Errorf("indexing aborted at %s: %w", f.Name, res.Err)
		}
		report.Results = append(report.Results, res)
		if res.Outcome != OutcomeError {
			entries = append(entries, entry)
		}
		ix.progress(i+1, len(files))
	}

	ix.Cache.Replace(entries)
	report.Duration = time.Since(start)
	log.Printf("Indexed %d images with faces (%d without faces, %d failed) in %s",
		report.Count(OutcomeIndexed), report.Count(OutcomeNoFace), report.Count(OutcomeError),
		report.Duration.Round(time.Millisecond))

	report.SaveErr = ix.persist()
	return report, nil
}

func (ix *Indexer) refresh(ctx context.Context, files []photos.File, stale Staleness) (*Report, error) {
	start := time.Now()
	report := &Report{Source: SourceRefresh, Stale: stale}

	byName := make(map[string]photos.File, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}

	todo := make([]string, 0, len(stale.Added)+len(stale.Changed))
	todo = append(todo, stale.Added...)
	todo = append(todo, stale.Changed...)

	for i, name := range todo {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry, res := ix.encodeFile(ctx, byName[name])
		if errors.Is(res.Err, faces.ErrUnavailable) {
			return report, fmt.Errorf("refresh aborted at %s: %w", name, res.Err)
		}
		report.Results = append(report.Results, res)
		if res.Outcome == OutcomeError {
			// Encodings of a changed file no longer describe it.
			ix.Cache.Delete(name)
		} else {
			ix.Cache.Set(entry)
		}
		ix.progress(i+1, len(todo))
	}

	for _, name := range stale.Removed {
		ix.Cache.Delete(name)
		report.Results = append(report.Results, Result{Filename: name, Outcome: OutcomeRemoved})
	}

	report.Duration = time.Since(start)
	log.Printf("Refreshed cache: %d re-encoded, %d removed in %s",
		len(todo), len(stale.Removed), report.Duration.Round(time.Millisecond))

	if stale.IsStale() {
		report.SaveErr = ix.persist()
	}
	return report, nil
}

// encodeFile reads and encodes a single image. Failures are reported in the
// result, never returned.
func (ix *Indexer) encodeFile(ctx context.Context, f photos.File) (Entry, Result) {
	res := Result{Filename: f.Name}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		log.Printf("Could not read %s: %v", f.Name, err)
		res.Outcome, res.Err = OutcomeError, err
		return Entry{}, res
	}

	encodings, err := ix.Encoder.Encode(ctx, data)
	if err != nil {
		log.Printf("Could not process %s: %v", f.Name, err)
		res.Outcome, res.Err = OutcomeError, err
		return Entry{}, res
	}

	sum := sha256.Sum256(data)
	entry := Entry{
		Filename:  f.Name,
		Size:      f.Size,
		ModTime:   f.ModTime,
		SHA256:    hex.EncodeToString(sum[:]),
		Encodings: encodings,
	}

	res.Faces = len(encodings)
	if res.Faces > 0 {
		res.Outcome = OutcomeIndexed
	} else {
		res.Outcome = OutcomeNoFace
	}
	return entry, res
}

// staleness compares cache entries with files. Size and modification time
// are checked first; the content hash decides when only the time moved.
func (ix *Indexer) staleness(files []photos.File) Staleness {
	var s Staleness
	seen := make(map[string]struct{}, len(files))

	for _, f := range files {
		seen[f.Name] = struct{}{}

		e, ok := ix.Cache.Get(f.Name)
		if !ok {
			s.Added = append(s.Added, f.Name)
			continue
		}
		if e.Size == f.Size && e.ModTime.Equal(f.ModTime) {
			continue
		}
		if e.Size == f.Size && e.SHA256 != "" {
			if sum, err := fileSHA256(f.Path); err == nil && sum == e.SHA256 {
				continue
			}
		}
		s.Changed = append(s.Changed, f.Name)
	}

	for _, e := range ix.Cache.Entries() {
		if _, ok := seen[e.Filename]; !ok {
			s.Removed = append(s.Removed, e.Filename)
		}
	}
	return s
}

func (ix *Indexer) persist() error {
	if ix.Store == nil {
		return nil
	}

	meta := Metadata{BuildTime: time.Now(), Encoder: ix.Encoder.Name()}
	if err := ix.Store.Save(ix.Cache.Entries(), meta); err != nil {
		log.Printf("Could not save cache: %v", err)
		return err
	}
	log.Printf("Saved encodings to cache %s", ix.Store.Location())
	return nil
}

func (ix *Indexer) progress(done, total int) {
	if ix.Progress != nil {
		ix.Progress(done, total)
	}
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the image folder scan
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
