package facecache

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/selfie-finder/internal/config"
	"github.com/kozaktomas/selfie-finder/internal/constants"
)

var (
	// ErrNoCache is returned by a store that has nothing persisted yet.
	ErrNoCache = errors.New("no cache persisted")
	// ErrVersionMismatch is returned when the persisted cache was written
	// by an incompatible version.
	ErrVersionMismatch = errors.New("cache format version mismatch")
	// ErrEncoderMismatch is returned when the persisted encodings were
	// produced by a different face recogniser.
	ErrEncoderMismatch = errors.New("cache built by a different encoder")
)

// Metadata describes a persisted cache.
type Metadata struct {
	Version   int
	BuildTime time.Time
	Encoder   string
	Count     int
}

// Store persists cache entries between runs.
type Store interface {
	// Load returns every persisted entry. A missing cache yields ErrNoCache,
	// an incompatible one ErrVersionMismatch.
	Load() ([]Entry, Metadata, error)
	// Save replaces the persisted cache with entries.
	Save(entries []Entry, meta Metadata) error
	// Location describes where the cache lives, for logs.
	Location() string
	Close() error
}

// NewStore opens the store selected by cfg.Backend.
func NewStore(cfg *config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheFile, "":
		return NewFileStore(cfg.Path), nil
	case config.CacheSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func checkVersion(version int) error {
	if version != constants.CacheFormatVersion {
		return fmt.Errorf("%w: found %d, want %d", ErrVersionMismatch, version, constants.CacheFormatVersion)
	}
	return nil
}
