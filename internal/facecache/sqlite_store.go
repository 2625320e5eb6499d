package facecache

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kozaktomas/selfie-finder/internal/constants"
	"github.com/kozaktomas/selfie-finder/internal/faces"
)

// SQLiteStore keeps the cache in a SQLite database, one row per image.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
// An existing file that cannot be opened as a cache database is moved
// aside to path+".corrupt" and replaced by an empty database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s, err := openSQLiteStore(path)
	if err == nil {
		return s, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	log.Printf("Cache database %s is unreadable, starting a new one: %v", path, err)
	if err := discardDatabase(path); err != nil {
		return nil, err
	}
	return openSQLiteStore(path)
}

// discardDatabase moves the database aside and removes its WAL files.
func discardDatabase(path string) error {
	if err := os.Rename(path, path+".corrupt"); err != nil {
		return fmt.Errorf("failed to move unreadable cache database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path+suffix, err)
		}
	}
	return nil
}

func openSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS encodings (
			filename TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			face_count INTEGER NOT NULL,
			encodings BLOB NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Location() string { return "sqlite:" + s.path }

func (s *SQLiteStore) readMeta() (Metadata, error) {
	var meta Metadata

	rows, err := s.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return meta, fmt.Errorf("failed to read cache metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return meta, fmt.Errorf("failed to read cache metadata: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return meta, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	version, ok := values["version"]
	if !ok {
		return meta, ErrNoCache
	}
	if meta.Version, err = strconv.Atoi(version); err != nil {
		return meta, fmt.Errorf("invalid cache version %q: %w", version, err)
	}
	if bt, ok := values["build_time"]; ok {
		meta.BuildTime, _ = time.Parse(time.RFC3339Nano, bt)
	}
	meta.Encoder = values["encoder"]
	meta.Count, _ = strconv.Atoi(values["count"])
	return meta, nil
}

// Load reads every row of the encodings table.
func (s *SQLiteStore) Load() ([]Entry, Metadata, error) {
	meta, err := s.readMeta()
	if err != nil {
		return nil, meta, err
	}
	if err := checkVersion(meta.Version); err != nil {
		return nil, meta, err
	}

	rows, err := s.db.Query(`SELECT filename, size, mod_time, sha256, encodings FROM encodings ORDER BY filename`)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			modTime int64
			blob    []byte
		)
		if err := rows.Scan(&e.Filename, &e.Size, &modTime, &e.SHA256, &blob); err != nil {
			return nil, meta, fmt.Errorf("failed to scan cache row: %w", err)
		}
		e.ModTime = time.Unix(0, modTime)
		if e.Encodings, err = decodeEncodings(blob); err != nil {
			return nil, meta, fmt.Errorf("failed to decode encodings of %s: %w", e.Filename, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, meta, fmt.Errorf("failed to read cache: %w", err)
	}
	return entries, meta, nil
}

// Save replaces the table contents in a single transaction.
func (s *SQLiteStore) Save(entries []Entry, meta Metadata) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM encodings`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO encodings (filename, size, mod_time, sha256, face_count, encodings) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		blob, encErr := encodeEncodings(e.Encodings)
		if encErr != nil {
			err = fmt.Errorf("failed to encode %s: %w", e.Filename, encErr)
			return err
		}
		if _, err = stmt.Exec(e.Filename, e.Size, e.ModTime.UnixNano(), e.SHA256, len(e.Encodings), blob); err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Filename, err)
		}
	}

	values := map[string]string{
		"version":    strconv.Itoa(constants.CacheFormatVersion),
		"build_time": meta.BuildTime.UTC().Format(time.RFC3339Nano),
		"encoder":    meta.Encoder,
		"count":      strconv.Itoa(len(entries)),
	}
	for k, v := range values {
		if _, err = tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("failed to write cache metadata: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeEncodings(encodings []faces.Encoding) ([]byte, error) {
	if encodings == nil {
		encodings = []faces.Encoding{}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(encodings); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEncodings(blob []byte) ([]faces.Encoding, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty encodings blob")
	}
	var encodings []faces.Encoding
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&encodings); err != nil {
		return nil, err
	}
	return encodings, nil
}
