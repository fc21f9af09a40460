package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the durable cache. It holds raw provider payloads plus an
// optional normalized rendering, keyed exactly by Key. Writes go
// through a single-connection writer so concurrent workers cannot
// interleave partial rows; a put is atomic per key and last-writer-wins.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// Entry is one cached payload. Normalized is nil when only the raw
// payload was stored; normalizing again is a pure function of Raw.
type Entry struct {
	Key        Key
	Raw        []byte
	Normalized []byte
	TTLClass   TTLClass
	FetchedAt  time.Time
}

// Open creates or opens the cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			provider    TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			data_type   TEXT NOT NULL,
			time_range  TEXT NOT NULL,
			params_hash TEXT NOT NULL,
			raw_payload BLOB NOT NULL,
			normalized  BLOB,
			ttl_class   TEXT NOT NULL,
			fetched_at  DATETIME NOT NULL,
			PRIMARY KEY (provider, ticker, data_type, time_range, params_hash)
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errsList []error
	if s.readDB != nil {
		errsList = append(errsList, s.readDB.Close())
	}
	if s.writeDB != nil {
		errsList = append(errsList, s.writeDB.Close())
	}
	for _, e := range errsList {
		if e != nil {
			return e
		}
	}
	return nil
}

// Get returns the entry for key, or (nil, nil) when absent.
func (s *Store) Get(key Key) (*Entry, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	row := s.readDB.QueryRow(`
		SELECT raw_payload, normalized, ttl_class, fetched_at
		FROM entries
		WHERE provider = ? AND ticker = ? AND data_type = ? AND time_range = ? AND params_hash = ?
	`, key.Provider, key.Ticker, string(key.DataType), key.TimeRange, key.ParamsHash)

	e := &Entry{Key: key}
	var ttlClass string
	err := row.Scan(&e.Raw, &e.Normalized, &ttlClass, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	e.TTLClass = TTLClass(ttlClass)
	return e, nil
}

// Put stores an entry, replacing any previous value for the same key.
// Raw is required; normalized may be nil and derived lazily later.
func (s *Store) Put(key Key, raw, normalized []byte, ttlClass TTLClass, fetchedAt time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("refusing to cache empty payload for %s", key)
	}
	_, err := s.writeDB.Exec(`
		INSERT OR REPLACE INTO entries
			(provider, ticker, data_type, time_range, params_hash, raw_payload, normalized, ttl_class, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, key.Provider, key.Ticker, string(key.DataType), key.TimeRange, key.ParamsHash,
		raw, normalized, string(ttlClass), fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

// SetNormalized backfills the normalized rendering of an existing
// entry without touching the raw payload or its freshness.
func (s *Store) SetNormalized(key Key, normalized []byte) error {
	_, err := s.writeDB.Exec(`
		UPDATE entries SET normalized = ?
		WHERE provider = ? AND ticker = ? AND data_type = ? AND time_range = ? AND params_hash = ?
	`, normalized, key.Provider, key.Ticker, string(key.DataType), key.TimeRange, key.ParamsHash)
	if err != nil {
		return fmt.Errorf("updating cache entry %s: %w", key, err)
	}
	return nil
}

// Has reports whether any entry exists for key, fresh or stale.
func (s *Store) Has(key Key) (bool, error) {
	e, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}
