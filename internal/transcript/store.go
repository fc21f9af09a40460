package transcript

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists transcripts keyed by URL. Same single-writer layout
// as the payload cache: one write connection, so concurrent scrapes
// cannot interleave partial rows.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating transcript dir: %w", err)
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
		CREATE TABLE IF NOT EXISTS transcripts (
			url          TEXT PRIMARY KEY,
			symbol       TEXT,
			company      TEXT,
			title        TEXT,
			quarter      TEXT,
			event_date   TEXT,
			published_at TEXT,
			speakers     TEXT,
			sections     TEXT,
			full_text    TEXT,
			raw_html     TEXT,
			created_at   DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing transcript schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var firstErr error
	for _, db := range []*sql.DB{s.readDB, s.writeDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Get returns the stored transcript for url, or (nil, nil) when absent.
func (s *Store) Get(url string) (*Transcript, error) {
	row := s.readDB.QueryRow(`
		SELECT symbol, company, title, quarter, event_date, published_at,
		       speakers, sections, full_text, raw_html
		FROM transcripts WHERE url = ?
	`, url)

	t := &Transcript{Provider: "yahoo", URL: url}
	var publishedAt, speakers, sections string
	err := row.Scan(&t.Symbol, &t.Company, &t.Title, &t.Quarter, &t.EventDate,
		&publishedAt, &speakers, &sections, &t.FullText, &t.RawHTML)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading transcript %s: %w", url, err)
	}

	if publishedAt != "" {
		if ts, perr := time.Parse(time.RFC3339, publishedAt); perr == nil {
			t.PublishedAt = ts
		}
	}
	if speakers != "" {
		if err := json.Unmarshal([]byte(speakers), &t.Speakers); err != nil {
			return nil, fmt.Errorf("decoding speakers for %s: %w", url, err)
		}
	}
	if sections != "" {
		if err := json.Unmarshal([]byte(sections), &t.Sections); err != nil {
			return nil, fmt.Errorf("decoding sections for %s: %w", url, err)
		}
	}
	return t, nil
}

// Upsert inserts or replaces the transcript for its URL.
func (s *Store) Upsert(t *Transcript) error {
	if t.URL == "" {
		return fmt.Errorf("refusing to store transcript without a url")
	}
	speakers, err := json.Marshal(t.Speakers)
	if err != nil {
		return fmt.Errorf("encoding speakers: %w", err)
	}
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	publishedAt := ""
	if !t.PublishedAt.IsZero() {
		publishedAt = t.PublishedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.writeDB.Exec(`
		INSERT OR REPLACE INTO transcripts
			(url, symbol, company, title, quarter, event_date, published_at,
			 speakers, sections, full_text, raw_html, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.URL, t.Symbol, t.Company, t.Title, t.Quarter, t.EventDate, publishedAt,
		string(speakers), string(sections), t.FullText, t.RawHTML, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing transcript %s: %w", t.URL, err)
	}
	return nil
}

// Has reports whether a transcript exists for url.
func (s *Store) Has(url string) (bool, error) {
	var n int
	err := s.readDB.QueryRow(`SELECT COUNT(*) FROM transcripts WHERE url = ?`, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking transcript %s: %w", url, err)
	}
	return n > 0, nil
}
