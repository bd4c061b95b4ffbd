// Package store persists the two news caches and the preference rows in a
// local sqlite database. All read-modify-write cycles go through a single
// process-wide gate; it is the only lock in the system.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"newshub/app/news"
)

var (
	_ news.NewsStore       = (*Store)(nil)
	_ news.PreferenceStore = (*Store)(nil)
)

type Store struct {
	readDB     *sql.DB
	writeDB    *sql.DB
	mu         sync.Mutex
	maxDetails int
}

// Open opens (and if needed creates) the database at dbPath. maxDetails
// bounds the detail cache; the oldest entries are evicted past it.
func Open(dbPath string, maxDetails int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("failed to open read db: %w", err)
	}

	if maxDetails < 1 {
		maxDetails = 1
	}

	s := &Store{readDB: readDB, writeDB: writeDB, maxDetails: maxDetails}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS cached_list (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			fetched_at DATETIME NOT NULL,
			items_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cached_details (
			url_key        TEXT PRIMARY KEY,
			url            TEXT NOT NULL,
			fetched_at     DATETIME NOT NULL,
			detail_json    TEXT NOT NULL,
			embedding_json TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_cached_details_fetched_at ON cached_details(fetched_at);

		CREATE TABLE IF NOT EXISTS preferences (
			user_id    TEXT NOT NULL COLLATE NOCASE,
			news_url   TEXT NOT NULL COLLATE NOCASE,
			value      INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, news_url)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.readDB.Close(); err != nil {
		s.writeDB.Close()
		return err
	}
	return s.writeDB.Close()
}
