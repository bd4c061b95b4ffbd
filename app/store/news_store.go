package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newshub/app/news"
)

// GetLatestList returns the singleton list entry, or nil when absent. A
// corrupt row reads as "no cache" rather than an error, so a damaged
// database degrades functionality instead of failing requests.
func (s *Store) GetLatestList(ctx context.Context) (*news.CachedList, error) {
	var fetchedAt time.Time
	var itemsJSON string

	err := s.readDB.QueryRowContext(ctx,
		`SELECT fetched_at, items_json FROM cached_list WHERE id = 1`).
		Scan(&fetchedAt, &itemsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached list: %w", err)
	}

	var items []news.Summary
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, nil
	}

	return &news.CachedList{FetchedAt: fetchedAt, Items: items}, nil
}

func (s *Store) SaveLatestList(ctx context.Context, items []news.Summary, fetchedAt time.Time) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cached list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.writeDB.ExecContext(ctx, `
		INSERT INTO cached_list (id, fetched_at, items_json) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET fetched_at = excluded.fetched_at, items_json = excluded.items_json`,
		fetchedAt, string(itemsJSON))
	if err != nil {
		return fmt.Errorf("failed to write cached list: %w", err)
	}
	return nil
}

// GetDetail looks up one detail entry, case-insensitively on URL.
func (s *Store) GetDetail(ctx context.Context, url string) (*news.CachedDetail, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT fetched_at, detail_json, embedding_json FROM cached_details WHERE url_key = ?`,
		detailKey(url))
	entry, err := scanDetail(row)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetDetails batch-loads detail entries. The result map is keyed by the
// lowercased URL; missing entries are simply absent.
func (s *Store) GetDetails(ctx context.Context, urls []string) (map[string]news.CachedDetail, error) {
	result := make(map[string]news.CachedDetail, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(urls))
	args := make([]any, len(urls))
	for i, u := range urls {
		placeholders[i] = "?"
		args[i] = detailKey(u)
	}

	rows, err := s.readDB.QueryContext(ctx,
		`SELECT url_key, fetched_at, detail_json, embedding_json FROM cached_details
		 WHERE url_key IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var fetchedAt time.Time
		var detailJSON string
		var embeddingJSON sql.NullString

		if err := rows.Scan(&key, &fetchedAt, &detailJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan cached detail: %w", err)
		}

		entry, ok := decodeDetail(fetchedAt, detailJSON, embeddingJSON)
		if !ok {
			continue
		}
		result[key] = *entry
	}

	return result, rows.Err()
}

// SaveDetail upserts a detail entry and, still under the gate, evicts the
// oldest entries when the cache grew past its bound.
func (s *Store) SaveDetail(ctx context.Context, url string, detail news.Detail, fetchedAt time.Time, embedding []float32) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail: %w", err)
	}

	var embeddingJSON sql.NullString
	if len(embedding) > 0 {
		encoded, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		embeddingJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cached_details (url_key, url, fetched_at, detail_json, embedding_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url_key) DO UPDATE SET
			url = excluded.url,
			fetched_at = excluded.fetched_at,
			detail_json = excluded.detail_json,
			embedding_json = excluded.embedding_json`,
		detailKey(url), url, fetchedAt, string(detailJSON), embeddingJSON)
	if err != nil {
		return fmt.Errorf("failed to write cached detail: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cached_details`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count cached details: %w", err)
	}

	if count > s.maxDetails {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM cached_details WHERE url_key IN (
				SELECT url_key FROM cached_details ORDER BY fetched_at ASC LIMIT ?
			)`, count-s.maxDetails)
		if err != nil {
			return fmt.Errorf("failed to evict cached details: %w", err)
		}
	}

	return tx.Commit()
}

func scanDetail(row *sql.Row) (*news.CachedDetail, error) {
	var fetchedAt time.Time
	var detailJSON string
	var embeddingJSON sql.NullString

	err := row.Scan(&fetchedAt, &detailJSON, &embeddingJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached detail: %w", err)
	}

	entry, ok := decodeDetail(fetchedAt, detailJSON, embeddingJSON)
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func decodeDetail(fetchedAt time.Time, detailJSON string, embeddingJSON sql.NullString) (*news.CachedDetail, bool) {
	entry := &news.CachedDetail{FetchedAt: fetchedAt}
	if err := json.Unmarshal([]byte(detailJSON), &entry.Detail); err != nil {
		return nil, false
	}
	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &entry.Embedding); err != nil {
			entry.Embedding = nil
		}
	}
	return entry, true
}

func detailKey(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}
