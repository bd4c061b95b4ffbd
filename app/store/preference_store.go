package store

import (
	"context"
	"fmt"
	"time"

	"newshub/app/news"
)

// Save upserts a preference. The (user, url) pair is matched
// case-insensitively; the latest write wins and refreshes the timestamp.
func (s *Store) Save(ctx context.Context, pref news.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO preferences (user_id, news_url, value, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, news_url) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at`,
		pref.UserID, pref.NewsURL, pref.Value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// GetByUser returns the user's preference rows, newest first.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]news.Preference, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT user_id, news_url, value, created_at FROM preferences
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	defer rows.Close()

	var preferences []news.Preference
	for rows.Next() {
		var pref news.Preference
		if err := rows.Scan(&pref.UserID, &pref.NewsURL, &pref.Value, &pref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		preferences = append(preferences, pref)
	}

	return preferences, rows.Err()
}
