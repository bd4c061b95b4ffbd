package news

import (
	"context"
	"fmt"
	"time"
)

// Fixed category set shared with the frontend.
var Categories = []string{
	"Politics",
	"Technology",
	"Sports",
	"Business",
	"World",
	"Entertainment",
	"Science",
	"Health",
}

// Summary is a lightweight listing record. Link is the article identity.
type Summary struct {
	Title          string     `json:"title"`
	Link           string     `json:"link"`
	ImageURL       string     `json:"imageUrl"`
	Source         string     `json:"source"`
	Category       string     `json:"category"`
	PublishedLabel string     `json:"publishedLabel"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
}

// Detail extends Summary with the extracted article body. Content stays empty
// until a fetch succeeds; a failed fetch stores a sentinel body instead.
type Detail struct {
	Summary
	Content string `json:"content"`
}

// SentinelPrefix marks a detail body recorded after a failed fetch. Entries
// carrying it are never valid cache hits and force a retry on the next call.
const SentinelPrefix = "content load error: "

// IsSentinel reports whether a body is a failure placeholder rather than
// real content.
func IsSentinel(body string) bool {
	return len(body) >= len(SentinelPrefix) && body[:len(SentinelPrefix)] == SentinelPrefix
}

// CachedList is the singleton list cache entry.
type CachedList struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Items     []Summary `json:"items"`
}

// CachedDetail is one detail cache entry, keyed case-insensitively by URL.
type CachedDetail struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Detail    Detail    `json:"detail"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Preference records a single like/dislike. One row per (user, url) pair.
type Preference struct {
	UserID    string    `json:"userId"`
	NewsURL   string    `json:"newsUrl"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewsStore is the persistent cache consumed by the aggregation components.
// Detail lookups are case-insensitive on URL; GetDetails returns a map keyed
// by the lowercased URL. A corrupt or missing store reads as empty, it never
// surfaces an I/O error to list or detail callers.
type NewsStore interface {
	GetLatestList(ctx context.Context) (*CachedList, error)
	SaveLatestList(ctx context.Context, items []Summary, fetchedAt time.Time) error

	GetDetail(ctx context.Context, url string) (*CachedDetail, error)
	GetDetails(ctx context.Context, urls []string) (map[string]CachedDetail, error)
	SaveDetail(ctx context.Context, url string, detail Detail, fetchedAt time.Time, embedding []float32) error
}

// PreferenceStore persists user feedback with upsert semantics.
type PreferenceStore interface {
	Save(ctx context.Context, pref Preference) error
	GetByUser(ctx context.Context, userID string) ([]Preference, error)
}

// Embedder produces a fixed-length vector for a text, or nil when the
// provider is not configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// publishedLabel renders a human display time. Items without a parseable
// publish date show as "new".
func publishedLabel(t *time.Time) string {
	if t == nil {
		return "new"
	}

	age := time.Since(*t)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	case age < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	default:
		return t.In(time.Local).Format("2 Jan 2006")
	}
}
