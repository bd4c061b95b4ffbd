package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"newshub/app/sources"
)

// cacheWithSources builds a loaded source cache from name to feed URL, one
// category per source in declaration order.
func cacheWithSources(t *testing.T, srcs map[string]string, categories map[string]string) *sources.Cache {
	t.Helper()
	tempDir := t.TempDir()

	for name, url := range srcs {
		category := categories[name]
		if category == "" {
			category = "Technology"
		}
		content := fmt.Sprintf("url: %q\ncategory: %q\n\nsettings:\n  enabled: true\n", url, category)
		if err := os.WriteFile(filepath.Join(tempDir, name+".yml"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cache := sources.NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}
	return cache
}

func emptySourceCache(t *testing.T) *sources.Cache {
	t.Helper()
	return sources.NewCache(t.TempDir())
}

func feedWithItems(items string) string {
	return `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
` + items + `
  </channel>
</rss>`
}

func TestAggregatorServesFreshCache(t *testing.T) {
	store := newMemStore()
	store.SaveLatestList(context.Background(), []Summary{
		{Title: "Cached Article", Link: "https://example.com/cached"},
	}, time.Now().UTC())
	store.listWrites = 0

	// No sources configured, so any fetch attempt would come back empty.
	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), emptySourceCache(t), 5*time.Minute)

	for i := 0; i < 3; i++ {
		items, err := aggregator.GetNews(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 1 || items[0].Title != "Cached Article" {
			t.Fatalf("Expected cached item on call %d, got %v", i, items)
		}
	}

	if store.listWrites != 0 {
		t.Errorf("Expected no cache writes on fresh hits, got %d", store.listWrites)
	}
}

func TestAggregatorStaleFallback(t *testing.T) {
	store := newMemStore()
	staleAt := time.Now().UTC().Add(-time.Hour)
	store.SaveLatestList(context.Background(), []Summary{
		{Title: "Stale Article", Link: "https://example.com/stale"},
	}, staleAt)
	store.listWrites = 0

	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), emptySourceCache(t), 5*time.Minute)

	items, err := aggregator.GetNews(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 || items[0].Title != "Stale Article" {
		t.Fatalf("Expected stale item, got %v", items)
	}

	// Serving stale must not refresh the cache timestamp, the next call
	// still tries the upstreams.
	if store.listWrites != 0 {
		t.Errorf("Expected no cache write when serving stale, got %d", store.listWrites)
	}
	if !store.list.FetchedAt.Equal(staleAt) {
		t.Errorf("Expected fetchedAt unchanged, got %v", store.list.FetchedAt)
	}
}

func TestAggregatorEmptyWithNoCache(t *testing.T) {
	store := newMemStore()
	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), emptySourceCache(t), 5*time.Minute)

	items, err := aggregator.GetNews(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if items == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(items) != 0 {
		t.Errorf("Expected 0 items, got %d", len(items))
	}
	if store.listWrites != 0 {
		t.Errorf("Expected no cache write for empty result, got %d", store.listWrites)
	}
}

func TestAggregatorMergeSortAndDedupe(t *testing.T) {
	alphaServer := serveFeed(t, feedWithItems(`
    <item>
      <title>Shared Headline</title>
      <link>https://alpha.example.com/shared</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Alpha Exclusive</title>
      <link>https://alpha.example.com/exclusive</link>
      <pubDate>Mon, 03 Jul 2023 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated Alpha</title>
      <link>https://alpha.example.com/undated</link>
    </item>`))

	betaServer := serveFeed(t, feedWithItems(`
    <item>
      <title>Shared Headline</title>
      <link>https://beta.example.com/shared</link>
      <pubDate>Mon, 03 Jul 2023 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Beta Exclusive</title>
      <link>https://beta.example.com/exclusive</link>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>`))

	configs := cacheWithSources(t,
		map[string]string{"alpha": alphaServer.URL, "beta": betaServer.URL},
		map[string]string{"alpha": "Technology", "beta": "World"})

	store := newMemStore()
	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), configs, 5*time.Minute)

	items, err := aggregator.GetNews(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Five feed items minus one title collision.
	if len(items) != 4 {
		t.Fatalf("Expected 4 items after dedupe, got %d: %v", len(items), items)
	}

	expectedOrder := []string{"Alpha Exclusive", "Beta Exclusive", "Shared Headline", "Undated Alpha"}
	for i, title := range expectedOrder {
		if items[i].Title != title {
			t.Errorf("Expected position %d to be '%s', got '%s'", i, title, items[i].Title)
		}
	}

	// Title collisions resolve to the first source in name order.
	if items[2].Link != "https://alpha.example.com/shared" {
		t.Errorf("Expected shared headline from alpha, got '%s'", items[2].Link)
	}

	if store.listWrites != 1 {
		t.Errorf("Expected 1 cache write, got %d", store.listWrites)
	}
}

func TestAggregatorIsolatesFailedSource(t *testing.T) {
	goodServer := serveFeed(t, feedWithItems(`
    <item>
      <title>Surviving Article</title>
      <link>https://good.example.com/article</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>`))

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer badServer.Close()

	configs := cacheWithSources(t,
		map[string]string{"good": goodServer.URL, "bad": badServer.URL},
		nil)

	store := newMemStore()
	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), configs, 5*time.Minute)

	items, err := aggregator.GetNews(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item from the healthy source, got %d", len(items))
	}
	if items[0].Title != "Surviving Article" {
		t.Errorf("Expected 'Surviving Article', got '%s'", items[0].Title)
	}
}

func TestAggregatorCancelledContext(t *testing.T) {
	store := newMemStore()
	aggregator := NewAggregator(store, NewSourceFetcher(http.DefaultClient, "test-agent"), emptySourceCache(t), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := aggregator.GetNews(ctx)
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}
	if store.listWrites != 0 {
		t.Errorf("Expected no cache write after cancellation, got %d", store.listWrites)
	}
}

func TestSortSummaries(t *testing.T) {
	older := time.Date(2023, 7, 3, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2023, 7, 3, 12, 0, 0, 0, time.UTC)

	items := []Summary{
		{Title: "Undated", Source: "alpha"},
		{Title: "Older", Source: "beta", PublishedAt: &older},
		{Title: "Newer", Source: "alpha", PublishedAt: &newer},
		{Title: "Tie B", Source: "beta", PublishedAt: &older},
	}

	sortSummaries(items)

	expected := []string{"Newer", "Older", "Tie B", "Undated"}
	for i, title := range expected {
		if items[i].Title != title {
			t.Errorf("Expected position %d to be '%s', got '%s'", i, title, items[i].Title)
		}
	}
}
