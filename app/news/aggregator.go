package news

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"newshub/app/sources"
)

// Aggregator orchestrates the multi-source fetch behind a TTL-gated list
// cache. Total upstream failure degrades to serving the last cached list;
// it never becomes an error for callers.
type Aggregator struct {
	store   NewsStore
	fetcher *SourceFetcher
	configs *sources.Cache
	listTTL time.Duration
}

func NewAggregator(store NewsStore, fetcher *SourceFetcher, configs *sources.Cache, listTTL time.Duration) *Aggregator {
	return &Aggregator{
		store:   store,
		fetcher: fetcher,
		configs: configs,
		listTTL: listTTL,
	}
}

// dedupeKey decides which items count as duplicates during a merge pass.
// Titles are not unique across sources, so identical titles collapse to the
// first occurrence; swapping this for the Link changes the policy without
// touching the merge.
var dedupeKey = func(item Summary) string { return item.Title }

// GetNews returns the current aggregated list. A fresh cached list is served
// verbatim with no network calls; otherwise all enabled sources are fetched,
// merged, sorted and committed to the cache. The only error returned is
// context cancellation.
func (a *Aggregator) GetNews(ctx context.Context) ([]Summary, error) {
	cached, err := a.store.GetLatestList(ctx)
	if err != nil {
		slog.Warn("List cache read failed, treating as empty", "error", err)
		cached = nil
	}

	if cached != nil && a.listTTL > 0 && time.Since(cached.FetchedAt) <= a.listTTL {
		return cached.Items, nil
	}

	merged := a.fetchAll(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(merged) == 0 {
		if cached != nil {
			slog.Warn("All sources failed, serving stale list", "items", len(cached.Items), "fetched_at", cached.FetchedAt)
			return cached.Items, nil
		}
		return []Summary{}, nil
	}

	sortSummaries(merged)

	if err := a.store.SaveLatestList(ctx, merged, time.Now().UTC()); err != nil {
		slog.Warn("List cache write failed", "error", err)
	}

	return merged, nil
}

// CachedList exposes the raw cache entry without triggering a refresh.
func (a *Aggregator) CachedList(ctx context.Context) (*CachedList, error) {
	return a.store.GetLatestList(ctx)
}

// fetchAll runs every enabled source concurrently and merges the results in
// source-name order so the pre-sort sequence is deterministic. A failed
// source contributes zero items and never aborts its siblings.
func (a *Aggregator) fetchAll(ctx context.Context) []Summary {
	configs := a.configs.GetEnabledConfigs()
	if len(configs) == 0 {
		return nil
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([][]Summary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		src := configs[name]
		g.Go(func() error {
			items, err := a.fetcher.Run(gctx, src)
			if err != nil {
				slog.Warn("Source fetch failed", "source", src.Name, "error", err)
				return nil
			}
			results[i] = items
			slog.Debug("Source fetched", "source", src.Name, "items", len(items))
			return nil
		})
	}
	g.Wait()

	var merged []Summary
	seen := make(map[string]bool)
	for _, batch := range results {
		for _, item := range batch {
			key := dedupeKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}
	return merged
}

// sortSummaries orders by publish time descending, with undated items last
// and ties broken by ascending source name. The order is stable across
// repeated cache reads, so pagination can rely on it within one TTL window.
func sortSummaries(items []Summary) {
	sort.SliceStable(items, func(i, j int) bool {
		ti := publishedOrZero(items[i].PublishedAt)
		tj := publishedOrZero(items[j].PublishedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].Source < items[j].Source
	})
}

func publishedOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
