package tasks

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newshub/app/news"
)

// PrefetchThumbnailsTask backfills missing thumbnails across the cached
// list with bounded concurrency and a per-fetch timeout. Individual fetch
// failures are swallowed; by the time a page is requested, many thumbnails
// are already warm in the cache.
type PrefetchThumbnailsTask struct {
	Task
	aggregator  *news.Aggregator
	enricher    *news.Enricher
	store       news.NewsStore
	limit       int
	concurrency int
	timeout     time.Duration
}

func NewPrefetchThumbnailsTask(aggregator *news.Aggregator, enricher *news.Enricher, store news.NewsStore, limit, concurrency int, timeout time.Duration) *PrefetchThumbnailsTask {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return &PrefetchThumbnailsTask{
		Task:        NewTask(TaskTypePrefetchThumbnails),
		aggregator:  aggregator,
		enricher:    enricher,
		store:       store,
		limit:       limit,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

func (t *PrefetchThumbnailsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	all, err := t.aggregator.GetNews(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	urls := make([]string, 0, t.limit)
	for _, item := range all {
		if len(urls) >= t.limit {
			break
		}
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}

	cached, err := t.store.GetDetails(ctx, urls)
	if err != nil {
		slog.Warn("Detail cache batch read failed", "error", err)
		cached = map[string]news.CachedDetail{}
	}

	var missing []string
	for _, url := range urls {
		entry, ok := cached[strings.ToLower(url)]
		if !ok || entry.Detail.ImageURL == "" {
			missing = append(missing, url)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var fetched atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(t.concurrency)
	for _, url := range missing {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()

			image, err := t.enricher.GetThumbnail(fetchCtx, url)
			if err == nil && image != "" {
				fetched.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"missing", len(missing),
		"fetched", fetched.Load())

	return nil
}
