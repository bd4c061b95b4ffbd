package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"newshub/app/sources"
)

const (
	// Body text is capped before it goes to the embedding provider.
	maxEmbedChars = 2000

	// Listing-page thumbnail backfill: at most this many items per page,
	// fetched with a small concurrency cap and a short per-fetch timeout so
	// one slow origin cannot stall the response.
	pageBackfillLimit       = 10
	pageBackfillConcurrency = 4
	pageBackfillTimeout     = 6 * time.Second
)

// Enricher fetches a single article's full content on demand, cache-first.
// Callers always receive a Detail; fetch failures are recorded as a sentinel
// body and cached so repeated failures do not hammer the origin. The only
// error returned is context cancellation.
type Enricher struct {
	store      NewsStore
	configs    *sources.Cache
	embedder   Embedder
	httpClient *http.Client
	userAgent  string
	extractors map[string]Extractor
}

func NewEnricher(store NewsStore, configs *sources.Cache, embedder Embedder, httpClient *http.Client, userAgent string) *Enricher {
	return &Enricher{
		store:      store,
		configs:    configs,
		embedder:   embedder,
		httpClient: httpClient,
		userAgent:  userAgent,
		extractors: map[string]Extractor{
			sources.ExtractionHeuristic:   NewHeuristicExtractor(),
			sources.ExtractionReadability: NewReadabilityExtractor(),
		},
	}
}

// GetDetail returns the article detail for a URL, from cache when a real
// body is present, otherwise by fetching the page.
func (e *Enricher) GetDetail(ctx context.Context, url string) (Detail, error) {
	cached, err := e.store.GetDetail(ctx, url)
	if err != nil {
		slog.Warn("Detail cache read failed", "url", url, "error", err)
	}
	if cached != nil && cached.Detail.Content != "" && !IsSentinel(cached.Detail.Content) {
		return e.withListingFields(ctx, cached.Detail), nil
	}

	detail := Detail{Summary: Summary{Link: url}}
	summary := e.findInList(ctx, url)

	data, fetchErr := e.fetchPage(ctx, url)
	if fetchErr != nil {
		if ctx.Err() != nil {
			return Detail{}, ctx.Err()
		}
		detail.Content = SentinelPrefix + fetchErr.Error()
	} else {
		extracted, extractErr := e.pickExtractor(summary).Run(data)
		if extractErr != nil {
			detail.Content = SentinelPrefix + extractErr.Error()
		} else {
			detail.Title = extracted.Title
			detail.ImageURL = extracted.ImageURL
			detail.Content = extracted.Content
		}
	}

	if summary != nil {
		detail.Source = summary.Source
		detail.Category = summary.Category
		detail.PublishedLabel = summary.PublishedLabel
		detail.PublishedAt = summary.PublishedAt
		if detail.ImageURL == "" {
			detail.ImageURL = summary.ImageURL
		}
	}

	var vector []float32
	if detail.Content != "" && !IsSentinel(detail.Content) && e.embedder != nil {
		vector, err = e.embedder.Embed(ctx, truncateRunes(detail.Content, maxEmbedChars))
		if err != nil {
			slog.Warn("Embedding request failed", "url", url, "error", err)
			vector = nil
		}
	}

	if err := e.store.SaveDetail(ctx, url, detail, time.Now().UTC(), vector); err != nil {
		slog.Warn("Detail cache write failed", "url", url, "error", err)
	}

	return detail, nil
}

// GetThumbnail resolves only the og:image of a page, cache-first. It is the
// cheap path used by the page backfill and the background prefetcher. A
// failed fetch returns empty with no cache write.
func (e *Enricher) GetThumbnail(ctx context.Context, url string) (string, error) {
	cached, err := e.store.GetDetail(ctx, url)
	if err != nil {
		slog.Warn("Detail cache read failed", "url", url, "error", err)
	}
	if cached != nil && cached.Detail.ImageURL != "" {
		return cached.Detail.ImageURL, nil
	}

	data, err := e.fetchPage(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", nil
	}

	image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	image = normalizeURL(strings.TrimSpace(image))
	if image == "" {
		return "", nil
	}

	// Partial cache entry: image only. An existing entry keeps its body.
	detail := Detail{Summary: Summary{Link: url, ImageURL: image}}
	var vector []float32
	if cached != nil {
		detail = cached.Detail
		detail.ImageURL = image
		vector = cached.Embedding
	}
	if err := e.store.SaveDetail(ctx, url, detail, time.Now().UTC(), vector); err != nil {
		slog.Warn("Detail cache write failed", "url", url, "error", err)
	}

	return image, nil
}

// PopulateThumbnails backfills missing thumbnails for one listing page in
// place: cached images first, then up to pageBackfillLimit live fetches with
// bounded concurrency. Strictly best-effort.
func (e *Enricher) PopulateThumbnails(ctx context.Context, page []Summary) {
	if len(page) == 0 {
		return
	}

	urls := make([]string, 0, len(page))
	for _, item := range page {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}

	cached, err := e.store.GetDetails(ctx, urls)
	if err != nil {
		slog.Warn("Detail cache batch read failed", "error", err)
		cached = nil
	}
	for i := range page {
		if page[i].ImageURL != "" {
			continue
		}
		if entry, ok := cached[strings.ToLower(page[i].Link)]; ok {
			page[i].ImageURL = entry.Detail.ImageURL
		}
	}

	var missing []int
	for i := range page {
		if page[i].ImageURL == "" && page[i].Link != "" {
			missing = append(missing, i)
		}
		if len(missing) >= pageBackfillLimit {
			break
		}
	}
	if len(missing) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(pageBackfillConcurrency)
	for _, i := range missing {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, pageBackfillTimeout)
			defer cancel()

			image, err := e.GetThumbnail(fetchCtx, page[i].Link)
			if err == nil && image != "" {
				page[i].ImageURL = image
			}
			return nil
		})
	}
	g.Wait()
}

func (e *Enricher) fetchPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// findInList matches a URL against the cached list, case-insensitively.
func (e *Enricher) findInList(ctx context.Context, url string) *Summary {
	cached, err := e.store.GetLatestList(ctx)
	if err != nil || cached == nil {
		return nil
	}
	for i := range cached.Items {
		if strings.EqualFold(cached.Items[i].Link, url) {
			return &cached.Items[i]
		}
	}
	return nil
}

// pickExtractor resolves the extraction strategy from the source config of
// the matching listing entry; unknown sources get the heuristic.
func (e *Enricher) pickExtractor(summary *Summary) Extractor {
	if summary != nil {
		if config, err := e.configs.GetConfig(summary.Source); err == nil {
			if extractor, ok := e.extractors[config.Settings.Extraction]; ok {
				return extractor
			}
		}
	}
	return e.extractors[sources.ExtractionHeuristic]
}

// withListingFields fills source and category from the current list for
// cache hits stored before those fields existed.
func (e *Enricher) withListingFields(ctx context.Context, detail Detail) Detail {
	if detail.Source != "" && detail.Category != "" {
		return detail
	}
	if summary := e.findInList(ctx, detail.Link); summary != nil {
		if detail.Source == "" {
			detail.Source = summary.Source
		}
		if detail.Category == "" {
			detail.Category = summary.Category
		}
	}
	return detail
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
