package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"newshub/app/sources"
)

// SourceFetcher fetches and parses one upstream feed. Any network, parse or
// data error stays inside the call and is reported as an error for that
// source only; the aggregator decides what an isolated failure means.
type SourceFetcher struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	userAgent    string
}

func NewSourceFetcher(httpClient *http.Client, userAgent string) *SourceFetcher {
	return &SourceFetcher{
		httpClient:   httpClient,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
	}
}

// Run fetches one source and returns up to MaxItems well-formed summaries.
func (f *SourceFetcher) Run(ctx context.Context, src *sources.Config) ([]Summary, error) {
	data, err := f.fetchFeed(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}

	feed, err := f.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Summary, 0, src.Settings.MaxItems)
	for _, item := range feed.Items {
		if len(items) >= src.Settings.MaxItems {
			break
		}

		summary, ok := f.normalizeItem(item, src)
		if !ok {
			continue
		}
		items = append(items, summary)
	}

	return items, nil
}

func (f *SourceFetcher) fetchFeed(ctx context.Context, src *sources.Config) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(src.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
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

func (f *SourceFetcher) normalizeItem(item *gofeed.Item, src *sources.Config) (Summary, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return Summary{}, false
	}

	publishedAt := f.parsePublished(item)

	return Summary{
		Title:          title,
		Link:           normalizeURL(link),
		ImageURL:       f.extractImage(item),
		Source:         src.Name,
		Category:       src.Category,
		PublishedLabel: publishedLabel(publishedAt),
		PublishedAt:    publishedAt,
	}, true
}

// parsePublished is deliberately lenient: items whose date cannot be parsed
// are still included, with a nil timestamp.
func (f *SourceFetcher) parsePublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if raw := strings.TrimSpace(item.Published); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	return nil
}

// extractImage picks a thumbnail in order of preference: the feed image
// element, media:content, media:thumbnail, the enclosure URL, and finally a
// regex scan over embedded HTML in description/content fields.
func (f *SourceFetcher) extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return normalizeURL(item.Image.URL)
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, element := range []string{"content", "thumbnail"} {
			for _, ext := range media[element] {
				if u := ext.Attrs["url"]; u != "" {
					return normalizeURL(u)
				}
			}
		}
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			return normalizeURL(enclosure.URL)
		}
	}

	if u := firstEmbeddedImage(item.Description); u != "" {
		return u
	}
	return firstEmbeddedImage(item.Content)
}

var embeddedImagePattern = regexp.MustCompile(`(?:src|data-src|srcset)\s*=\s*["']?([^"'\s,>]+)`)

// firstEmbeddedImage is a best-effort scan for the first image URL inside an
// HTML fragment. Good enough for feeds that only ship images in their
// description markup.
func firstEmbeddedImage(html string) string {
	if html == "" {
		return ""
	}
	match := embeddedImagePattern.FindStringSubmatch(html)
	if match == nil {
		return ""
	}
	return normalizeURL(match[1])
}

// normalizeURL prefixes protocol-relative URLs with https.
func normalizeURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
