package news

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	titleFallback   = "title unavailable"
	contentFallback = "content unavailable, please visit the source"

	// Paragraphs shorter than this are navigation labels, not article text.
	minParagraphLength = 25
)

// Paragraphs containing these fragments are site chrome (source banners,
// copyright lines, consent notices), not article body.
var boilerplateMarkers = []string{
	"bbc news",
	"copyright",
	"all rights reserved",
	"privacy policy",
}

// Extracted is the result of scraping one article page.
type Extracted struct {
	Title    string
	ImageURL string
	Content  string
}

// Extractor turns a fetched HTML page into article fields. Strategies are
// selected per source, so a source with richer structure can use the
// readability strategy without forking the fetch path.
type Extractor interface {
	Run(data []byte) (Extracted, error)
}

// HeuristicExtractor scans every paragraph on the page and keeps the ones
// that look like prose. Target sites have no stable content selector, so
// this stays deliberately crude: length threshold plus a boilerplate
// blocklist, with the meta description as a last resort.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Run(data []byte) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Extracted{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	extracted := Extracted{Title: titleFallback}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		extracted.Title = h1
	}

	if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		extracted.ImageURL = normalizeURL(strings.TrimSpace(img))
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) <= minParagraphLength {
			return
		}
		if isBoilerplate(text) {
			return
		}
		paragraphs = append(paragraphs, text)
	})

	if len(paragraphs) > 0 {
		extracted.Content = strings.Join(paragraphs, "\n\n")
		return extracted, nil
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		extracted.Content = strings.TrimSpace(desc)
		return extracted, nil
	}

	extracted.Content = contentFallback
	return extracted, nil
}

func isBoilerplate(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// ReadabilityExtractor delegates to a full readability pass. Used for
// sources whose pages are regular enough for article detection to beat the
// paragraph heuristic.
type ReadabilityExtractor struct{}

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

func (e *ReadabilityExtractor) Run(data []byte) (Extracted, error) {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return Extracted{}, fmt.Errorf("failed to extract content: %w", err)
	}

	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return Extracted{}, fmt.Errorf("no content extracted from HTML data")
	}

	extracted := Extracted{
		Title:    strings.TrimSpace(article.Title),
		ImageURL: normalizeURL(article.Image),
		Content:  content,
	}
	if extracted.Title == "" {
		extracted.Title = titleFallback
	}
	return extracted, nil
}
