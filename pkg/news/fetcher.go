package news

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed/rss"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

// DefaultSourceLabel is the fallback when neither the feed's source element
// nor the item link yields a usable label. Matches the Yonhap feeds this
// briefing ships with; flagged for review before adding non-Yonhap defaults.
const DefaultSourceLabel = "연합뉴스"

// Fetcher retrieves and normalizes RSS feeds
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxItems   int
	maxDescLen int
	stripper   *bluemonday.Policy
}

// NewFetcher creates a feed fetcher. maxItems caps items taken per feed in
// document order, maxDescLen caps the normalized description length.
func NewFetcher(timeout time.Duration, userAgent string, maxItems, maxDescLen int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  userAgent,
		maxItems:   maxItems,
		maxDescLen: maxDescLen,
		stripper:   bluemonday.StrictPolicy(),
	}
}

// Fetch retrieves a single feed. Failures never escape: a network or parse
// error is logged and returned inside the result with zero items.
func (f *Fetcher) Fetch(ctx context.Context, src domain.FeedSource) domain.FeedResult {
	items, err := f.fetch(ctx, src.URL)
	if err != nil {
		lgr.Printf("[WARN] feed fetch failed for %s: %v", src.URL, err)
		return domain.FeedResult{Source: src, Err: err}
	}
	return domain.FeedResult{Source: src, Items: items}
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]domain.NewsItem, error) {
	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer body.Close()

	// feeds here are RSS 2.0, the rss parser keeps the raw pubDate string
	// and the per-item source element the generic parser drops
	parser := &rss.Parser{}
	feed, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	// cap applies to document order, before the empty-item filter
	rssItems := feed.Items
	if len(rssItems) > f.maxItems {
		rssItems = rssItems[:f.maxItems]
	}

	items := make([]domain.NewsItem, 0, len(rssItems))
	for _, it := range rssItems {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" && link == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:       title,
			Link:        link,
			Description: f.normalizeDescription(it.Description),
			PubDate:     strings.TrimSpace(it.PubDate),
			Source:      sourceLabel(it, link),
		})
	}
	return items, nil
}

// get retrieves feed content from a URL
func (f *Fetcher) get(ctx context.Context, feedURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	// some feed hosts reject clients that don't look like a browser
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// normalizeDescription strips markup, decodes entities, collapses
// whitespace and truncates to the configured length with an ellipsis
func (f *Fetcher) normalizeDescription(desc string) string {
	text := f.stripper.Sanitize(desc)
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > f.maxDescLen {
		text = string(runes[:f.maxDescLen-3]) + "..."
	}
	return text
}

// sourceLabel resolves the display source: the feed's explicit source
// element, then the link's host without a "www." prefix, then the default
func sourceLabel(it *rss.Item, link string) string {
	if it.Source != nil {
		if s := strings.TrimSpace(it.Source.Title); s != "" {
			return s
		}
	}
	if link != "" {
		if u, err := url.Parse(link); err == nil && u.Host != "" {
			return strings.TrimPrefix(u.Host, "www.")
		}
	}
	return DefaultSourceLabel
}
