package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/tidwall/gjson"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

// the v8 chart endpoint works without authentication, quoteSummary does not
const defaultBaseURL = "https://query1.finance.yahoo.com"

// Fetcher retrieves index quotes from the Yahoo Finance chart API
type Fetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewFetcher creates a quote fetcher with the given per-request timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
	}
}

// Fetch retrieves a quote for each source independently. A failed or
// malformed symbol is logged and omitted; the output keeps source order.
func (f *Fetcher) Fetch(ctx context.Context, sources []domain.IndexSource) []domain.IndexQuote {
	quotes := make([]domain.IndexQuote, 0, len(sources))
	for _, src := range sources {
		q, err := f.fetchOne(ctx, src)
		if err != nil {
			lgr.Printf("[WARN] quote fetch failed for %s (%s): %v", src.Name, src.Symbol, err)
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// fetchOne requests a single symbol's chart and extracts price and change
func (f *Fetcher) fetchOne(ctx context.Context, src domain.IndexSource) (domain.IndexQuote, error) {
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", f.baseURL, url.PathEscape(src.Symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return domain.IndexQuote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.IndexQuote{}, fmt.Errorf("fetch chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.IndexQuote{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.IndexQuote{}, fmt.Errorf("read response: %w", err)
	}

	return parseChart(body, src.Name)
}

// parseChart digs price and previous close out of the nested chart response.
// Fallback order: meta.regularMarketPrice, then the most recent non-null
// close of the trailing series; previous close from meta or the prior
// non-null close. Without a reference close the change is zero.
func parseChart(body []byte, name string) (domain.IndexQuote, error) {
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return domain.IndexQuote{}, errors.New("no chart result in response")
	}

	var price, prev float64
	var havePrice, havePrev bool

	meta := result.Get("meta")
	if v := meta.Get("regularMarketPrice"); v.Exists() && v.Type == gjson.Number {
		price, havePrice = v.Float(), true
	}
	if v := meta.Get("previousClose"); v.Exists() && v.Type == gjson.Number {
		prev, havePrev = v.Float(), true
	} else if v := meta.Get("chartPreviousClose"); v.Exists() && v.Type == gjson.Number {
		prev, havePrev = v.Float(), true
	}

	if !havePrice {
		closes := result.Get("indicators.quote.0.close").Array()
		if v, ok := lastClose(closes, len(closes)); ok {
			price, havePrice = v, true
		}
		if !havePrev && len(closes) > 1 {
			if v, ok := lastClose(closes, len(closes)-1); ok {
				prev, havePrev = v, true
			}
		}
	}

	if !havePrice {
		return domain.IndexQuote{}, errors.New("no usable price in response")
	}

	if !havePrev || prev == 0 {
		prev = price
	}
	change := price - prev
	changePct := 0.0
	if prev != 0 {
		changePct = change / prev * 100
	}

	return domain.IndexQuote{
		Name:      name,
		Price:     round2(price),
		Change:    round2(change),
		ChangePct: round2(changePct),
	}, nil
}

// lastClose returns the most recent non-null close among the first n entries
func lastClose(closes []gjson.Result, n int) (float64, bool) {
	for i := n - 1; i >= 0; i-- {
		if closes[i].Type == gjson.Number {
			return closes[i].Float(), true
		}
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
