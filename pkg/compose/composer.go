package compose

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

// QuoteFetcher retrieves index quotes for the configured sources
type QuoteFetcher interface {
	Fetch(ctx context.Context, sources []domain.IndexSource) []domain.IndexQuote
}

// NewsFetcher retrieves a single feed
type NewsFetcher interface {
	Fetch(ctx context.Context, src domain.FeedSource) domain.FeedResult
}

// Composer builds one briefing document per run from the configured sources
type Composer struct {
	quotes  QuoteFetcher
	news    NewsFetcher
	feeds   []domain.FeedSource
	indices []domain.IndexSource
	now     func() time.Time
}

// New creates a composer over the configured feeds and indices
func New(quotes QuoteFetcher, news NewsFetcher, feeds []domain.FeedSource, indices []domain.IndexSource) *Composer {
	return &Composer{
		quotes:  quotes,
		news:    news,
		feeds:   feeds,
		indices: indices,
		now:     time.Now,
	}
}

// Compose fetches every source once and renders the briefing. It always
// returns a complete document; a failed source renders as a notice in its
// section instead of failing the run.
func (c *Composer) Compose(ctx context.Context) domain.RenderedDocument {
	var quotes []domain.IndexQuote
	results := make([]domain.FeedResult, len(c.feeds))

	// sources are independent, fetch them in parallel; results are slotted
	// by index so the rendered order stays the configured order
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quotes = c.quotes.Fetch(gctx, c.indices)
		return nil
	})
	for i, src := range c.feeds {
		i, src := i, src
		g.Go(func() error {
			results[i] = c.news.Fetch(gctx, src)
			return nil
		})
	}
	_ = g.Wait() // fetchers absorb their own failures

	now := c.now()
	htmlBody := renderHTML(now, quotes, results)
	return domain.RenderedDocument{
		Subject:   fmt.Sprintf("[주식 뉴스] 코스피·증시 한국어 브리핑 %s", now.Format("2006-01-02")),
		HTMLBody:  htmlBody,
		PlainBody: htmlToPlain(htmlBody),
	}
}

func renderHTML(now time.Time, quotes []domain.IndexQuote, results []domain.FeedResult) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("<h2>주식 뉴스 브리핑 (%s)</h2>", now.Format("2006-01-02 15:04")))
	lines = append(lines, "<p>코스피·나스닥 관련 한국어 경제·증시 뉴스입니다.</p>")

	lines = append(lines, renderQuoteTable(quotes)...)

	for _, res := range results {
		lines = append(lines, renderFeedSection(res)...)
	}

	lines = append(lines, "<hr><p><small>자동 발송 · 각 기사 출처는 항목별로 표기</small></p>")
	return strings.Join(lines, "\n")
}

func renderQuoteTable(quotes []domain.IndexQuote) []string {
	if len(quotes) == 0 {
		return []string{"<p><em>오늘의 증시 데이터를 불러오지 못했습니다.</em></p>"}
	}

	lines := []string{
		"<h3>오늘의 증시</h3>",
		"<table style='border-collapse:collapse; margin-bottom:1.2em; font-size:0.95em;'>",
		"  <tr style='background:#f5f5f5;'>",
		"    <th style='padding:6px 12px; text-align:left; border:1px solid #ddd;'>지수</th>",
		"    <th style='padding:6px 12px; text-align:right; border:1px solid #ddd;'>종가</th>",
		"    <th style='padding:6px 12px; text-align:right; border:1px solid #ddd;'>등락</th>",
		"  </tr>",
	}
	for _, q := range quotes {
		lines = append(lines, "  <tr>")
		lines = append(lines, fmt.Sprintf("    <td style='padding:6px 12px; border:1px solid #ddd;'>%s</td>", html.EscapeString(q.Name)))
		lines = append(lines, fmt.Sprintf("    <td style='padding:6px 12px; text-align:right; border:1px solid #ddd;'>%.2f</td>", q.Price))
		lines = append(lines, fmt.Sprintf("    <td style='padding:6px 12px; text-align:right; border:1px solid #ddd; color:%s;'>%+.2f (%+.2f%%)</td>",
			changeColor(q.Change), q.Change, q.ChangePct))
		lines = append(lines, "  </tr>")
	}
	lines = append(lines, "</table>")
	lines = append(lines, "<p><small style='color:#666;'>기준: Yahoo Finance (전일 종가 또는 최근 시세)</small></p>")
	return lines
}

// changeColor maps losses, gains and flat changes to the table colors
func changeColor(change float64) string {
	switch {
	case change < 0:
		return "#c00"
	case change > 0:
		return "#08a"
	default:
		return "#666"
	}
}

func renderFeedSection(res domain.FeedResult) []string {
	lines := []string{fmt.Sprintf("<h3>%s</h3>", html.EscapeString(res.Source.Name))}
	if len(res.Items) == 0 {
		lines = append(lines, "<p><em>뉴스를 불러오지 못했습니다.</em></p>")
		return lines
	}

	lines = append(lines, "<ul style='list-style:none; padding-left:0;'>")
	for _, item := range res.Items {
		lines = append(lines, renderItem(item)...)
	}
	lines = append(lines, "</ul>")
	return lines
}

// renderItem renders one news entry; every externally sourced string is
// escaped before it reaches the markup
func renderItem(item domain.NewsItem) []string {
	title := html.EscapeString(item.Title)
	if title == "" {
		title = "(제목 없음)"
	}

	lines := []string{"<li style='margin-bottom:1em; padding-bottom:1em; border-bottom:1px solid #eee;'>"}
	if item.Link != "" {
		lines = append(lines, fmt.Sprintf(`  <strong><a href="%s">%s</a></strong>`, html.EscapeString(item.Link), title))
	} else {
		lines = append(lines, fmt.Sprintf("  <strong>%s</strong>", title))
	}
	if desc := html.EscapeString(item.Description); desc != "" {
		lines = append(lines, fmt.Sprintf("  <p style='margin:0.35em 0 0.25em 0; font-size:0.9em; color:#444; line-height:1.4;'>%s</p>", desc))
	}
	if pub := html.EscapeString(item.PubDate); pub != "" {
		lines = append(lines, fmt.Sprintf("  <small style='color:#666;'>%s</small>", pub))
	}
	lines = append(lines, fmt.Sprintf("  <small style='color:#888;'> · 출처: %s</small>", html.EscapeString(item.Source)))
	lines = append(lines, "</li>")
	return lines
}
