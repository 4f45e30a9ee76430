package compose

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

type stubQuotes struct {
	quotes []domain.IndexQuote
}

func (s *stubQuotes) Fetch(_ context.Context, _ []domain.IndexSource) []domain.IndexQuote {
	return s.quotes
}

type stubNews struct {
	results map[string]domain.FeedResult
}

func (s *stubNews) Fetch(_ context.Context, src domain.FeedSource) domain.FeedResult {
	if res, ok := s.results[src.URL]; ok {
		return res
	}
	return domain.FeedResult{Source: src, Err: fmt.Errorf("no stub for %s", src.URL)}
}

func testFeeds() []domain.FeedSource {
	return []domain.FeedSource{
		{Name: "경제", URL: "https://example.com/economy.xml"},
		{Name: "증시", URL: "https://example.com/market.xml"},
		{Name: "산업", URL: "https://example.com/industry.xml"},
	}
}

func testIndices() []domain.IndexSource {
	return []domain.IndexSource{
		{Name: "KOSPI", Symbol: "^KS11"},
		{Name: "KOSDAQ", Symbol: "^KQ11"},
		{Name: "NASDAQ", Symbol: "^IXIC"},
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 15, 7, 30, 0, 0, time.FixedZone("KST", 9*3600))
	}
}

func newsItem(n int) domain.NewsItem {
	return domain.NewsItem{
		Title:   fmt.Sprintf("기사 %d", n),
		Link:    fmt.Sprintf("https://example.com/article/%d", n),
		Source:  "example.com",
		PubDate: "Fri, 15 Mar 2024 07:00:00 +0900",
	}
}

func TestComposer_Compose_EndToEnd(t *testing.T) {
	feeds := testFeeds()
	results := map[string]domain.FeedResult{}
	for i, src := range feeds {
		results[src.URL] = domain.FeedResult{
			Source: src,
			Items:  []domain.NewsItem{newsItem(i*2 + 1), newsItem(i*2 + 2)},
		}
	}

	quotes := &stubQuotes{quotes: []domain.IndexQuote{
		{Name: "KOSPI", Price: 2700.12, Change: 10.5, ChangePct: 0.39},
		{Name: "KOSDAQ", Price: 880.45, Change: -3.21, ChangePct: -0.36},
		{Name: "NASDAQ", Price: 16100.99, Change: 0, ChangePct: 0},
	}}

	c := New(quotes, &stubNews{results: results}, feeds, testIndices())
	c.now = fixedClock()

	doc := c.Compose(context.Background())

	assert.Equal(t, "[주식 뉴스] 코스피·증시 한국어 브리핑 2024-03-15", doc.Subject)
	assert.Contains(t, doc.HTMLBody, "<h2>주식 뉴스 브리핑 (2024-03-15 07:30)</h2>")

	// one quote section header plus three feed section headers
	assert.Equal(t, 4, strings.Count(doc.HTMLBody, "<h3>"))

	// quote table has exactly three data rows in configured order
	assert.Equal(t, 3, strings.Count(doc.HTMLBody, "  <tr>\n"))
	kospi := strings.Index(doc.HTMLBody, ">KOSPI<")
	kosdaq := strings.Index(doc.HTMLBody, ">KOSDAQ<")
	nasdaq := strings.Index(doc.HTMLBody, ">NASDAQ<")
	require.True(t, kospi >= 0 && kosdaq >= 0 && nasdaq >= 0)
	assert.True(t, kospi < kosdaq && kosdaq < nasdaq)

	// change cells carry sign, percent and tone color
	assert.Contains(t, doc.HTMLBody, "color:#08a;'>+10.50 (+0.39%)")
	assert.Contains(t, doc.HTMLBody, "color:#c00;'>-3.21 (-0.36%)")
	assert.Contains(t, doc.HTMLBody, "color:#666;'>+0.00 (+0.00%)")

	// feed sections appear in configured order
	economy := strings.Index(doc.HTMLBody, "<h3>경제</h3>")
	market := strings.Index(doc.HTMLBody, "<h3>증시</h3>")
	industry := strings.Index(doc.HTMLBody, "<h3>산업</h3>")
	require.True(t, economy >= 0 && market >= 0 && industry >= 0)
	assert.True(t, economy < market && market < industry)

	// six items rendered as links
	assert.Equal(t, 6, strings.Count(doc.HTMLBody, "<a href="))
	assert.NotContains(t, doc.HTMLBody, "뉴스를 불러오지 못했습니다")
	assert.NotContains(t, doc.HTMLBody, "불러오지 못했습니다.</em>", "no unavailable notices expected")
}

func TestComposer_Compose_AllSourcesFailed(t *testing.T) {
	c := New(&stubQuotes{}, &stubNews{}, testFeeds(), testIndices())
	c.now = fixedClock()

	doc := c.Compose(context.Background())

	assert.NotEmpty(t, doc.Subject)
	assert.Contains(t, doc.HTMLBody, "오늘의 증시 데이터를 불러오지 못했습니다.")
	assert.Equal(t, 3, strings.Count(doc.HTMLBody, "뉴스를 불러오지 못했습니다."))
	// feed section headers still render
	assert.Contains(t, doc.HTMLBody, "<h3>경제</h3>")
	assert.NotEmpty(t, doc.PlainBody)
}

func TestComposer_Compose_EscapesUntrustedText(t *testing.T) {
	feeds := []domain.FeedSource{{Name: "경제", URL: "https://example.com/rss"}}
	results := map[string]domain.FeedResult{
		"https://example.com/rss": {
			Source: feeds[0],
			Items: []domain.NewsItem{{
				Title:       `<script>alert("x")</script>`,
				Link:        "https://example.com/1",
				Description: "요약 <b>태그 포함</b>",
				PubDate:     "<pub>",
				Source:      "<evil>",
			}},
		},
	}

	c := New(&stubQuotes{}, &stubNews{results: results}, feeds, nil)
	c.now = fixedClock()

	doc := c.Compose(context.Background())

	assert.Contains(t, doc.HTMLBody, "&lt;script&gt;")
	assert.NotContains(t, doc.HTMLBody, "<script>")
	assert.Contains(t, doc.HTMLBody, "&lt;evil&gt;")
	assert.Contains(t, doc.HTMLBody, "&lt;pub&gt;")
	assert.NotContains(t, doc.HTMLBody, "<b>태그")
}

func TestComposer_Compose_PlaceholderTitle(t *testing.T) {
	feeds := []domain.FeedSource{{Name: "경제", URL: "https://example.com/rss"}}
	results := map[string]domain.FeedResult{
		"https://example.com/rss": {
			Source: feeds[0],
			Items: []domain.NewsItem{
				{Link: "https://example.com/untitled", Source: "example.com"},
				{Title: "링크 없는 기사", Source: "example.com"},
			},
		},
	}

	c := New(&stubQuotes{}, &stubNews{results: results}, feeds, nil)
	c.now = fixedClock()

	doc := c.Compose(context.Background())

	assert.Contains(t, doc.HTMLBody, `<a href="https://example.com/untitled">(제목 없음)</a>`)
	assert.Contains(t, doc.HTMLBody, "<strong>링크 없는 기사</strong>", "no link tag when the item has no link")
}

func TestComposer_Compose_PlainBody(t *testing.T) {
	feeds := testFeeds()
	results := map[string]domain.FeedResult{}
	for i, src := range feeds {
		results[src.URL] = domain.FeedResult{Source: src, Items: []domain.NewsItem{newsItem(i + 1)}}
	}

	quotes := &stubQuotes{quotes: []domain.IndexQuote{{Name: "KOSPI", Price: 2700, Change: 1, ChangePct: 0.04}}}
	c := New(quotes, &stubNews{results: results}, feeds, testIndices())
	c.now = fixedClock()

	doc := c.Compose(context.Background())

	require.NotEmpty(t, doc.PlainBody)
	assert.False(t, reTag.MatchString(doc.PlainBody), "plain body must not contain markup tags")
	assert.NotContains(t, doc.PlainBody, "\n\n\n", "blank-line runs must be collapsed")

	// the content survives the derivation
	assert.Contains(t, doc.PlainBody, "주식 뉴스 브리핑")
	assert.Contains(t, doc.PlainBody, "KOSPI")
	assert.Contains(t, doc.PlainBody, "기사 1")
}

func TestHTMLToPlain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "line breaks and block closings become newlines",
			in:   "a<br>b<br />c</p>d",
			want: "a\nb\nc\nd",
		},
		{
			name: "remaining tags stripped and spaces collapsed",
			in:   "<h2>제목</h2>   <span>본문</span>",
			want: "제목\n 본문",
		},
		{
			name: "blank line runs collapse",
			in:   "a</p></p></p></p>b",
			want: "a\n\nb",
		},
		{
			name: "leading and trailing whitespace trimmed",
			in:   "  <div> x </div>  ",
			want: "x",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, htmlToPlain(tt.in))
		})
	}
}
