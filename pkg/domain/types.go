package domain

// FeedSource is a configured RSS feed, one per section of the briefing
type FeedSource struct {
	Name string // display label used as the section header
	URL  string
}

// IndexSource is a configured market index tracked in the quote table
type IndexSource struct {
	Name   string // display label, e.g. "KOSPI"
	Symbol string // chart API symbol, e.g. "^KS11"
}

// NewsItem is a single normalized news entry extracted from a feed.
// PubDate keeps the feed-provided string as-is, it is display-only.
type NewsItem struct {
	Title       string
	Link        string
	Description string
	PubDate     string
	Source      string
}

// IndexQuote holds the latest price and change for one index,
// all values rounded to two decimal places
type IndexQuote struct {
	Name      string
	Price     float64
	Change    float64
	ChangePct float64
}

// FeedResult is the outcome of fetching a single feed. A failed fetch
// carries the error and zero items; the run continues either way.
type FeedResult struct {
	Source FeedSource
	Items  []NewsItem
	Err    error
}

// Failed reports whether the feed fetch failed outright
func (r FeedResult) Failed() bool { return r.Err != nil }

// RenderedDocument is the composed briefing, identical for every recipient
type RenderedDocument struct {
	Subject   string
	HTMLBody  string
	PlainBody string
}
