package news

import (
	"math/rand"
	"net/http"
)

// acceptLanguages contains common browser Accept-Language values; Korean
// first since the configured feeds are Korean-language
var acceptLanguages = []string{
	"ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	"ko-KR,ko;q=0.9",
	"ko,en-US;q=0.9,en;q=0.8",
	"en-US,en;q=0.9,ko;q=0.8",
}

// addBrowserHeaders adds browser-like headers for feed fetching
// feeds are often fetched by browsers too, so we want to look legitimate
func addBrowserHeaders(req *http.Request) {
	// accept header for feeds - include both RSS and HTML
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,text/html;q=0.7,*/*;q=0.5")
	// don't request compression for feeds - simpler to handle
	req.Header.Set("Cache-Control", "no-cache")

	// randomized language
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation

	// connection header
	req.Header.Set("Connection", "keep-alive")
}
