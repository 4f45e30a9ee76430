package compose

import (
	"regexp"
	"strings"
)

var (
	reLineBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlockClose = regexp.MustCompile(`(?i)</(p|div|tr|li|h[1-6])>`)
	reTag        = regexp.MustCompile(`<[^>]+>`)
	reSpaces     = regexp.MustCompile(` +`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// htmlToPlain derives the plain-text alternative mechanically from the
// rendered markup: line breaks and block-closing tags become newlines, the
// remaining tags are stripped. Mail clients that truncate or prefer
// text/plain still get the complete content.
func htmlToPlain(htmlBody string) string {
	text := reLineBreak.ReplaceAllString(htmlBody, "\n")
	text = reBlockClose.ReplaceAllString(text, "\n")
	text = reTag.ReplaceAllString(text, " ")
	text = reSpaces.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return reBlankLines.ReplaceAllString(text, "\n\n")
}
