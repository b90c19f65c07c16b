// Package normalize holds the coercion rules shared by all adapters:
// timestamps, whitespace, tag joining, and HTML-to-text stripping.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

// Platform-observed timestamp layouts, tried in order before the
// lenient fallback.
var layouts = []string{
	"2006-01-02T15:04:05.000Z", // G1 datePublished
	"2006-01-02T15:04:05",      // Exame WordPress payload
	"2006-01-02 15:04:05",      // Folha published_time / comment date
	time.RFC3339,
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Date coerces a raw timestamp string. Parse failures yield nil, never
// an error: an unparseable date degrades the record, not the crawl.
func Date(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		return &t
	}
	return nil
}

// Tags joins tag values into the canonical pipe-delimited form, or nil
// when there are none.
func Tags(tags []string) *string {
	var kept []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			kept = append(kept, tag)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	joined := strings.Join(kept, " | ")
	return &joined
}

// Spaces collapses runs of whitespace into single spaces and trims.
func Spaces(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}

// StripHTML reduces markup to its plain text content. Comment bodies
// arrive as HTML fragments; storage keeps only the text.
func StripHTML(fragment string) string {
	node, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return Spaces(fragment)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return Spaces(sb.String())
}
