package fetcher

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Page is the parsed result of a successful fetch. The goquery document
// and the XPath node tree are built lazily from the raw body.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw (decompressed) response body.
	Body []byte

	// FetchedAt is when the response was received.
	FetchedAt time.Time

	doc  *goquery.Document
	root *html.Node
}

// Document returns a parsed goquery document, lazily initializing it.
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.doc = doc
	return doc, nil
}

// Root returns the HTML node tree for XPath queries, lazily parsing it.
func (p *Page) Root() (*html.Node, error) {
	if p.root != nil {
		return p.root, nil
	}
	root, err := htmlquery.Parse(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.root = root
	return root, nil
}

// JSON decodes the body into v.
func (p *Page) JSON(v any) error {
	return json.Unmarshal(p.Body, v)
}

// XPathText evaluates an XPath expression and returns the trimmed text
// of the first match, or nil when nothing matches. Malformed documents
// and expressions are recovered as nil: extraction functions never fail
// on absence.
func (p *Page) XPathText(expr string) *string {
	node := p.XPathNode(expr)
	if node == nil {
		return nil
	}
	text := strings.TrimSpace(htmlquery.InnerText(node))
	if text == "" {
		return nil
	}
	return &text
}

// XPathAll returns the trimmed text of every match, in document order.
// Empty matches are dropped; no match yields a nil slice.
func (p *Page) XPathAll(expr string) []string {
	root, err := p.Root()
	if err != nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range nodes {
		if text := strings.TrimSpace(htmlquery.InnerText(n)); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// XPathNode returns the first node matching the expression, or nil.
func (p *Page) XPathNode(expr string) *html.Node {
	root, err := p.Root()
	if err != nil {
		return nil
	}
	node, err := htmlquery.Query(root, expr)
	if err != nil {
		return nil
	}
	return node
}

// NewPageFromHTML builds a Page directly from markup. Used by comment
// adapters to re-parse embedded HTML fragments and by tests.
func NewPageFromHTML(rawURL, markup string) *Page {
	return &Page{
		URL:        rawURL,
		FinalURL:   rawURL,
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		Body:       []byte(markup),
		FetchedAt:  time.Now(),
	}
}
