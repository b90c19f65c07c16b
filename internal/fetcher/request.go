package fetcher

import (
	"net/http"
	"net/url"
)

// Request describes one fetch of a platform surface.
type Request struct {
	// URL is the target URL, without query parameters from Params.
	URL string

	// Params are appended to the URL query string.
	Params url.Values

	// Headers are extra HTTP headers to send.
	Headers http.Header

	// Cookies are request-scoped cookies, sent on top of the session jar.
	Cookies []*http.Cookie
}

// NewRequest creates a GET request for the given URL.
func NewRequest(rawURL string) *Request {
	return &Request{URL: rawURL}
}

// WithParams sets the query parameters.
func (r *Request) WithParams(params url.Values) *Request {
	r.Params = params
	return r
}

// WithCookies sets request-scoped cookies.
func (r *Request) WithCookies(cookies []*http.Cookie) *Request {
	r.Cookies = cookies
	return r
}

// FullURL returns the URL with Params encoded into the query string.
func (r *Request) FullURL() string {
	if len(r.Params) == 0 {
		return r.URL
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	q := u.Query()
	for k, vs := range r.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
