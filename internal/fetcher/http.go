package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/NepZR/brnews/internal/config"
	"github.com/NepZR/brnews/internal/types"
)

// HTTPFetcher implements Fetcher using net/http with a fixed retry
// budget. Before every retry it drops all session cookies and waits a
// fixed delay: the portals' anti-scraping layer poisons session cookies
// to force empty responses, and a clean jar defeats that.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
	jarMu      sync.Mutex
}

// NewHTTPFetcher creates an HTTP fetcher with its own cookie session.
// Each adapter should own an independent fetcher so that the session
// reset side effect never interrupts another adapter's request.
func NewHTTPFetcher(cfg *config.FetcherConfig, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.MaxRedirects)
		}
		return nil
	}

	client := &http.Client{
		Transport:     transport,
		Jar:           jar,
		Timeout:       cfg.RequestTimeout,
		CheckRedirect: redirectPolicy,
	}

	return &HTTPFetcher{
		client:     client,
		cfg:        cfg,
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.UserAgents,
	}, nil
}

// Fetch runs the bounded-retry loop around doFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Page, error) {
	for attempt := 1; attempt <= f.cfg.RetryBudget; attempt++ {
		page, err := f.doFetch(ctx, req)
		if err == nil {
			return page, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		var fetchErr *types.FetchError
		if !errors.As(err, &fetchErr) {
			// Not a transport fault: a bad request the caller built.
			return nil, err
		}
		if !fetchErr.Retryable {
			// Non-retryable status: page absent, immediately.
			f.logger.Debug("fetch refused", "url", req.URL, "status", fetchErr.StatusCode)
			return nil, nil
		}

		f.logger.Warn("transient fetch fault, resetting session before retry",
			"url", req.URL,
			"attempt", attempt,
			"budget", f.cfg.RetryBudget,
			"error", err,
		)
		f.ResetSession()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.cfg.RetryDelay):
		}
	}

	f.logger.Warn("retry budget exhausted", "url", req.URL, "budget", f.cfg.RetryBudget)
	return nil, nil
}

// doFetch executes a single HTTP attempt.
func (f *HTTPFetcher) doFetch(ctx context.Context, req *Request) (*Page, error) {
	target := req.FullURL()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		// A request that cannot even be built is a caller mistake, not
		// a server fault; it must not be mistaken for an absent page.
		return nil, fmt.Errorf("build request for %q: %w", target, err)
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	httpReq.Header.Set("Connection", "keep-alive")

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(c)
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &types.FetchError{
			URL:       target,
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	// 429 and 5xx are the server-side transient classes.
	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        target,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(body)),
			Retryable:  true,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &types.FetchError{
			URL:        target,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", httpResp.StatusCode),
			Retryable:  false,
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: target, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		// A body cut off mid-stream is the chunked-encoding fault class.
		return nil, &types.FetchError{URL: target, Err: err, Retryable: true}
	}

	return &Page{
		URL:        req.URL,
		FinalURL:   httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}

// ResetSession replaces the cookie jar, dropping all session state.
func (f *HTTPFetcher) ResetSession() {
	f.jarMu.Lock()
	defer f.jarMu.Unlock()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	f.client.Jar = jar
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "brnews/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry. Covers
// timeouts, connection resets, unexpected EOF, protocol errors, and
// connection refused.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if netErr, ok := err.(net.Error); ok {
		if netErr.Timeout() {
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.EPIPE) {
			return true
		}
	}
	return false
}
