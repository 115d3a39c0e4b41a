package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 5 << 20
	defaultUserAgent    = "offpage/1.0 (+https://github.com/obsidianstack/offpage)"
)

// Page is a fetched HTML document together with its response headers.
type Page struct {
	URL    string
	Body   []byte
	Header http.Header
}

// Fetcher retrieves a page. Implementations return a *FetchError on
// network, timeout or non-2xx failures.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// FetchError describes a failed page fetch.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetcherOptions configures an HTTPFetcher. Zero values take defaults.
type FetcherOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPFetcher builds an HTTPFetcher. The client is created once and reused.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &userAgentRoundTripper{base: http.DefaultTransport, agent: opts.UserAgent},
			Timeout:   opts.Timeout,
		},
		maxBody: opts.MaxBodyBytes,
	}
}

// userAgentRoundTripper injects the User-Agent header into every request.
type userAgentRoundTripper struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	}
	return t.base.RoundTrip(req)
}

// Fetch performs an HTTP GET and returns the body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("detect charset: %w", err)}
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Page{URL: url, Body: body, Header: resp.Header}, nil
}
