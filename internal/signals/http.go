package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultQueryTimeout = 10 * time.Second
	defaultRate         = 2
	defaultBurst        = 4
	defaultKeyHeader    = "x-api-key"
)

// HTTPOptions configures an HTTPClient. Zero values take defaults.
type HTTPOptions struct {
	Endpoint      string // e.g. https://signals.internal/v1/query
	APIKey        string
	KeyHeader     string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// HTTPClient queries a search-signal service over HTTP:
//
//	GET {endpoint}?q={expr}
//	200 {"result_count": 1234, "score": 6.2, "results": ["https://..."]}
//
// A missing score is derived from result_count with NormalizeCount.
// Queries are throttled by a shared token bucket.
type HTTPClient struct {
	endpoint  string
	apiKey    string
	keyHeader string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewHTTPClient builds an HTTPClient.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("signals: endpoint is required")
	}
	if _, err := url.Parse(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("signals: parse endpoint: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultQueryTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.KeyHeader == "" {
		opts.KeyHeader = defaultKeyHeader
	}
	return &HTTPClient{
		endpoint:  opts.Endpoint,
		apiKey:    opts.APIKey,
		keyHeader: opts.KeyHeader,
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
	}, nil
}

type queryResponse struct {
	ResultCount int64    `json:"result_count"`
	Score       *float64 `json:"score"`
	Results     []string `json:"results"`
}

// Query executes expr against the service.
func (c *HTTPClient) Query(ctx context.Context, expr string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, &QueryError{Expr: expr, Err: fmt.Errorf("rate limit: %w", err)}
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Result{}, &QueryError{Expr: expr, Err: err}
	}
	q := u.Query()
	q.Set("q", expr)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, &QueryError{Expr: expr, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, &QueryError{Expr: expr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &QueryError{Expr: expr, StatusCode: resp.StatusCode}
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, &QueryError{Expr: expr, Err: fmt.Errorf("decode response: %w", err)}
	}

	res := Result{Count: body.ResultCount, Results: body.Results}
	if res.Count < 0 {
		res.Count = 0
	}
	if body.Score != nil {
		res.Score = clamp(*body.Score, 0, 10)
	} else {
		res.Score = NormalizeCount(res.Count)
	}
	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
