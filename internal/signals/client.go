// Package signals executes operator-style search queries (site:, related:,
// quoted mentions) against an external search-signal service and returns a
// result count plus a normalised 0–10 score per query.
package signals

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one query.
type Result struct {
	Count   int64    // total results reported by the service
	Score   float64  // normalised signal strength, 0–10
	Results []string // top result URLs or domains, service order
}

// Client executes a single query expression. Implementations return a
// *QueryError on failure.
type Client interface {
	Query(ctx context.Context, expr string) (Result, error)
}

// QueryError describes a failed query.
type QueryError struct {
	Expr       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *QueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("query %q: unexpected status %d", e.Expr, e.StatusCode)
	}
	return fmt.Sprintf("query %q: %v", e.Expr, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrUnavailable is the cause carried by every Unavailable query failure.
var ErrUnavailable = errors.New("no search-signal service configured")

// Unavailable is the Client used when no signal service is configured.
// Every query fails, so every signal-backed facet takes its fallback.
type Unavailable struct{}

func (Unavailable) Query(_ context.Context, expr string) (Result, error) {
	return Result{}, &QueryError{Expr: expr, Err: ErrUnavailable}
}

// MaxCount caps the result count of a single query. Estimators sum counts
// across queries, so the cap keeps every sum far from overflow.
const MaxCount int64 = 1e12

// Outcome pairs a query expression with its result. A failed query carries
// Err and a zero Result, so it contributes no signal.
type Outcome struct {
	Expr   string
	Result Result
	Err    error
}

// QueryAll runs exprs concurrently and returns their outcomes in input order.
// Counts are clamped to [0, MaxCount]. Individual failures, including a
// panicking Client, do not cancel the other queries.
func QueryAll(ctx context.Context, c Client, exprs ...string) []Outcome {
	out := make([]Outcome, len(exprs))
	var g errgroup.Group
	for i, expr := range exprs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					out[i] = Outcome{Expr: expr, Err: &QueryError{Expr: expr, Err: fmt.Errorf("panic: %v", r)}}
				}
			}()
			res, err := c.Query(ctx, expr)
			if err != nil {
				res = Result{}
			}
			res.Count = min(max(res.Count, 0), MaxCount)
			out[i] = Outcome{Expr: expr, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// AllFailed reports whether every outcome failed. An empty slice has not failed.
func AllFailed(outs []Outcome) bool {
	if len(outs) == 0 {
		return false
	}
	for _, o := range outs {
		if o.Err == nil {
			return false
		}
	}
	return true
}

// FirstErr returns the first failure among outs, or nil.
func FirstErr(outs []Outcome) error {
	for _, o := range outs {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// NormalizeCount maps a raw result count to a 0–10 score on a log scale:
// 10 results ≈ 2, 1000 ≈ 6, 100000 and above = 10.
func NormalizeCount(count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(10, math.Log10(float64(count)+1)*2)
}
