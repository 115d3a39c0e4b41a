package offpage

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/obsidianstack/offpage/internal/content"
	"github.com/obsidianstack/offpage/internal/signals"
)

// fakeSignals answers from a table. Expressions not in the table return
// def when set, otherwise a QueryError.
type fakeSignals struct {
	results map[string]signals.Result
	def     *signals.Result
	block   chan struct{} // when non-nil every query waits on it, ignoring ctx

	mu   sync.Mutex
	seen []string
}

func (f *fakeSignals) Query(_ context.Context, expr string) (signals.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, expr)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if r, ok := f.results[expr]; ok {
		return r, nil
	}
	if f.def != nil {
		return *f.def, nil
	}
	return signals.Result{}, &signals.QueryError{Expr: expr, Err: errors.New("unavailable")}
}

func failingSignals() *fakeSignals { return &fakeSignals{} }

type fakeFetcher struct {
	body string
	err  error
}

func (f fakeFetcher) Fetch(_ context.Context, url string) (*content.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &content.Page{URL: url, Body: []byte(f.body), Header: http.Header{}}, nil
}

func failingFetcher() fakeFetcher {
	return fakeFetcher{err: &content.FetchError{URL: "x", Err: errors.New("dial tcp: refused")}}
}
