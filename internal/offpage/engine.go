package offpage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/offpage/internal/content"
	"github.com/obsidianstack/offpage/internal/domainmetrics"
	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

// DefaultEstimatorTimeout bounds each estimator and the content fetch.
const DefaultEstimatorTimeout = 15 * time.Second

// ErrInvalidURL is returned by Analyze for input that is not an absolute
// http(s) URL with a host.
var ErrInvalidURL = errors.New("invalid url")

// Inputs are the read-only values shared by every estimator in one analysis.
type Inputs struct {
	URL     *url.URL
	RawURL  string
	Domain  string // lower-case host name
	Brand   string // registrable label, e.g. "example" for www.example.co.uk
	Metrics types.DomainMetrics
	Content types.ContentReport
}

// Observer receives per-facet and per-analysis outcomes. Optional.
type Observer interface {
	ObserveFacet(facet string, d time.Duration, degraded bool)
	ObserveAnalysis(d time.Duration, degradedFacets int)
}

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Signals  signals.Client
	Fetcher  content.Fetcher
	Rand     jitter.Source
	Observer Observer
}

// Options tune an Engine. Zero values take defaults.
type Options struct {
	EstimatorTimeout time.Duration
	Now              func() time.Time
}

// Engine runs off-page analyses. It is safe for concurrent use provided its
// Deps are.
type Engine struct {
	backlinks   *BacklinkEstimator
	domainAuth  *DomainAuthorityEstimator
	pageAuth    *PageAuthorityEstimator
	social      *SocialEstimator
	mentions    *MentionEstimator
	indexing    *IndexingEstimator
	competitors *CompetitorEstimator
	content     *content.Estimator

	rand     jitter.Source
	timeout  time.Duration
	now      func() time.Time
	observer Observer
}

// NewEngine wires the seven estimators to d.
func NewEngine(d Deps, opts Options) *Engine {
	if d.Rand == nil {
		d.Rand = jitter.New(0)
	}
	if opts.EstimatorTimeout <= 0 {
		opts.EstimatorTimeout = DefaultEstimatorTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		backlinks:   &BacklinkEstimator{signals: d.Signals, rand: d.Rand},
		domainAuth:  &DomainAuthorityEstimator{signals: d.Signals},
		pageAuth:    &PageAuthorityEstimator{signals: d.Signals},
		social:      &SocialEstimator{signals: d.Signals},
		mentions:    &MentionEstimator{signals: d.Signals},
		indexing:    &IndexingEstimator{signals: d.Signals},
		competitors: &CompetitorEstimator{signals: d.Signals},
		content:     content.NewEstimator(d.Fetcher, d.Rand),
		rand:        d.Rand,
		timeout:     opts.EstimatorTimeout,
		now:         opts.Now,
		observer:    d.Observer,
	}
}

// Analyze estimates the off-page authority of rawURL.
//
// The returned result is always complete. For a malformed URL it is
// DefaultResult and err wraps ErrInvalidURL; otherwise err is nil and any
// facet whose estimator failed or timed out holds its fallback value.
func (e *Engine) Analyze(ctx context.Context, rawURL string) (res types.OffPageResult, err error) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("offpage: analysis aborted", "url", rawURL, "panic", r)
			res, err = DefaultResult(rawURL, start), fmt.Errorf("offpage: analysis aborted: %v", r)
		}
	}()

	u, err := parseURL(rawURL)
	if err != nil {
		slog.Warn("offpage: rejected url", "url", rawURL, "err", err)
		return DefaultResult(rawURL, start), err
	}

	in := Inputs{URL: u, RawURL: rawURL, Domain: strings.ToLower(u.Hostname())}
	in.Metrics = domainmetrics.Estimate(in.Domain, e.rand)
	in.Brand = in.Metrics.Name
	in.Content, _ = isolate(ctx, e.timeout, "content",
		func(ctx context.Context) (types.ContentReport, error) {
			return e.content.Estimate(ctx, rawURL), nil
		},
		func() types.ContentReport {
			return types.ContentReport{Score: jitter.Range(e.rand, 30, 70), Degraded: true}
		})

	res = types.OffPageResult{
		URL:           rawURL,
		Domain:        in.Domain,
		AnalyzedAt:    start,
		DomainMetrics: in.Metrics,
		Content:       in.Content,
	}

	// Each goroutine writes a distinct field of res. Estimators never return
	// an error to the group; isolate turns failures into fallbacks.
	var g errgroup.Group
	g.Go(func() error {
		res.Backlinks = runFacet(ctx, e, types.FacetBacklinks, in, e.backlinks.Estimate,
			func() types.Backlinks { return fallbackBacklinks(e.rand) })
		return nil
	})
	g.Go(func() error {
		res.DomainAuth = runFacet(ctx, e, types.FacetDomainAuthority, in, e.domainAuth.Estimate,
			func() types.Authority { return fallbackAuthority(e.rand) })
		return nil
	})
	g.Go(func() error {
		res.PageAuth = runFacet(ctx, e, types.FacetPageAuthority, in, e.pageAuth.Estimate,
			func() types.Authority { return fallbackAuthority(e.rand) })
		return nil
	})
	g.Go(func() error {
		res.Social = runFacet(ctx, e, types.FacetSocial, in, e.social.Estimate, fallbackSocial)
		return nil
	})
	g.Go(func() error {
		res.Mentions = runFacet(ctx, e, types.FacetMentions, in, e.mentions.Estimate,
			func() types.Mentions { return fallbackMentions(e.rand) })
		return nil
	})
	g.Go(func() error {
		res.Indexing = runFacet(ctx, e, types.FacetIndexing, in, e.indexing.Estimate, fallbackIndexing)
		return nil
	})
	g.Go(func() error {
		res.Competitors = runFacet(ctx, e, types.FacetCompetitors, in, e.competitors.Estimate, fallbackCompetitors)
		return nil
	})
	_ = g.Wait()

	res.Score = composite(&res)
	res.Level = levelFor(float64(res.Score))
	res.DegradedFacets = degradedFacets(&res)

	if e.observer != nil {
		e.observer.ObserveAnalysis(e.now().Sub(start), len(res.DegradedFacets))
	}
	slog.Info("offpage: analysis complete",
		"url", rawURL,
		"score", res.Score,
		"level", res.Level,
		"degraded", len(res.DegradedFacets),
	)
	return res, nil
}

// runFacet runs one estimator under isolation and reports the outcome.
func runFacet[T any](ctx context.Context, e *Engine, facet string, in Inputs,
	estimate func(context.Context, Inputs) (T, error), fallback func() T) T {
	start := e.now()
	v, degraded := isolate(ctx, e.timeout, facet,
		func(ctx context.Context) (T, error) { return estimate(ctx, in) },
		fallback)
	if e.observer != nil {
		e.observer.ObserveFacet(facet, e.now().Sub(start), degraded)
	}
	return v
}

// isolate runs fn with a timeout and a panic guard. On error, panic or
// timeout it logs the cause and returns fallback() with degraded set.
// fn keeps running in the background after a timeout if it ignores ctx;
// its result is discarded.
func isolate[T any](ctx context.Context, timeout time.Duration, facet string,
	fn func(context.Context) (T, error), fallback func() T) (T, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- outcome{v: v, err: err}
	}()

	var err error
	select {
	case o := <-ch:
		if o.err == nil {
			return o.v, false
		}
		err = o.err
	case <-ctx.Done():
		err = ctx.Err()
	}

	slog.Warn("offpage: estimator failed, using fallback", "facet", facet, "err", err)
	return fallback(), true
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q is not http or https", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

func degradedFacets(r *types.OffPageResult) []string {
	flags := []bool{
		r.Backlinks.Degraded,
		r.DomainAuth.Degraded,
		r.PageAuth.Degraded,
		r.Social.Degraded,
		r.Mentions.Degraded,
		r.Indexing.Degraded,
		r.Competitors.Degraded,
	}
	out := []string{}
	for i, d := range flags {
		if d {
			out = append(out, types.Facets[i])
		}
	}
	return out
}
