package content

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/pkg/types"
)

// Score range substituted when the page cannot be fetched.
const (
	unknownScoreMin = 30
	unknownScoreMax = 70
)

// Estimator scores the content quality of a page.
type Estimator struct {
	fetcher Fetcher
	rand    jitter.Source
}

// NewEstimator returns an Estimator that fetches pages with f and draws its
// failure fallback from src.
func NewEstimator(f Fetcher, src jitter.Source) *Estimator {
	return &Estimator{fetcher: f, rand: src}
}

// Estimate fetches url and scores it. It never fails: a fetch or parse error
// yields a degraded report with a plausible random score.
func (e *Estimator) Estimate(ctx context.Context, url string) types.ContentReport {
	page, err := e.fetcher.Fetch(ctx, url)
	if err == nil {
		var rep types.ContentReport
		if rep, err = Inspect(page); err == nil {
			return rep
		}
	}
	slog.Warn("content: quality check failed, using fallback", "url", url, "err", err)
	return types.ContentReport{
		Score:    jitter.Range(e.rand, unknownScoreMin, unknownScoreMax),
		Degraded: true,
	}
}

// Inspect extracts quality signals from page and scores them.
func Inspect(page *Page) (types.ContentReport, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return types.ContentReport{}, fmt.Errorf("parse html: %w", err)
	}

	rep := types.ContentReport{
		Bytes:          len(page.Body),
		HasTitle:       strings.TrimSpace(doc.Find("title").First().Text()) != "",
		HasH1:          doc.Find("h1").Length() > 0,
		HasImages:      doc.Find("img").Length() > 0,
		HasLinks:       doc.Find("a[href]").Length() > 0,
		HasCacheHeader: page.Header.Get("Cache-Control") != "",
	}

	rep.HasSchema = doc.Find(`script[type="application/ld+json"]`).Length() > 0 ||
		bytes.Contains(bytes.ToLower(page.Body), []byte("schema.org"))

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		prop, _ := s.Attr("property")
		switch {
		case strings.EqualFold(name, "description"):
			rep.HasDescription = true
		case strings.EqualFold(name, "viewport"):
			rep.HasViewport = true
		}
		if strings.HasPrefix(strings.ToLower(prop), "og:") {
			rep.HasOpenGraph = true
		}
	})

	// Scripts and styles are not reader-visible text.
	doc.Find("script, style, noscript").Remove()
	rep.WordCount = len(strings.Fields(doc.Find("body").Text()))

	rep.Score = Score(rep)
	return rep, nil
}

// Score converts quality signals into a 0–100 score.
func Score(r types.ContentReport) int {
	score := 0

	switch {
	case r.WordCount > 500:
		score += 15
	case r.WordCount > 200:
		score += 10
	case r.WordCount > 100:
		score += 5
	}
	switch {
	case r.Bytes > 50000:
		score += 10
	case r.Bytes > 20000:
		score += 7
	case r.Bytes > 10000:
		score += 5
	}

	if r.HasImages {
		score += 8
	}
	if r.HasLinks {
		score += 7
	}

	if r.HasTitle {
		score += 10
	}
	if r.HasDescription {
		score += 8
	}
	if r.HasH1 {
		score += 7
	}
	if r.HasViewport {
		score += 5
	}

	if r.HasSchema {
		score += 15
	}
	if r.HasOpenGraph {
		score += 10
	}
	if r.HasCacheHeader {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}
