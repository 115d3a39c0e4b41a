package offpage

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

// DomainAuthorityEstimator scores site-wide off-page strength on [0,100].
type DomainAuthorityEstimator struct {
	signals signals.Client
}

// Estimate weighs the indexing, mention and related-site signals (≤65)
// against TLD authority (≤15), age (≤10), structure (≤5) and content (≤5).
func (d *DomainAuthorityEstimator) Estimate(ctx context.Context, in Inputs) (types.Authority, error) {
	outs := signals.QueryAll(ctx, d.signals,
		signals.SiteQuery(in.Domain),
		signals.MentionQuery(in.Domain),
		signals.RelatedQuery(in.Domain),
	)
	if signals.AllFailed(outs) {
		return types.Authority{}, fmt.Errorf("domain authority: %w", signals.FirstErr(outs))
	}

	score := domainAuthorityScore(outs[0].Result.Score, outs[1].Result.Score, outs[2].Result.Score, in.Metrics, in.Content.Score)
	return types.Authority{Score: score, Level: levelFor(float64(score))}, nil
}

func domainAuthorityScore(indexed, mentioned, related float64, m types.DomainMetrics, quality int) int {
	v := 3*indexed + 2*mentioned + 1.5*related +
		1.5*float64(m.TLDAuthority) +
		10*math.Min(float64(m.AgeYears), 15)/15 +
		0.5*float64(m.StructureScore) +
		0.05*float64(quality)
	return roundClamp(v, 0, 100)
}

// PageAuthorityEstimator scores the analysed page on [0,100].
type PageAuthorityEstimator struct {
	signals signals.Client
}

// Estimate weighs page indexing (≤30) and citations of the exact URL (≤20)
// against content quality (≤30), path depth (≤10) and TLD authority (≤10).
func (p *PageAuthorityEstimator) Estimate(ctx context.Context, in Inputs) (types.Authority, error) {
	hostPath := in.Domain + strings.TrimSuffix(in.URL.EscapedPath(), "/")
	outs := signals.QueryAll(ctx, p.signals,
		signals.PageQuery(hostPath),
		signals.URLQuery(in.RawURL),
	)
	if signals.AllFailed(outs) {
		return types.Authority{}, fmt.Errorf("page authority: %w", signals.FirstErr(outs))
	}

	score := pageAuthorityScore(outs[0].Result.Score, outs[1].Result.Score, in.Content.Score, pathDepth(in.URL.Path), in.Metrics.TLDAuthority)
	return types.Authority{Score: score, Level: levelFor(float64(score))}, nil
}

func pageAuthorityScore(indexed, cited float64, quality, depth, tldAuthority int) int {
	v := 3*indexed + 2*cited + 0.3*float64(quality) + depthScore(depth) + float64(tldAuthority)
	return roundClamp(v, 0, 100)
}

// pathDepth counts the non-empty segments of path.
func pathDepth(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// depthScore favours pages close to the site root.
func depthScore(depth int) float64 {
	switch depth {
	case 0:
		return 10
	case 1:
		return 8
	case 2:
		return 6
	default:
		return 4
	}
}
