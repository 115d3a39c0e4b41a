package offpage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

const maxCompetitors = 3

// Competitive positions.
const (
	PositionLeader     = "Leader"
	PositionChallenger = "Challenger"
	PositionFollower   = "Follower"
	PositionUnknown    = "Unknown"
)

// CompetitorEstimator compares the site's index footprint with the sites
// the search engine considers related.
type CompetitorEstimator struct {
	signals signals.Client
}

func (c *CompetitorEstimator) Estimate(ctx context.Context, in Inputs) (types.Competitors, error) {
	outs := signals.QueryAll(ctx, c.signals,
		signals.RelatedQuery(in.Domain),
		signals.SiteQuery(in.Domain),
	)
	if signals.AllFailed(outs) {
		return types.Competitors{}, fmt.Errorf("competitors: %w", signals.FirstErr(outs))
	}

	res := types.Competitors{
		Domains:    []types.Competitor{},
		OwnIndexed: int(outs[1].Result.Count),
		Position:   PositionUnknown,
	}
	rivals := competitorDomains(outs[0].Result.Results, in.Domain)
	if len(rivals) == 0 {
		return res, nil
	}

	exprs := make([]string, len(rivals))
	for i, d := range rivals {
		exprs[i] = signals.SiteQuery(d)
	}
	var total int
	for i, o := range signals.QueryAll(ctx, c.signals, exprs...) {
		n := int(o.Result.Count)
		total += n
		res.Domains = append(res.Domains, types.Competitor{Domain: rivals[i], IndexedPages: n})
	}
	res.AverageIndexed = total / len(rivals)
	res.Score = competitorScore(res.OwnIndexed, res.AverageIndexed)
	res.Position = positionFor(res.Score)
	return res, nil
}

// competitorScore is 5 at parity, rising to 10 when the competitors have no
// footprint and falling to 0 when the site has none.
func competitorScore(own, avg int) int {
	hi := max(own, avg)
	if hi == 0 {
		return 5
	}
	return roundClamp(5+5*float64(own-avg)/float64(hi), 0, 10)
}

func positionFor(score int) string {
	switch {
	case score >= 7:
		return PositionLeader
	case score >= 4:
		return PositionChallenger
	default:
		return PositionFollower
	}
}

// competitorDomains normalises related results (URLs or bare hosts) to
// distinct host names other than self, keeping service order.
func competitorDomains(results []string, self string) []string {
	self = strings.TrimPrefix(self, "www.")
	seen := map[string]bool{self: true}
	var out []string
	for _, r := range results {
		host := r
		if strings.Contains(r, "://") {
			u, err := url.Parse(r)
			if err != nil {
				continue
			}
			host = u.Hostname()
		} else if i := strings.IndexByte(host, '/'); i >= 0 {
			host = host[:i]
		}
		host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
		if len(out) == maxCompetitors {
			break
		}
	}
	return out
}
