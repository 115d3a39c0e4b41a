package offpage

import (
	"context"
	"fmt"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

// socialPlatforms are queried in this order.
var socialPlatforms = []string{"facebook.com", "twitter.com", "linkedin.com", "reddit.com"}

// SocialEstimator scores social presence on [0,10].
type SocialEstimator struct {
	signals signals.Client
}

func (s *SocialEstimator) Estimate(ctx context.Context, in Inputs) (types.SocialSignals, error) {
	exprs := make([]string, len(socialPlatforms))
	for i, p := range socialPlatforms {
		exprs[i] = signals.PlatformQuery(p, in.Domain)
	}
	outs := signals.QueryAll(ctx, s.signals, exprs...)
	if signals.AllFailed(outs) {
		return types.SocialSignals{}, fmt.Errorf("social signals: %w", signals.FirstErr(outs))
	}

	res := types.SocialSignals{
		Facebook: int(outs[0].Result.Count),
		Twitter:  int(outs[1].Result.Count),
		LinkedIn: int(outs[2].Result.Count),
		Reddit:   int(outs[3].Result.Count),
	}
	res.Total = res.Facebook + res.Twitter + res.LinkedIn + res.Reddit

	var sum float64
	present := 0
	for _, o := range outs {
		sum += o.Result.Score
		if o.Result.Count > 0 {
			present++
		}
	}
	res.Score = socialScore(sum/float64(len(outs)), present, len(outs), in.Content.HasOpenGraph, in.Metrics.TLDAuthority)
	res.Level = levelFor(float64(res.Score) * 10)
	return res, nil
}

// socialScore: mean platform signal (≤6), breadth of presence (≤2),
// Open Graph markup (1) and TLD authority (≤1).
func socialScore(meanSignal float64, present, platforms int, openGraph bool, tldAuthority int) int {
	v := 0.6*meanSignal +
		2*float64(present)/float64(platforms) +
		boolScore(openGraph, 1) +
		0.1*float64(tldAuthority)
	return roundClamp(v, 0, 10)
}
