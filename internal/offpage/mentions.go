package offpage

import (
	"context"
	"fmt"
	"math"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

const maxMentionSamples = 5

// MentionEstimator scores brand mentions across the web, news and
// discussion sites on [0,10].
type MentionEstimator struct {
	signals signals.Client
}

func (m *MentionEstimator) Estimate(ctx context.Context, in Inputs) (types.Mentions, error) {
	brand := in.Brand
	if brand == "" {
		brand = in.Domain
	}
	outs := signals.QueryAll(ctx, m.signals,
		signals.MentionQuery(in.Domain),
		signals.NewsQuery(brand, in.Domain),
		signals.DiscussionQuery(brand),
	)
	if signals.AllFailed(outs) {
		return types.Mentions{}, fmt.Errorf("mentions: %w", signals.FirstErr(outs))
	}
	web, news, disc := outs[0].Result, outs[1].Result, outs[2].Result

	res := types.Mentions{
		Web:        int(web.Count),
		News:       int(news.Count),
		Discussion: int(disc.Count),
	}
	res.Count = res.Web + res.News + res.Discussion
	res.Score = mentionScore(web.Score, news.Score, disc.Score, int64(res.Count))
	res.Level = levelFor(float64(res.Score) * 10)
	if len(web.Results) > 0 {
		res.Samples = append([]string(nil), web.Results[:min(len(web.Results), maxMentionSamples)]...)
	}
	return res, nil
}

// mentionScore: weighted channel signal (≤10) plus a log-volume bonus (≤1).
func mentionScore(web, news, discussion float64, total int64) int {
	v := 0.5*web + 0.25*news + 0.25*discussion +
		math.Min(math.Log10(float64(max(total, 0))+1), 3)/3
	return roundClamp(v, 0, 10)
}
