package offpage

import (
	"math"

	"github.com/obsidianstack/offpage/pkg/types"
)

// Level thresholds on a 0–100 scale.
const (
	thresholdExcellent = 80.0
	thresholdVeryGood  = 70.0
	thresholdGood      = 60.0
	thresholdAverage   = 50.0
	thresholdWeak      = 40.0
)

// Composite weights. They must sum to 1.0.
const (
	weightDomainAuth  = 0.25
	weightPageAuth    = 0.15
	weightBacklinks   = 0.25
	weightSocial      = 0.10
	weightMentions    = 0.10
	weightIndexing    = 0.10
	weightCompetitors = 0.05
)

// levelFor maps a 0–100 score to its named level.
func levelFor(score float64) string {
	switch {
	case score >= thresholdExcellent:
		return types.LevelExcellent
	case score >= thresholdVeryGood:
		return types.LevelVeryGood
	case score >= thresholdGood:
		return types.LevelGood
	case score >= thresholdAverage:
		return types.LevelAverage
	case score >= thresholdWeak:
		return types.LevelWeak
	default:
		return types.LevelLow
	}
}

// composite combines the facet scores into the overall 0–100 score.
func composite(r *types.OffPageResult) int {
	v := weightDomainAuth*float64(r.DomainAuth.Score) +
		weightPageAuth*float64(r.PageAuth.Score) +
		weightBacklinks*r.Backlinks.Score*10 +
		weightSocial*float64(r.Social.Score)*10 +
		weightMentions*float64(r.Mentions.Score)*10 +
		weightIndexing*float64(r.Indexing.Score)*10 +
		weightCompetitors*float64(r.Competitors.Score)*10
	return roundClamp(v, 0, 100)
}

// roundClamp rounds v to the nearest integer within [lo, hi].
func roundClamp(v, lo, hi float64) int {
	return int(math.Round(clamp(v, lo, hi)))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolScore(b bool, pts float64) float64 {
	if b {
		return pts
	}
	return 0
}
