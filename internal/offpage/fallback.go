package offpage

import (
	"time"

	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/pkg/types"
)

// Fallback values substituted for a failed estimator. The random bands are
// "unknown but plausible" stand-ins, not measurements.

func fallbackBacklinks(src jitter.Source) types.Backlinks {
	score := float64(jitter.Range(src, 3, 8))
	return types.Backlinks{
		Count:    jitter.Range(src, 5, 55),
		Score:    score,
		Level:    levelFor(score * 10),
		Sources:  []types.BacklinkSource{},
		Degraded: true,
	}
}

func fallbackAuthority(src jitter.Source) types.Authority {
	return types.Authority{
		Score:    jitter.Range(src, 20, 60),
		Level:    types.LevelAverage,
		Degraded: true,
	}
}

func fallbackSocial() types.SocialSignals {
	return types.SocialSignals{Level: types.LevelLow, Degraded: true}
}

func fallbackMentions(src jitter.Source) types.Mentions {
	score := jitter.Range(src, 3, 8)
	return types.Mentions{
		Count:    jitter.Range(src, 10, 60),
		Score:    score,
		Level:    levelFor(float64(score) * 10),
		Degraded: true,
	}
}

func fallbackIndexing() types.Indexing {
	return types.Indexing{Degraded: true}
}

func fallbackCompetitors() types.Competitors {
	return types.Competitors{Degraded: true}
}

// DefaultResult is the fully-defaulted result returned when an analysis
// cannot start at all, e.g. for a malformed URL. Every facet is degraded.
func DefaultResult(rawURL string, now time.Time) types.OffPageResult {
	return types.OffPageResult{
		URL:            rawURL,
		AnalyzedAt:     now,
		Level:          types.LevelLow,
		Content:        types.ContentReport{Degraded: true},
		Backlinks:      types.Backlinks{Sources: []types.BacklinkSource{}, Degraded: true},
		DomainAuth:     types.Authority{Degraded: true},
		PageAuth:       types.Authority{Degraded: true},
		Social:         types.SocialSignals{Degraded: true},
		Mentions:       types.Mentions{Degraded: true},
		Indexing:       types.Indexing{Degraded: true},
		Competitors:    types.Competitors{Degraded: true},
		DegradedFacets: append([]string(nil), types.Facets...),
	}
}
