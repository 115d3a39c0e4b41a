package offpage

import (
	"context"
	"fmt"
	"math"

	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

// Blend weights between the signal-based and traditional estimates.
const (
	blendSignal      = 0.7
	blendTraditional = 0.3
)

// Signal estimate weights and bounds.
const (
	weightIndexed   = 0.1
	weightMentioned = 0.3
	weightRelated   = 0.5
	signalMin       = 5
	signalMax       = 5000
)

const (
	maxSampledSources  = 25
	maxReportedSources = 10
	maxSampleAttempts  = 200
)

// sourceCategory is one class of referring site used to synthesise a
// representative source list. Weights sum to 100.
type sourceCategory struct {
	name    string
	weight  int
	domains []string
}

var sourceCategories = []sourceCategory{
	{"social", 25, []string{"facebook.com", "twitter.com", "linkedin.com", "instagram.com", "pinterest.com", "tumblr.com"}},
	{"forum_news", 20, []string{"reddit.com", "quora.com", "medium.com", "news.ycombinator.com", "stackexchange.com", "producthunt.com"}},
	{"media_profile", 15, []string{"youtube.com", "vimeo.com", "github.com", "about.me", "crunchbase.com", "gravatar.com"}},
	{"referral_partner", 25, []string{"wikipedia.org", "archive.org", "wordpress.com", "blogspot.com", "substack.com", "slideshare.net"}},
	{"local_industry", 15, []string{"yelp.com", "yellowpages.com", "trustpilot.com", "clutch.co", "g2.com", "foursquare.com"}},
}

// BacklinkEstimator estimates inbound link volume and quality.
type BacklinkEstimator struct {
	signals signals.Client
	rand    jitter.Source
}

// Estimate blends a search-signal estimate with a structural one and
// samples a representative list of referring sources.
func (b *BacklinkEstimator) Estimate(ctx context.Context, in Inputs) (types.Backlinks, error) {
	outs := signals.QueryAll(ctx, b.signals,
		signals.SiteQuery(in.Domain),
		signals.MentionQuery(in.Domain),
		signals.RelatedQuery(in.Domain),
	)
	if signals.AllFailed(outs) {
		return types.Backlinks{}, fmt.Errorf("backlinks: %w", signals.FirstErr(outs))
	}
	indexed, mentioned, related := outs[0].Result, outs[1].Result, outs[2].Result

	sig := signalEstimate(indexed.Count, mentioned.Count, related.Count)
	trad := traditionalEstimate(in.Metrics, in.Content.Score)
	count := blend(sig, trad)

	sources, distinct := sampleSources(b.rand, count)
	score := backlinkQuality(qualityInputs{
		count:        count,
		indexedScore: indexed.Score,
		mentionScore: mentioned.Score,
		tldAuthority: in.Metrics.TLDAuthority,
		content:      in.Content.Score,
		sources:      distinct,
		age:          in.Metrics.AgeYears,
	})

	return types.Backlinks{
		Count:               count,
		SignalEstimate:      sig,
		TraditionalEstimate: trad,
		Score:               score,
		Level:               levelFor(score * 10),
		Sources:             sources,
	}, nil
}

// signalEstimate derives a backlink count from search-signal result counts.
func signalEstimate(indexed, mentioned, related int64) float64 {
	v := float64(indexed)*weightIndexed + float64(mentioned)*weightMentioned + float64(related)*weightRelated
	return clamp(v, signalMin, signalMax)
}

// traditionalEstimate derives a backlink count from domain structure,
// content quality and age.
func traditionalEstimate(m types.DomainMetrics, quality int) float64 {
	return structuralBase(m) * qualityMultiplier(quality) * ageMultiplier(m.AgeYears)
}

func structuralBase(m types.DomainMetrics) float64 {
	base := 10.0
	if m.TLD == "edu" || m.TLD == "gov" {
		base += 50
	}
	base += boolScore(m.Popular, 20)
	base += boolScore(m.Short, 15)
	base += boolScore(!m.HasDash, 10)
	base += boolScore(!m.HasSubdomain, 5)
	base += float64(2*m.TLDAuthority + m.LengthScore + m.StructureScore)
	return base
}

func qualityMultiplier(q int) float64 {
	switch {
	case q >= 80:
		return 2.5
	case q >= 60:
		return 2.0
	case q >= 40:
		return 1.5
	case q >= 20:
		return 1.2
	default:
		return 1.0
	}
}

func ageMultiplier(age int) float64 {
	switch {
	case age >= 10:
		return 3.0
	case age >= 5:
		return 2.0
	case age >= 2:
		return 1.5
	default:
		return 1.0
	}
}

// blend combines the two estimates into the final backlink count.
func blend(signal, traditional float64) int {
	return int(math.Round(blendSignal*signal + blendTraditional*traditional))
}

// sampleSources draws referring domains from the weighted categories until
// the target number of distinct sources is reached or count draws have
// been made. It returns the first maxReportedSources and the distinct total.
func sampleSources(src jitter.Source, count int) ([]types.BacklinkSource, int) {
	target := min(count, maxSampledSources)
	attempts := min(count, maxSampleAttempts)

	seen := make(map[string]bool)
	out := []types.BacklinkSource{}
	for i := 0; i < attempts && len(out) < target; i++ {
		cat := pickCategory(src)
		d := cat.domains[src.IntN(len(cat.domains))]
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, types.BacklinkSource{Domain: d, Category: cat.name})
	}

	distinct := len(out)
	if len(out) > maxReportedSources {
		out = out[:maxReportedSources]
	}
	return out, distinct
}

func pickCategory(src jitter.Source) sourceCategory {
	r := src.IntN(100)
	for _, c := range sourceCategories {
		if r < c.weight {
			return c
		}
		r -= c.weight
	}
	return sourceCategories[len(sourceCategories)-1]
}

type qualityInputs struct {
	count        int
	indexedScore float64
	mentionScore float64
	tldAuthority int
	content      int
	sources      int
	age          int
}

// backlinkQuality scores the backlink profile on [1,10] at 0.1 precision.
func backlinkQuality(q qualityInputs) float64 {
	s := 5.0
	switch {
	case q.count >= 1000:
		s += 3
	case q.count >= 500:
		s += 2
	case q.count >= 100:
		s += 1
	case q.count >= 50:
		s += 0.5
	}
	if q.indexedScore >= 8 {
		s++
	}
	if q.mentionScore >= 8 {
		s++
	}
	s += float64(q.tldAuthority) / 10
	s += math.Max(0, float64(q.content-50)/50)
	s += math.Min(float64(q.sources)/20, 1)
	s += math.Min(float64(q.age)/10, 1)
	return math.Round(clamp(s, 1, 10)*10) / 10
}
