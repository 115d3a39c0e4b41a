package api

import (
	"testing"
	"time"

	"github.com/obsidianstack/offpage/internal/offpage"
	"github.com/obsidianstack/offpage/pkg/types"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func healthy() types.OffPageResult {
	return types.OffPageResult{
		Score:          78,
		Level:          types.LevelVeryGood,
		DomainAuth:     types.Authority{Score: 72},
		PageAuth:       types.Authority{Score: 60},
		Backlinks:      types.Backlinks{Count: 1200, Score: 8.1},
		Social:         types.SocialSignals{Total: 300},
		Mentions:       types.Mentions{Score: 6},
		Indexing:       types.Indexing{IndexedPages: 4000},
		Competitors:    types.Competitors{Position: offpage.PositionLeader},
		Content:        types.ContentReport{Score: 85, HasOpenGraph: true},
		DegradedFacets: []string{},
	}
}

func keys(recs []Recommendation) map[string]string {
	m := make(map[string]string, len(recs))
	for _, r := range recs {
		m[r.Key] = r.Level
	}
	return m
}

func TestRecommend_StrongProfile(t *testing.T) {
	r := healthy()
	recs := recommend(&r)
	if len(recs) != 1 || recs[0].Key != "strong_profile" || recs[0].Level != "ok" {
		t.Fatalf("got %+v, want single strong_profile", recs)
	}
	if recs[0].Value == nil || *recs[0].Value != 78 {
		t.Errorf("Value: got %v, want 78", recs[0].Value)
	}
}

func TestRecommend_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.OffPageResult)
		key    string
		level  string
	}{
		{"weak da", func(r *types.OffPageResult) { r.DomainAuth.Score = 20 }, "weak_domain_authority", "critical"},
		{"moderate da", func(r *types.OffPageResult) { r.DomainAuth.Score = 45 }, "moderate_domain_authority", "warning"},
		{"weak pa", func(r *types.OffPageResult) { r.PageAuth.Score = 12 }, "weak_page_authority", "warning"},
		{"thin backlinks", func(r *types.OffPageResult) { r.Backlinks.Score = 3 }, "thin_backlinks", "critical"},
		{"average backlinks", func(r *types.OffPageResult) { r.Backlinks.Score = 5.5 }, "average_backlinks", "warning"},
		{"no social", func(r *types.OffPageResult) { r.Social.Total = 0 }, "no_social_presence", "warning"},
		{"no og", func(r *types.OffPageResult) { r.Content.HasOpenGraph = false }, "missing_open_graph", "info"},
		{"few mentions", func(r *types.OffPageResult) { r.Mentions.Score = 2 }, "few_mentions", "warning"},
		{"small index", func(r *types.OffPageResult) { r.Indexing.IndexedPages = 40 }, "small_index", "warning"},
		{"follower", func(r *types.OffPageResult) { r.Competitors.Position = offpage.PositionFollower }, "behind_competitors", "info"},
		{"thin content", func(r *types.OffPageResult) { r.Content.Score = 35 }, "thin_content", "warning"},
		{"some degraded", func(r *types.OffPageResult) {
			r.DegradedFacets = []string{types.FacetSocial}
		}, "partial_data", "info"},
		{"many degraded", func(r *types.OffPageResult) {
			r.DegradedFacets = []string{types.FacetSocial, types.FacetMentions, types.FacetIndexing, types.FacetCompetitors}
		}, "partial_data", "warning"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := healthy()
			tc.mutate(&r)
			got := keys(recommend(&r))
			if got[tc.key] != tc.level {
				t.Errorf("%s: got level %q, want %q (all %v)", tc.key, got[tc.key], tc.level, got)
			}
			if _, ok := got["strong_profile"]; ok {
				t.Error("strong_profile must not accompany other recommendations")
			}
		})
	}
}

func TestRecommend_DegradedFacetsNotJudged(t *testing.T) {
	r := offpage.DefaultResult("https://a.test", fixedTime)
	r.DegradedFacets = append([]string(nil), types.Facets...)
	got := keys(recommend(&r))

	if got["partial_data"] != "warning" {
		t.Errorf("partial_data: got %q, want warning", got["partial_data"])
	}
	for _, k := range []string{
		"weak_domain_authority", "moderate_domain_authority", "weak_page_authority",
		"thin_backlinks", "average_backlinks", "no_social_presence", "few_mentions",
		"small_index", "behind_competitors",
	} {
		if _, ok := got[k]; ok {
			t.Errorf("%s reported for a degraded facet", k)
		}
	}
}

func TestRecommend_OrderedBySeverity(t *testing.T) {
	r := healthy()
	r.Content.HasOpenGraph = false // info
	r.Mentions.Score = 1           // warning
	r.DomainAuth.Score = 10        // critical
	recs := recommend(&r)

	last := -1
	for _, rec := range recs {
		rank := levelRank[rec.Level]
		if rank < last {
			t.Fatalf("out of order: %+v", recs)
		}
		last = rank
	}
	if recs[0].Level != "critical" {
		t.Errorf("first: got %q, want critical", recs[0].Level)
	}
}
