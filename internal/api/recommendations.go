package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/obsidianstack/offpage/internal/offpage"
	"github.com/obsidianstack/offpage/pkg/types"
)

// Recommendation is one actionable insight about an analysis.
type Recommendation struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is a short label (a few words).
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional number the recommendation refers to.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// recommend derives recommendations from r, ordered critical first, then
// warnings, then info. Facets that fell back are reported once and not
// judged on their stand-in values.
func recommend(r *types.OffPageResult) []Recommendation {
	recs := []Recommendation{}
	degraded := make(map[string]bool, len(r.DegradedFacets))
	for _, f := range r.DegradedFacets {
		degraded[f] = true
	}

	if n := len(r.DegradedFacets); n > 0 {
		level := "info"
		if n >= 4 {
			level = "warning"
		}
		recs = append(recs, Recommendation{
			Key:   "partial_data",
			Level: level,
			Title: "Partial data",
			Detail: fmt.Sprintf(
				"%d of %d facets could not be measured and use estimated stand-in values: %s. "+
					"Scores for these facets are not measurements. Re-run the analysis later "+
					"for a complete picture.",
				n, len(types.Facets), strings.Join(r.DegradedFacets, ", "),
			),
			Value: ptr(float64(n)),
		})
	}

	if !degraded[types.FacetDomainAuthority] {
		da := float64(r.DomainAuth.Score)
		switch {
		case da < 30:
			recs = append(recs, Recommendation{
				Key:   "weak_domain_authority",
				Level: "critical",
				Title: "Weak domain authority",
				Detail: fmt.Sprintf(
					"Domain authority is %.0f/100. Search engines see few trusted signals for this site. "+
						"Earn links from established sites in your field and get listed in reputable directories.",
					da),
				Value: &da,
			})
		case da < 50:
			recs = append(recs, Recommendation{
				Key:   "moderate_domain_authority",
				Level: "warning",
				Title: "Room to grow authority",
				Detail: fmt.Sprintf(
					"Domain authority is %.0f/100. Steady link earning and brand coverage would lift it.", da),
				Value: &da,
			})
		}
	}

	if !degraded[types.FacetPageAuthority] && r.PageAuth.Score < 30 {
		pa := float64(r.PageAuth.Score)
		recs = append(recs, Recommendation{
			Key:   "weak_page_authority",
			Level: "warning",
			Title: "Page rarely cited",
			Detail: fmt.Sprintf(
				"Page authority is %.0f/100. Link to this page from your own strong pages and keep it close to the site root.", pa),
			Value: &pa,
		})
	}

	if !degraded[types.FacetBacklinks] {
		s := r.Backlinks.Score
		switch {
		case s < 4:
			recs = append(recs, Recommendation{
				Key:   "thin_backlinks",
				Level: "critical",
				Title: "Thin backlink profile",
				Detail: fmt.Sprintf(
					"Backlink quality is %.1f/10 from roughly %d referring links. "+
						"Publish material others want to cite and reach out to partners and press.",
					s, r.Backlinks.Count),
				Value: &s,
			})
		case s < 6:
			recs = append(recs, Recommendation{
				Key:   "average_backlinks",
				Level: "warning",
				Title: "Average backlink profile",
				Detail: fmt.Sprintf(
					"Backlink quality is %.1f/10. Diversify referring domains across categories.", s),
				Value: &s,
			})
		}
	}

	if !degraded[types.FacetSocial] && r.Social.Total == 0 {
		recs = append(recs, Recommendation{
			Key:    "no_social_presence",
			Level:  "warning",
			Title:  "No social presence",
			Detail: "No platform references to this domain were found. Share content on Facebook, X, LinkedIn and Reddit.",
		})
	}
	if !r.Content.Degraded && !r.Content.HasOpenGraph {
		recs = append(recs, Recommendation{
			Key:    "missing_open_graph",
			Level:  "info",
			Title:  "Add Open Graph tags",
			Detail: "The page has no og: meta tags, so shared links render without a title or image.",
		})
	}

	if !degraded[types.FacetMentions] && r.Mentions.Score < 3 {
		v := float64(r.Mentions.Score)
		recs = append(recs, Recommendation{
			Key:    "few_mentions",
			Level:  "warning",
			Title:  "Few brand mentions",
			Detail: "The brand is rarely mentioned off-site. Press releases, interviews and community participation build unlinked mentions.",
			Value:  &v,
		})
	}

	if !degraded[types.FacetIndexing] && r.Indexing.IndexedPages < 100 {
		v := float64(r.Indexing.IndexedPages)
		recs = append(recs, Recommendation{
			Key:    "small_index",
			Level:  "warning",
			Title:  "Small index footprint",
			Detail: fmt.Sprintf("Only about %d pages are indexed. Submit a sitemap and check robots rules.", r.Indexing.IndexedPages),
			Value:  &v,
		})
	}

	if !degraded[types.FacetCompetitors] && r.Competitors.Position == offpage.PositionFollower {
		recs = append(recs, Recommendation{
			Key:   "behind_competitors",
			Level: "info",
			Title: "Behind competitors",
			Detail: fmt.Sprintf(
				"Related sites average %d indexed pages against your %d.",
				r.Competitors.AverageIndexed, r.Competitors.OwnIndexed),
		})
	}

	if !r.Content.Degraded && r.Content.Score < 50 {
		v := float64(r.Content.Score)
		recs = append(recs, Recommendation{
			Key:    "thin_content",
			Level:  "warning",
			Title:  "Improve on-page content",
			Detail: "Content quality limits how much authority the page can earn. Add a title, description, headings and substantive text.",
			Value:  &v,
		})
	}

	if len(recs) == 0 {
		v := float64(r.Score)
		recs = append(recs, Recommendation{
			Key:    "strong_profile",
			Level:  "ok",
			Title:  "Strong off-page profile",
			Detail: fmt.Sprintf("Overall score %d/100 (%s). Keep earning links and mentions at the current pace.", r.Score, r.Level),
			Value:  &v,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return levelRank[recs[i].Level] < levelRank[recs[j].Level] })
	return recs
}

func ptr[T any](v T) *T { return &v }
