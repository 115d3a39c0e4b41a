package alerts

import (
	"strconv"
	"strings"

	"github.com/obsidianstack/offpage/pkg/types"
)

// evalCondition evaluates a rule condition against an analysis.
//
// Supported expressions (field operator value):
//
//	overall < 40
//	domain_authority < 30
//	page_authority < 20
//	backlinks < 100
//	backlink_score < 4
//	social_score < 3
//	mention_score < 3
//	indexing_score < 3
//	competitor_score < 4
//	content_quality < 50
//	degraded_facets > 2
//	level == Low
//	level != Excellent
//	position == Follower
//	tld == info
//
// String fields accept == and != and may compare against values containing
// spaces ("level == Very Good"). Returns (fires, triggering value); the
// value is 0 for string fields. An unparseable expression or unknown field
// never fires.
func evalCondition(cond string, r *types.OffPageResult) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) < 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], strings.Join(parts[2:], " ")

	if s, ok := stringField(field, r); ok {
		switch op {
		case "==":
			return strings.EqualFold(s, rhs), 0
		case "!=":
			return !strings.EqualFold(s, rhs), 0
		default:
			return false, 0
		}
	}

	v, ok := numericField(field, r)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

func stringField(field string, r *types.OffPageResult) (string, bool) {
	switch field {
	case "level":
		return r.Level, true
	case "position":
		return r.Competitors.Position, true
	case "tld":
		return r.DomainMetrics.TLD, true
	default:
		return "", false
	}
}

// numericField maps a field name to its value in the result.
func numericField(field string, r *types.OffPageResult) (float64, bool) {
	switch field {
	case "overall", "score":
		return float64(r.Score), true
	case "domain_authority":
		return float64(r.DomainAuth.Score), true
	case "page_authority":
		return float64(r.PageAuth.Score), true
	case "backlinks":
		return float64(r.Backlinks.Count), true
	case "backlink_score":
		return r.Backlinks.Score, true
	case "social_score":
		return float64(r.Social.Score), true
	case "mention_score":
		return float64(r.Mentions.Score), true
	case "indexing_score":
		return float64(r.Indexing.Score), true
	case "competitor_score":
		return float64(r.Competitors.Score), true
	case "content_quality":
		return float64(r.Content.Score), true
	case "degraded_facets":
		return float64(len(r.DegradedFacets)), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
