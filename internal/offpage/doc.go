// Package offpage estimates a site's off-page authority.
//
// engine.go provides Engine, which fans out to seven independent estimators
// (backlinks, domain authority, page authority, social signals, mentions,
// indexing, competitors), isolates each one behind a timeout and panic
// guard, and joins their outputs into one types.OffPageResult. A failed
// estimator is replaced by its documented fallback (fallback.go) and the
// facet is marked degraded; Analyze itself always returns a result.
//
// The estimators share read-only Inputs computed once per analysis: the
// parsed URL, DomainMetrics and the ContentReport. Each issues its own
// search-signal queries; a failed query contributes zero signal, and an
// estimator whose every query fails is treated as failed.
//
// Levels: Excellent ≥80, Very Good ≥70, Good ≥60, Average ≥50, Weak ≥40,
// Low otherwise (on a 0–100 scale; 0–10 scores are scaled by 10).
package offpage
