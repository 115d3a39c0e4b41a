package api

import (
	"github.com/obsidianstack/offpage/pkg/types"
)

// createSessionRequest is the body of POST /api/v1/sessions.
type createSessionRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

// analyzeRequest is the body of POST /api/v1/sessions/{id}/analyses.
type analyzeRequest struct {
	URL string `json:"url"`
}

// AnalysisResponse is one saved analysis plus the recommendations derived
// from it.
type AnalysisResponse struct {
	types.AnalysisResult
	Recommendations []Recommendation `json:"recommendations"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
