package types

import "time"

// Facet names, in the fixed order they appear in an OffPageResult.
const (
	FacetBacklinks       = "backlinks"
	FacetDomainAuthority = "domain_authority"
	FacetPageAuthority   = "page_authority"
	FacetSocial          = "social_signals"
	FacetMentions        = "mentions"
	FacetIndexing        = "indexing"
	FacetCompetitors     = "competitors"
)

// Facets lists every facet name in output order.
var Facets = []string{
	FacetBacklinks,
	FacetDomainAuthority,
	FacetPageAuthority,
	FacetSocial,
	FacetMentions,
	FacetIndexing,
	FacetCompetitors,
}

// Level names shared by every facet.
const (
	LevelExcellent = "Excellent"
	LevelVeryGood  = "Very Good"
	LevelGood      = "Good"
	LevelAverage   = "Average"
	LevelWeak      = "Weak"
	LevelLow       = "Low"
)

// DomainMetrics are the structural authority signals derived from a host name.
// Recomputed for every analysis.
type DomainMetrics struct {
	Domain         string `json:"domain"`
	Name           string `json:"name"` // registrable label without suffix
	TLD            string `json:"tld"`
	Popular        bool   `json:"popular_tld"`
	Local          bool   `json:"local_tld"`
	Length         int    `json:"length"`
	Short          bool   `json:"short"`
	HasDash        bool   `json:"has_dash"`
	HasSubdomain   bool   `json:"has_subdomain"`
	AgeYears       int    `json:"age_years"`
	TLDAuthority   int    `json:"tld_authority"`
	LengthScore    int    `json:"length_score"`
	StructureScore int    `json:"structure_score"`
}

// ContentReport is the outcome of the content quality check for one page.
type ContentReport struct {
	Score          int  `json:"score"`
	WordCount      int  `json:"word_count"`
	Bytes          int  `json:"bytes"`
	HasTitle       bool `json:"has_title"`
	HasDescription bool `json:"has_meta_description"`
	HasH1          bool `json:"has_h1"`
	HasViewport    bool `json:"has_viewport"`
	HasImages      bool `json:"has_images"`
	HasLinks       bool `json:"has_links"`
	HasSchema      bool `json:"has_structured_data"`
	HasOpenGraph   bool `json:"has_open_graph"`
	HasCacheHeader bool `json:"has_cache_control"`

	// Degraded is set when the page could not be fetched and Score is a
	// plausible stand-in rather than a measurement.
	Degraded bool `json:"degraded"`
}

// BacklinkSource is one representative referring domain.
type BacklinkSource struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

// Backlinks is the backlink facet.
type Backlinks struct {
	Count               int              `json:"count"`
	SignalEstimate      float64          `json:"signal_estimate"`
	TraditionalEstimate float64          `json:"traditional_estimate"`
	Score               float64          `json:"score"` // [1,10], 0.1 precision
	Level               string           `json:"level"`
	Sources             []BacklinkSource `json:"sources"`
	Degraded            bool             `json:"degraded"`
}

// Authority is the domain authority or page authority facet.
type Authority struct {
	Score    int    `json:"score"` // [0,100]
	Level    string `json:"level"`
	Degraded bool   `json:"degraded"`
}

// SocialSignals is the social presence facet.
type SocialSignals struct {
	Facebook int    `json:"facebook"`
	Twitter  int    `json:"twitter"`
	LinkedIn int    `json:"linkedin"`
	Reddit   int    `json:"reddit"`
	Total    int    `json:"total"`
	Score    int    `json:"score"` // [0,10]
	Level    string `json:"level"`
	Degraded bool   `json:"degraded"`
}

// Mentions is the unlinked brand mention facet.
type Mentions struct {
	Count      int      `json:"count"`
	Web        int      `json:"web"`
	News       int      `json:"news"`
	Discussion int      `json:"discussion"`
	Score      int      `json:"score"` // [0,10]
	Level      string   `json:"level"`
	Samples    []string `json:"samples,omitempty"`
	Degraded   bool     `json:"degraded"`
}

// Indexing is the search index footprint facet.
type Indexing struct {
	IndexedPages int    `json:"indexed_pages"`
	BrandedPages int    `json:"branded_pages"`
	Documents    int    `json:"documents"`
	Score        int    `json:"score"` // [0,10]
	Level        string `json:"level"`
	Degraded     bool   `json:"degraded"`
}

// Competitor is one related domain found for the analysed site.
type Competitor struct {
	Domain       string `json:"domain"`
	IndexedPages int    `json:"indexed_pages"`
}

// Competitors is the competitive footprint facet.
type Competitors struct {
	Domains        []Competitor `json:"domains"`
	OwnIndexed     int          `json:"own_indexed"`
	AverageIndexed int          `json:"average_indexed"`
	Position       string       `json:"position"`
	Score          int          `json:"score"` // [0,10]
	Degraded       bool         `json:"degraded"`
}

// OffPageResult is the composite outcome of one analysis. The facet fields
// appear in the order given by Facets.
type OffPageResult struct {
	URL            string        `json:"url"`
	Domain         string        `json:"domain"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
	Score          int           `json:"score"` // [0,100]
	Level          string        `json:"level"`
	DomainMetrics  DomainMetrics `json:"domain_metrics"`
	Content        ContentReport `json:"content"`
	Backlinks      Backlinks     `json:"backlinks"`
	DomainAuth     Authority     `json:"domain_authority"`
	PageAuth       Authority     `json:"page_authority"`
	Social         SocialSignals `json:"social_signals"`
	Mentions       Mentions      `json:"mentions"`
	Indexing       Indexing      `json:"indexing"`
	Competitors    Competitors   `json:"competitors"`
	DegradedFacets []string      `json:"degraded_facets"`
}

// Session is a short-lived user context that owns analyses.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Language     string    `json:"language,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	AnalysisIDs  []string  `json:"analysis_ids"`
}

// AnalysisResult is a completed analysis owned by one session.
type AnalysisResult struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	URL       string        `json:"url"`
	Timestamp time.Time     `json:"timestamp"`
	Score     int           `json:"score"`
	OffPage   OffPageResult `json:"off_page"`
}

// Stats summarises the store.
type Stats struct {
	TotalSessions         int     `json:"total_sessions"`
	ActiveSessions        int     `json:"active_sessions"`
	TotalAnalyses         int     `json:"total_analyses"`
	AvgAnalysesPerSession float64 `json:"avg_analyses_per_session"`
}
