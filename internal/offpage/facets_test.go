package offpage

import (
	"context"
	"reflect"
	"testing"

	"github.com/obsidianstack/offpage/internal/signals"
	"github.com/obsidianstack/offpage/pkg/types"
)

func TestDomainAuthority(t *testing.T) {
	in := inputsFor(t, "https://example.com", 75)
	est := &DomainAuthorityEstimator{signals: scenarioSignals("example.com")}

	got, err := est.Estimate(context.Background(), in)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// 3×8.2 + 2×5 + 1.5×4 + 1.5×8 + 10×5/15 + 0.5×10 + 0.05×75 ≈ 64.7
	if got.Score != 65 {
		t.Errorf("Score = %d, want 65", got.Score)
	}
	if got.Level != types.LevelGood {
		t.Errorf("Level = %q, want %q", got.Level, types.LevelGood)
	}
}

func TestDomainAuthorityScore_Bounds(t *testing.T) {
	top := types.DomainMetrics{TLDAuthority: 10, AgeYears: 40, StructureScore: 10}
	if got := domainAuthorityScore(10, 10, 10, top, 100); got != 100 {
		t.Errorf("all-max score = %d, want 100", got)
	}
	if got := domainAuthorityScore(0, 0, 0, types.DomainMetrics{}, 0); got != 0 {
		t.Errorf("all-zero score = %d, want 0", got)
	}
	if got := domainAuthorityScore(1e9, 1e9, 1e9, top, 1e6); got != 100 {
		t.Errorf("overflow score = %d, want clamp to 100", got)
	}
}

func TestDomainAuthority_AllQueriesFail(t *testing.T) {
	est := &DomainAuthorityEstimator{signals: failingSignals()}
	if _, err := est.Estimate(context.Background(), inputsFor(t, "https://example.com", 50)); err == nil {
		t.Fatal("expected error")
	}
}

func TestPageAuthority(t *testing.T) {
	raw := "https://example.com/blog/post/"
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.PageQuery("example.com/blog/post"): {Count: 3, Score: 5},
		signals.URLQuery(raw):                     {Count: 1, Score: 2},
	}}
	est := &PageAuthorityEstimator{signals: sig}

	got, err := est.Estimate(context.Background(), inputsFor(t, raw, 60))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// 3×5 + 2×2 + 0.3×60 + depth 2 (6) + tld com (8)
	if got.Score != 51 {
		t.Errorf("Score = %d, want 51", got.Score)
	}
	if got.Level != types.LevelAverage {
		t.Errorf("Level = %q, want %q", got.Level, types.LevelAverage)
	}
}

func TestPathDepth(t *testing.T) {
	tests := []struct {
		path  string
		depth int
		score float64
	}{
		{"", 0, 10},
		{"/", 0, 10},
		{"/about", 1, 8},
		{"/blog/post/", 2, 6},
		{"/a//b/c", 3, 4},
		{"/a/b/c/d/e", 5, 4},
	}
	for _, tc := range tests {
		d := pathDepth(tc.path)
		if d != tc.depth {
			t.Errorf("pathDepth(%q) = %d, want %d", tc.path, d, tc.depth)
		}
		if s := depthScore(d); s != tc.score {
			t.Errorf("depthScore(%d) = %v, want %v", d, s, tc.score)
		}
	}
}

func TestPageAuthorityScore_Bounds(t *testing.T) {
	if got := pageAuthorityScore(10, 10, 100, 0, 10); got != 100 {
		t.Errorf("all-max score = %d, want 100", got)
	}
	if got := pageAuthorityScore(0, 0, 0, 9, 0); got != 4 {
		t.Errorf("deep empty page = %d, want 4", got)
	}
}

func TestSocial(t *testing.T) {
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.PlatformQuery("facebook.com", "example.com"): {Count: 100, Score: 6},
		signals.PlatformQuery("twitter.com", "example.com"):  {Count: 50, Score: 4},
		signals.PlatformQuery("reddit.com", "example.com"):   {Count: 10, Score: 2},
	}}
	in := inputsFor(t, "https://example.com", 50)
	in.Content.HasOpenGraph = true

	got, err := (&SocialEstimator{signals: sig}).Estimate(context.Background(), in)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.Facebook != 100 || got.Twitter != 50 || got.LinkedIn != 0 || got.Reddit != 10 {
		t.Errorf("platform counts = %+v", got)
	}
	if got.Total != 160 {
		t.Errorf("Total = %d, want 160", got.Total)
	}
	// 0.6×3 + 2×3/4 + 1 + 0.1×8 = 5.1
	if got.Score != 5 {
		t.Errorf("Score = %d, want 5", got.Score)
	}
	if got.Level != types.LevelAverage {
		t.Errorf("Level = %q, want %q", got.Level, types.LevelAverage)
	}
}

func TestSocialScore_Bounds(t *testing.T) {
	if got := socialScore(10, 4, 4, true, 10); got != 10 {
		t.Errorf("max = %d, want 10", got)
	}
	if got := socialScore(0, 0, 4, false, 0); got != 0 {
		t.Errorf("min = %d, want 0", got)
	}
}

func TestMentions(t *testing.T) {
	web := []string{"a.com/1", "b.com/2", "c.com/3", "d.com/4", "e.com/5", "f.com/6", "g.com/7"}
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.MentionQuery("example.com"):         {Count: 200, Score: 6, Results: web},
		signals.NewsQuery("example", "example.com"): {Count: 20, Score: 4},
		signals.DiscussionQuery("example"):          {Count: 30, Score: 2},
	}}

	got, err := (&MentionEstimator{signals: sig}).Estimate(context.Background(), inputsFor(t, "https://example.com", 50))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.Count != 250 || got.Web != 200 || got.News != 20 || got.Discussion != 30 {
		t.Errorf("counts = %+v", got)
	}
	// 0.5×6 + 0.25×4 + 0.25×2 + log10(251)/3 ≈ 5.3
	if got.Score != 5 {
		t.Errorf("Score = %d, want 5", got.Score)
	}
	if !reflect.DeepEqual(got.Samples, web[:5]) {
		t.Errorf("Samples = %v, want first five", got.Samples)
	}
}

func TestMentionScore_Bounds(t *testing.T) {
	if got := mentionScore(10, 10, 10, 1e12); got != 10 {
		t.Errorf("max = %d, want 10", got)
	}
	if got := mentionScore(0, 0, 0, 0); got != 0 {
		t.Errorf("min = %d, want 0", got)
	}
	if got := mentionScore(0, 0, 0, -5); got != 0 {
		t.Errorf("negative total = %d, want 0", got)
	}
}

func TestIndexing(t *testing.T) {
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.SiteQuery("example.com"):                    {Count: 12000, Score: 8},
		signals.BrandedPagesQuery("example.com", "example"): {Count: 300, Score: 5},
	}}

	got, err := (&IndexingEstimator{signals: sig}).Estimate(context.Background(), inputsFor(t, "https://example.com", 50))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.IndexedPages != 12000 || got.BrandedPages != 300 || got.Documents != 0 {
		t.Errorf("counts = %+v", got)
	}
	// 0.6×8 + 0.2×5 + 0 + coverage bonus = 6.8
	if got.Score != 7 {
		t.Errorf("Score = %d, want 7", got.Score)
	}
	if got.Level != types.LevelVeryGood {
		t.Errorf("Level = %q, want %q", got.Level, types.LevelVeryGood)
	}
}

func TestIndexingScore_CoverageBonus(t *testing.T) {
	if a, b := indexingScore(5, 5, 5, wideCoverage-1), indexingScore(5, 5, 5, wideCoverage); b != a+1 {
		t.Errorf("coverage bonus: below=%d at=%d", a, b)
	}
	if got := indexingScore(10, 10, 10, wideCoverage); got != 10 {
		t.Errorf("max = %d, want clamp to 10", got)
	}
}

func TestCompetitors(t *testing.T) {
	related := []string{
		"https://www.rival-one.com/page",
		"rival-two.org/about",
		"example.com",
		"www.rival-one.com",
		"rival-three.net",
		"rival-four.io",
	}
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.RelatedQuery("example.com"):  {Count: 6, Results: related},
		signals.SiteQuery("example.com"):     {Count: 3000},
		signals.SiteQuery("rival-one.com"):   {Count: 1000},
		signals.SiteQuery("rival-two.org"):   {Count: 2000},
		signals.SiteQuery("rival-three.net"): {Count: 3000},
	}}

	got, err := (&CompetitorEstimator{signals: sig}).Estimate(context.Background(), inputsFor(t, "https://example.com", 50))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	want := []types.Competitor{
		{Domain: "rival-one.com", IndexedPages: 1000},
		{Domain: "rival-two.org", IndexedPages: 2000},
		{Domain: "rival-three.net", IndexedPages: 3000},
	}
	if !reflect.DeepEqual(got.Domains, want) {
		t.Errorf("Domains = %+v, want %+v", got.Domains, want)
	}
	if got.OwnIndexed != 3000 || got.AverageIndexed != 2000 {
		t.Errorf("own=%d avg=%d, want 3000/2000", got.OwnIndexed, got.AverageIndexed)
	}
	// 5 + 5×1000/3000 ≈ 6.7
	if got.Score != 7 || got.Position != PositionLeader {
		t.Errorf("Score=%d Position=%q, want 7 Leader", got.Score, got.Position)
	}
}

func TestCompetitors_NoRivals(t *testing.T) {
	sig := &fakeSignals{results: map[string]signals.Result{
		signals.SiteQuery("example.com"): {Count: 500},
	}}
	got, err := (&CompetitorEstimator{signals: sig}).Estimate(context.Background(), inputsFor(t, "https://example.com", 50))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.Score != 0 || got.Position != PositionUnknown || len(got.Domains) != 0 {
		t.Errorf("got %+v, want zero score and Unknown position", got)
	}
	if got.Domains == nil {
		t.Error("Domains should be an empty slice, not nil")
	}
}

func TestCompetitorScore(t *testing.T) {
	tests := []struct {
		own, avg int
		score    int
		position string
	}{
		{0, 0, 5, PositionChallenger},
		{100, 0, 10, PositionLeader},
		{0, 100, 0, PositionFollower},
		{100, 100, 5, PositionChallenger},
		{100, 400, 1, PositionFollower},
		{400, 100, 9, PositionLeader},
	}
	for _, tc := range tests {
		s := competitorScore(tc.own, tc.avg)
		if s != tc.score {
			t.Errorf("competitorScore(%d, %d) = %d, want %d", tc.own, tc.avg, s, tc.score)
		}
		if p := positionFor(s); p != tc.position {
			t.Errorf("positionFor(%d) = %q, want %q", s, p, tc.position)
		}
	}
}

func TestCompetitorDomains(t *testing.T) {
	got := competitorDomains([]string{"", "  ", "://bad", "WWW.Example.com", "a.com", "a.com/x", "b.com", "c.com", "d.com"}, "www.example.com")
	want := []string{"a.com", "b.com", "c.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("competitorDomains = %v, want %v", got, want)
	}
}
