package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/obsidianstack/offpage/internal/config"
	"github.com/obsidianstack/offpage/pkg/types"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func analysis(domain string, score int) types.AnalysisResult {
	return types.AnalysisResult{
		ID:        "a-" + domain,
		SessionID: "s-1",
		URL:       "https://" + domain,
		Score:     score,
		OffPage:   types.OffPageResult{Domain: domain, Score: score, Level: types.LevelLow},
	}
}

func lowScoreRule(cooldown time.Duration) config.AlertRule {
	return config.AlertRule{Name: "low-score", Condition: "overall < 40", Severity: "critical", Cooldown: cooldown}
}

func TestEvaluate_NoRules(t *testing.T) {
	e := New(config.AlertsConfig{}, clockwork.NewFakeClockAt(base))
	if fired := e.Evaluate(analysis("a.test", 10)); fired != nil {
		t.Errorf("fired: got %v, want nil", fired)
	}
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active: got %d, want 0", n)
	}
}

func TestEvaluate_FiresAndRespectsCooldown(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowScoreRule(10 * time.Minute)}}, fc)

	fired := e.Evaluate(analysis("a.test", 20))
	if len(fired) != 1 {
		t.Fatalf("fired: got %d, want 1", len(fired))
	}
	a := fired[0]
	if a.RuleName != "low-score" || a.Domain != "a.test" || a.Severity != "critical" || a.Value != 20 || a.State != StateFiring {
		t.Errorf("alert: got %+v", a)
	}
	if a.AnalysisID != "a-a.test" || a.SessionID != "s-1" {
		t.Errorf("provenance: got %q/%q", a.AnalysisID, a.SessionID)
	}

	fc.Advance(5 * time.Minute)
	if fired := e.Evaluate(analysis("a.test", 15)); len(fired) != 0 {
		t.Errorf("within cooldown: fired %d, want 0", len(fired))
	}
	// A different domain has its own cooldown.
	if fired := e.Evaluate(analysis("b.test", 15)); len(fired) != 1 {
		t.Errorf("other domain: fired %d, want 1", len(fired))
	}

	fc.Advance(6 * time.Minute)
	if fired := e.Evaluate(analysis("a.test", 15)); len(fired) != 1 {
		t.Errorf("after cooldown: fired %d, want 1", len(fired))
	}
}

func TestEvaluate_Resolves(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowScoreRule(time.Minute)}}, fc)

	e.Evaluate(analysis("a.test", 20))
	fc.Advance(time.Minute)
	e.Evaluate(analysis("a.test", 80))

	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active: got %d, want 1 resolved", len(active))
	}
	if active[0].State != StateResolved || active[0].ResolvedAt == nil || !active[0].ResolvedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("resolved alert: got %+v", active[0])
	}

	fc.Advance(2 * time.Hour)
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after history window: got %d, want 0", n)
	}
}

func TestActive_NewestFirst(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowScoreRule(time.Minute)}}, fc)

	e.Evaluate(analysis("a.test", 20))
	fc.Advance(time.Second)
	e.Evaluate(analysis("b.test", 20))

	active := e.Active()
	if len(active) != 2 || active[0].Domain != "b.test" || active[1].Domain != "a.test" {
		t.Errorf("order: got %+v", active)
	}
}

func TestReload_DropsRemovedRules(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowScoreRule(time.Minute)}}, fc)
	e.Evaluate(analysis("a.test", 20))

	e.Reload(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "degraded", Condition: "degraded_facets > 0", Severity: "info"},
	}})
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after reload: got %d, want 0", n)
	}
	res := analysis("a.test", 20)
	res.OffPage.DegradedFacets = []string{types.FacetSocial}
	if fired := e.Evaluate(res); len(fired) != 1 || fired[0].RuleName != "degraded" {
		t.Errorf("fired after reload: got %+v", fired)
	}
}

type capture struct {
	mu     sync.Mutex
	bodies map[string][]byte
}

func (c *capture) handler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies[name] = b
		c.mu.Unlock()
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
		}
	}
}

func TestWebhookDelivery(t *testing.T) {
	c := &capture{bodies: map[string][]byte{}}
	slack := httptest.NewServer(c.handler("slack"))
	defer slack.Close()
	teams := httptest.NewServer(c.handler("teams"))
	defer teams.Close()
	generic := httptest.NewServer(c.handler("http"))
	defer generic.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	t.Setenv("TEST_SLACK_URL", slack.URL)
	t.Setenv("TEST_TEAMS_URL", teams.URL)
	t.Setenv("TEST_HTTP_URL", generic.URL)
	t.Setenv("TEST_FAILING_URL", failing.URL)

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{lowScoreRule(time.Minute)},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "TEST_SLACK_URL"},
			{Type: "teams", URLEnv: "TEST_TEAMS_URL"},
			{Type: "http", URLEnv: "TEST_HTTP_URL"},
			{Type: "http", URLEnv: "TEST_FAILING_URL"},
			{Type: "http", URLEnv: "TEST_UNSET_URL"},
		},
	}, clockwork.NewFakeClockAt(base))

	e.Evaluate(analysis("a.test", 20))
	e.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	var s map[string]string
	if err := json.Unmarshal(c.bodies["slack"], &s); err != nil {
		t.Fatalf("slack body: %v", err)
	}
	if !strings.HasPrefix(s["text"], "*[CRITICAL]*") || !strings.Contains(s["text"], "a.test") {
		t.Errorf("slack text: got %q", s["text"])
	}

	var tm map[string]any
	if err := json.Unmarshal(c.bodies["teams"], &tm); err != nil {
		t.Fatalf("teams body: %v", err)
	}
	if tm["@type"] != "MessageCard" || tm["themeColor"] != "FF4F6A" {
		t.Errorf("teams card: got %v", tm)
	}
	if !strings.Contains(string(c.bodies["teams"]), `{"name":"Domain","value":"a.test"}`) {
		t.Errorf("teams facts: got %s", c.bodies["teams"])
	}

	var h struct {
		Alert Alert `json:"alert"`
	}
	if err := json.Unmarshal(c.bodies["http"], &h); err != nil {
		t.Fatalf("http body: %v", err)
	}
	if h.Alert.RuleName != "low-score" || h.Alert.Domain != "a.test" {
		t.Errorf("http alert: got %+v", h.Alert)
	}
}

func TestStyleFor(t *testing.T) {
	tests := []struct {
		severity, tag, color string
	}{
		{"critical", "[CRITICAL]", "FF4F6A"},
		{"warning", "[WARNING]", "FFAB40"},
		{"info", "[INFO]", "00D4FF"},
		{"other", "[INFO]", "00D4FF"},
	}
	for _, tc := range tests {
		got := styleFor(tc.severity)
		if got.tag != tc.tag || got.color != tc.color {
			t.Errorf("styleFor(%q): got %+v", tc.severity, got)
		}
	}
}
