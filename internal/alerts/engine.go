package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/obsidianstack/offpage/internal/config"
	"github.com/obsidianstack/offpage/pkg/types"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
	webhookTimeout    = 10 * time.Second
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Domain     string     `json:"domain"`
	URL        string     `json:"url"`
	AnalysisID string     `json:"analysis_id"`
	SessionID  string     `json:"session_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Engine evaluates alert rules against saved analyses and delivers webhook
// notifications when rules fire or resolve. Rules are keyed per domain, so
// a domain that keeps scoring badly fires once per cooldown.
//
// Engine is safe for concurrent use.
type Engine struct {
	clock  clockwork.Clock
	client *http.Client

	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:domain"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	deliveries sync.WaitGroup
}

// New creates an Engine from the alert configuration. A nil clock uses the
// real clock. An Engine with no rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		clock:    clock,
		client:   &http.Client{Timeout: webhookTimeout},
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
}

// Reload replaces the rules and webhooks. Active alerts for rules that no
// longer exist are dropped.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks

	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
		}
	}
	slog.Info("alerts: rules reloaded", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests every rule against a. Alerts that fire are recorded and
// delivered asynchronously; alerts that were firing for the same domain
// but whose condition is now false are resolved. It returns the alerts
// that fired.
func (e *Engine) Evaluate(a types.AnalysisResult) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rules) == 0 {
		return nil
	}

	now := e.clock.Now()
	domain := a.OffPage.Domain
	var fired []Alert
	for _, rule := range e.rules {
		key := rule.Name + ":" + domain
		fires, value := evalCondition(rule.Condition, &a.OffPage)

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) < cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			al := &Alert{
				ID:         fmt.Sprintf("%s:%s:%d", rule.Name, domain, now.UnixNano()),
				RuleName:   rule.Name,
				Domain:     domain,
				URL:        a.URL,
				AnalysisID: a.ID,
				SessionID:  a.SessionID,
				Severity:   sev,
				Value:      value,
				Message:    fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)", sev, rule.Name, domain, rule.Condition, value),
				FiredAt:    now,
				State:      StateFiring,
			}
			e.active[key] = al
			e.lastFire[key] = now
			fired = append(fired, *al)

			slog.Warn("alerts: alert fired",
				"rule", rule.Name,
				"domain", domain,
				"value", value,
				"severity", sev,
			)
			e.deliverAsync(*al)
			continue
		}

		if al, ok := e.active[key]; ok {
			resolved := now
			al.State = StateResolved
			al.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, al)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			slog.Info("alerts: alert resolved", "rule", rule.Name, "domain", domain)
			e.deliverAsync(*al)
		}
	}
	return fired
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.clock.Now().Add(-recentWindowHours * time.Hour)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until every in-flight webhook delivery has finished.
func (e *Engine) Wait() { e.deliveries.Wait() }

// deliverAsync snapshots the webhook list and delivers a in the background.
// Callers hold e.mu.
func (e *Engine) deliverAsync(a Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	hooks := append([]config.WebhookConfig(nil), e.webhooks...)
	e.deliveries.Add(1)
	go func() {
		defer e.deliveries.Done()
		e.deliver(hooks, &a)
	}()
}
