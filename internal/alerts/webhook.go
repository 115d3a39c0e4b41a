package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/obsidianstack/offpage/internal/config"
)

// severityStyle is how a severity is rendered in chat notifications.
type severityStyle struct {
	tag   string // Slack prefix
	color string // Teams theme colour, hex without '#'
}

var severityStyles = map[string]severityStyle{
	"critical": {tag: "[CRITICAL]", color: "FF4F6A"},
	"warning":  {tag: "[WARNING]", color: "FFAB40"},
	"info":     {tag: "[INFO]", color: "00D4FF"},
}

func styleFor(severity string) severityStyle {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return severityStyles["info"]
}

// payloadBuilders render an alert into each webhook type's request body.
var payloadBuilders = map[string]func(*Alert) any{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) any { return map[string]any{"alert": a} },
}

type slackMessage struct {
	Text string `json:"text"`
}

func slackPayload(a *Alert) any {
	if a.State == StateResolved {
		return slackMessage{Text: fmt.Sprintf("*[RESOLVED]* %s on %s", a.RuleName, a.Domain)}
	}
	return slackMessage{Text: fmt.Sprintf("*%s* %s", styleFor(a.Severity).tag, a.Message)}
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	Facts []teamsFact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []teamsSection `json:"sections"`
}

func teamsPayload(a *Alert) any {
	return teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: styleFor(a.Severity).color,
		Summary:    a.RuleName,
		Title:      fmt.Sprintf("Off-page alert: %s (%s)", a.RuleName, a.State),
		Text:       a.Message,
		Sections: []teamsSection{{Facts: []teamsFact{
			{Name: "Domain", Value: a.Domain},
			{Name: "URL", Value: a.URL},
			{Name: "Value", Value: strconv.FormatFloat(a.Value, 'f', 2, 64)},
			{Name: "Analysis", Value: a.AnalysisID},
		}}},
	}
}

// deliver posts a to every hook with a resolvable URL. Failures are logged
// and never reach the caller.
func (e *Engine) deliver(hooks []config.WebhookConfig, a *Alert) {
	for _, wh := range hooks {
		target := wh.URL()
		if target == "" {
			continue
		}
		build, ok := payloadBuilders[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		log := slog.With("type", wh.Type, "rule", a.RuleName, "domain", a.Domain, "state", a.State)
		if err := e.post(target, build(a)); err != nil {
			log.Error("alerts: webhook delivery failed", "err", err)
			continue
		}
		log.Debug("alerts: webhook delivered")
	}
}

func (e *Engine) post(target string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}
