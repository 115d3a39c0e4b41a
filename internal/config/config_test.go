package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Session.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("idle_timeout: got %v, want %v", cfg.Session.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.Session.SweepInterval != DefaultSweepInterval {
		t.Errorf("sweep_interval: got %v, want %v", cfg.Session.SweepInterval, DefaultSweepInterval)
	}
	if cfg.Analysis.EstimatorTimeout != DefaultEstimatorTimeout {
		t.Errorf("estimator_timeout: got %v, want %v", cfg.Analysis.EstimatorTimeout, DefaultEstimatorTimeout)
	}
	if cfg.Analysis.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("max_body_bytes: got %d, want %d", cfg.Analysis.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.Signals.Burst != DefaultSignalsBurst || cfg.Signals.RatePerSecond != DefaultSignalsRate {
		t.Errorf("signals: got %+v", cfg.Signals)
	}
	if cfg.Signals.Endpoint != "" {
		t.Errorf("signals.endpoint: got %q, want empty", cfg.Signals.Endpoint)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  stats_interval: 2s
  auth:
    mode: apikey
    key_env: OFFPAGE_KEY
    header: x-offpage-key
session:
  idle_timeout: 45m
  sweep_interval: 1m
analysis:
  estimator_timeout: 5s
  fetch_timeout: 3s
  max_body_bytes: 1048576
  user_agent: test-agent
  seed: 42
signals:
  endpoint: https://signals.test/v1/query
  key_env: SIGNALS_KEY
  rate_per_second: 5
  burst: 10
  timeout: 4s
alerts:
  rules:
    - name: weak-domain
      condition: "domain_authority < 30"
      severity: critical
      cooldown: 1h
    - name: degraded
      condition: "degraded_facets > 2"
  webhooks:
    - type: slack
      url_env: SLACK_URL
log:
  level: debug
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 || cfg.Server.StatsInterval != 2*time.Second {
		t.Errorf("server: got %+v", cfg.Server)
	}
	if cfg.Server.Auth.Mode != "apikey" || cfg.Server.Auth.EffectiveHeader() != "x-offpage-key" {
		t.Errorf("auth: got %+v", cfg.Server.Auth)
	}
	if cfg.Session.IdleTimeout != 45*time.Minute || cfg.Session.SweepInterval != time.Minute {
		t.Errorf("session: got %+v", cfg.Session)
	}
	if cfg.Analysis.Seed != 42 || cfg.Analysis.UserAgent != "test-agent" || cfg.Analysis.MaxBodyBytes != 1<<20 {
		t.Errorf("analysis: got %+v", cfg.Analysis)
	}
	if cfg.Signals.Endpoint != "https://signals.test/v1/query" || cfg.Signals.Burst != 10 || cfg.Signals.Timeout != 4*time.Second {
		t.Errorf("signals: got %+v", cfg.Signals)
	}
	if len(cfg.Alerts.Rules) != 2 {
		t.Fatalf("rules: got %d, want 2", len(cfg.Alerts.Rules))
	}
	if r := cfg.Alerts.Rules[0]; r.Cooldown != time.Hour || r.Severity != "critical" {
		t.Errorf("rule[0]: got %+v", r)
	}
	if r := cfg.Alerts.Rules[1]; r.Cooldown != DefaultAlertCooldown || r.Severity != "warning" {
		t.Errorf("rule[1] defaults: got %+v", r)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v, want debug", cfg.Log.SlogLevel())
	}
}

func TestAuth_DefaultHeader(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  auth:\n    mode: apikey\n    key_env: K\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestSecretsFromEnv(t *testing.T) {
	t.Setenv("OFFPAGE_TEST_KEY", "s3cret")
	t.Setenv("OFFPAGE_TEST_HOOK", "https://hooks.test/x")

	a := AuthConfig{KeyEnv: "OFFPAGE_TEST_KEY"}
	if a.Key() != "s3cret" {
		t.Errorf("AuthConfig.Key: got %q", a.Key())
	}
	s := SignalsConfig{KeyEnv: "OFFPAGE_TEST_KEY"}
	if s.Key() != "s3cret" {
		t.Errorf("SignalsConfig.Key: got %q", s.Key())
	}
	w := WebhookConfig{URLEnv: "OFFPAGE_TEST_HOOK"}
	if w.URL() != "https://hooks.test/x" {
		t.Errorf("WebhookConfig.URL: got %q", w.URL())
	}
	if (AuthConfig{}).Key() != "" || (WebhookConfig{}).URL() != "" {
		t.Error("empty env names should resolve to empty strings")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port", "server:\n  http_port: 70000\n", "http_port"},
		{"auth mode", "server:\n  auth:\n    mode: mtls\n", "auth.mode"},
		{"apikey without env", "server:\n  auth:\n    mode: apikey\n", "key_env"},
		{"idle timeout", "session:\n  idle_timeout: -1s\n", "idle_timeout"},
		{"body cap", "analysis:\n  max_body_bytes: 0\n", "max_body_bytes"},
		{"negative burst", "signals:\n  burst: -1\n", "signals"},
		{"rule without name", "alerts:\n  rules:\n    - condition: \"overall < 40\"\n", "name is required"},
		{"rule severity", "alerts:\n  rules:\n    - name: x\n      condition: \"overall < 40\"\n      severity: loud\n", "severity"},
		{"webhook type", "alerts:\n  webhooks:\n    - type: pagerduty\n      url_env: X\n", "pagerduty"},
		{"webhook env", "alerts:\n  webhooks:\n    - type: slack\n", "url_env"},
		{"log level", "log:\n  level: verbose\n", "log.level"},
		{"yaml", "server: [", "parse yaml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file: expected error")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q): got %v, want %v", in, got, want)
		}
	}
}
