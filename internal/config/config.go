package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultHTTPPort         = 8080
	DefaultStatsInterval    = 5 * time.Second
	DefaultIdleTimeout      = 30 * time.Minute
	DefaultSweepInterval    = 5 * time.Minute
	DefaultEstimatorTimeout = 15 * time.Second
	DefaultFetchTimeout     = 10 * time.Second
	DefaultMaxBodyBytes     = 5 << 20
	DefaultUserAgent        = "offpage/1.0 (+https://github.com/obsidianstack/offpage)"
	DefaultSignalsRate      = 2.0
	DefaultSignalsBurst     = 4
	DefaultSignalsTimeout   = 10 * time.Second
	DefaultAlertCooldown    = 15 * time.Minute
	DefaultKeyHeader        = "x-api-key"
)

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Signals  SignalsConfig  `yaml:"signals"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how REST and WebSocket clients are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// StatsInterval is how often store stats are pushed to WebSocket clients.
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultKeyHeader
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	// IdleTimeout is how long a session may go untouched before it is swept.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// SweepInterval is the period of the idle-session sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AnalysisConfig tunes the scoring engine and the page fetcher.
type AnalysisConfig struct {
	EstimatorTimeout time.Duration `yaml:"estimator_timeout"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	UserAgent        string        `yaml:"user_agent"`

	// Seed seeds the heuristic random source. 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// SignalsConfig points at the search-signal service. With no endpoint every
// signal-backed facet falls back.
type SignalsConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	KeyEnv        string        `yaml:"key_env"`
	KeyHeader     string        `yaml:"key_header"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Key returns the signal service API key resolved from the environment.
func (s SignalsConfig) Key() string {
	if s.KeyEnv == "" {
		return ""
	}
	return os.Getenv(s.KeyEnv)
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition evaluated against
// every saved analysis.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "domain_authority < 30",
	// "overall < 40", "degraded_facets > 2", "level == Low".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for the same domain for this duration.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// SlogLevel returns the configured level as a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML bytes into a defaulted, validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyZeroDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is also
// the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:      DefaultHTTPPort,
			Auth:          AuthConfig{Mode: "none"},
			StatsInterval: DefaultStatsInterval,
		},
		Session: SessionConfig{
			IdleTimeout:   DefaultIdleTimeout,
			SweepInterval: DefaultSweepInterval,
		},
		Analysis: AnalysisConfig{
			EstimatorTimeout: DefaultEstimatorTimeout,
			FetchTimeout:     DefaultFetchTimeout,
			MaxBodyBytes:     DefaultMaxBodyBytes,
			UserAgent:        DefaultUserAgent,
		},
		Signals: SignalsConfig{
			RatePerSecond: DefaultSignalsRate,
			Burst:         DefaultSignalsBurst,
			Timeout:       DefaultSignalsTimeout,
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyZeroDefaults fills list entries, which yaml decodes without defaults.
func applyZeroDefaults(cfg *Config) {
	for i := range cfg.Alerts.Rules {
		if cfg.Alerts.Rules[i].Cooldown == 0 {
			cfg.Alerts.Rules[i].Cooldown = DefaultAlertCooldown
		}
		if cfg.Alerts.Rules[i].Severity == "" {
			cfg.Alerts.Rules[i].Severity = "warning"
		}
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when mode is apikey")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.StatsInterval <= 0 {
		return fmt.Errorf("server.stats_interval must be positive")
	}
	if cfg.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if cfg.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	if cfg.Analysis.EstimatorTimeout <= 0 || cfg.Analysis.FetchTimeout <= 0 {
		return fmt.Errorf("analysis timeouts must be positive")
	}
	if cfg.Analysis.MaxBodyBytes <= 0 {
		return fmt.Errorf("analysis.max_body_bytes must be positive")
	}
	if cfg.Signals.RatePerSecond < 0 || cfg.Signals.Burst < 0 || cfg.Signals.Timeout < 0 {
		return fmt.Errorf("signals rate, burst and timeout must not be negative")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: severity %q unknown: want critical|warning|info", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: type %q unknown: want slack|teams|http", i, w.Type)
		}
		if w.URLEnv == "" {
			return fmt.Errorf("alerts.webhooks[%d]: url_env is required", i)
		}
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
