package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/offpage/internal/config"
	"github.com/obsidianstack/offpage/internal/content"
	"github.com/obsidianstack/offpage/internal/jitter"
	"github.com/obsidianstack/offpage/internal/offpage"
	"github.com/obsidianstack/offpage/internal/signals"
)

var (
	configPath string
	logLevel   = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "offpage",
	Short: "Off-page SEO scoring service",
	Long: `offpage estimates the off-page strength of a URL: backlinks, domain and
page authority, social signals, brand mentions, indexing and competitive
position. Every estimator runs concurrently and falls back to a
conservative value when its data source is unavailable, so an analysis
always completes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnv("OFFPAGE_CONFIG", ""), "path to config file (defaults apply when empty)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config, or returns the defaults when no path is set.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newEngine wires the scoring engine's collaborators from cfg. Without a
// signals endpoint every signal-backed facet takes its fallback.
func newEngine(cfg *config.Config, obs offpage.Observer) (*offpage.Engine, error) {
	var sc signals.Client = signals.Unavailable{}
	if cfg.Signals.Endpoint != "" {
		c, err := signals.NewHTTPClient(signals.HTTPOptions{
			Endpoint:      cfg.Signals.Endpoint,
			APIKey:        cfg.Signals.Key(),
			KeyHeader:     cfg.Signals.KeyHeader,
			RatePerSecond: cfg.Signals.RatePerSecond,
			Burst:         cfg.Signals.Burst,
			Timeout:       cfg.Signals.Timeout,
		})
		if err != nil {
			return nil, err
		}
		sc = c
	} else {
		slog.Warn("no signals endpoint configured; signal-backed facets will use fallback values")
	}

	fetcher := content.NewHTTPFetcher(content.FetcherOptions{
		Timeout:      cfg.Analysis.FetchTimeout,
		UserAgent:    cfg.Analysis.UserAgent,
		MaxBodyBytes: cfg.Analysis.MaxBodyBytes,
	})

	return offpage.NewEngine(offpage.Deps{
		Signals:  sc,
		Fetcher:  fetcher,
		Rand:     jitter.New(cfg.Analysis.Seed),
		Observer: obs,
	}, offpage.Options{EstimatorTimeout: cfg.Analysis.EstimatorTimeout}), nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
