package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/offpage/internal/alerts"
	"github.com/obsidianstack/offpage/internal/api"
	"github.com/obsidianstack/offpage/internal/config"
	"github.com/obsidianstack/offpage/internal/metrics"
	"github.com/obsidianstack/offpage/internal/store"
	"github.com/obsidianstack/offpage/internal/ws"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	httpPort int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, WebSocket stats stream and session sweeper",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&serveFlags.httpPort, "http-port", 0, "override server.http_port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.httpPort > 0 {
		cfg.Server.HTTPPort = serveFlags.httpPort
	}
	logLevel.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"idle_timeout", cfg.Session.IdleTimeout,
		"sweep_interval", cfg.Session.SweepInterval,
		"estimator_timeout", cfg.Analysis.EstimatorTimeout,
		"alert_rules", len(cfg.Alerts.Rules),
	)
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.Key() == "" {
		slog.Warn("auth mode is apikey but the key variable is empty; requests are not authenticated",
			"key_env", cfg.Server.Auth.KeyEnv)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.New()

	engine, err := newEngine(cfg, reg)
	if err != nil {
		return err
	}

	st := store.New(store.Options{IdleTimeout: cfg.Session.IdleTimeout, Observer: reg})
	reg.SetStatsSource(st.Stats)
	sweeper := store.NewSweeper(st, cfg.Session.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	alertEngine := alerts.New(cfg.Alerts, nil)
	defer alertEngine.Wait()

	hub := ws.New(st, cfg.Server.StatsInterval)
	go hub.Run(ctx)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				logLevel.Set(next.Log.SlogLevel())
				alertEngine.Reload(next.Alerts)
			})
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: api.New(api.Deps{
			Store:   st,
			Engine:  engine,
			Alerts:  alertEngine,
			Metrics: reg,
			Hub:     hub,
			Auth:    cfg.Server.Auth,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("offpage shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return httpSrv.Shutdown(shutdownCtx)
}
