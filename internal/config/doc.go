// Package config loads and watches the service configuration file
// (config.yaml).
//
// Top-level sections:
//   - server: http_port, auth (mode apikey|none, key_env, header), stats_interval
//   - session: idle_timeout, sweep_interval
//   - analysis: estimator_timeout, fetch_timeout, max_body_bytes, user_agent, seed
//   - signals: endpoint, key_env, key_header, rate_per_second, burst, timeout
//   - alerts: rules [], webhooks []
//   - log: level
//
// Load(path) reads the YAML file, applies defaults, then validates ranges and
// enums. Secrets are never stored in the file; *_env fields name the
// environment variables that hold them.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each
// event so atomic-save editors (rename then create) keep being observed.
package config
