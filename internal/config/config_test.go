package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
sources:
  path: /etc/sentinel/sources.yaml
collector:
  concurrency: 6
  timeout_seconds: 45
  user_agent: sentinel-test
scheduler:
  high_minutes: 2
  medium_minutes: 10
  low_minutes: 20
  full_sweep_minutes: 30
store:
  provider: postgres
  dsn: postgres://localhost/sentinel
  retention_days: 90
archive:
  enabled: true
  base_dir: /tmp/archive
notify:
  provider: pubsub
  project_id: proj
  topic_id: alerts
keywords:
  window_hours: 6
  limit: 25
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Collector.Concurrency != 6 {
		t.Fatalf("expected collector overrides to apply, got %+v", cfg.Collector)
	}
	if cfg.Scheduler.HighMinutes != 2 || cfg.Scheduler.FullSweepMinutes != 30 {
		t.Fatalf("expected scheduler overrides to apply, got %+v", cfg.Scheduler)
	}
	if cfg.Store.Provider != "postgres" || cfg.Store.RetentionDays != 90 {
		t.Fatalf("expected store overrides to apply, got %+v", cfg.Store)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.Retention(); got != 90*24*time.Hour {
		t.Fatalf("expected retention 90d, got %v", got)
	}
	if got := cfg.KeywordWindow(); got != 6*time.Hour {
		t.Fatalf("expected keyword window 6h, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Collector.Concurrency != 10 {
		t.Fatalf("expected default concurrency 10, got %d", cfg.Collector.Concurrency)
	}
	if cfg.Collector.TimeoutSeconds != 30 {
		t.Fatalf("expected default timeout 30s, got %d", cfg.Collector.TimeoutSeconds)
	}
	if cfg.Store.RetentionDays != 180 {
		t.Fatalf("expected default retention 180d, got %d", cfg.Store.RetentionDays)
	}
	if cfg.Scheduler.HighMinutes != 5 || cfg.Scheduler.MediumMinutes != 15 || cfg.Scheduler.LowMinutes != 30 {
		t.Fatalf("unexpected default tier cadences: %+v", cfg.Scheduler)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		Collector: CollectorConfig{Concurrency: 10, TimeoutSeconds: 30},
		Store:     StoreConfig{Provider: "memory", RetentionDays: 180},
		Notify:    NotifyConfig{Provider: "noop"},
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "invalid concurrency",
			mutate: func(c *Config) { c.Collector.Concurrency = 0 },
			want:   "collector.concurrency",
		},
		{
			name:   "invalid timeout",
			mutate: func(c *Config) { c.Collector.TimeoutSeconds = 0 },
			want:   "collector.timeout_seconds",
		},
		{
			name:   "invalid retention",
			mutate: func(c *Config) { c.Store.RetentionDays = 0 },
			want:   "store.retention_days",
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *Config) { c.Store.Provider = "postgres" },
			want:   "store.dsn",
		},
		{
			name:   "unknown store provider",
			mutate: func(c *Config) { c.Store.Provider = "mystery" },
			want:   "store.provider",
		},
		{
			name:   "pubsub without topic",
			mutate: func(c *Config) { c.Notify.Provider = "pubsub" },
			want:   "notify.project_id",
		},
		{
			name:   "auth without key",
			mutate: func(c *Config) { c.Auth.Enabled = true },
			want:   "auth.api_key",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
