// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Collector CollectorConfig `mapstructure:"collector"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Store     StoreConfig     `mapstructure:"store"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SourcesConfig points at the source catalog file.
type SourcesConfig struct {
	Path string `mapstructure:"path"`
}

// CollectorConfig governs the fetch fan-out.
type CollectorConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// SchedulerConfig sets standing cadences, in minutes.
type SchedulerConfig struct {
	HighMinutes        int `mapstructure:"high_minutes"`
	MediumMinutes      int `mapstructure:"medium_minutes"`
	LowMinutes         int `mapstructure:"low_minutes"`
	FullSweepMinutes   int `mapstructure:"full_sweep_minutes"`
	EvaluationMinutes  int `mapstructure:"evaluation_minutes"`
	MaintenanceMinutes int `mapstructure:"maintenance_minutes"`
}

// StoreConfig controls persistence.
type StoreConfig struct {
	Provider      string `mapstructure:"provider"` // postgres | memory
	DSN           string `mapstructure:"dsn"`
	MaxConns      int    `mapstructure:"max_conns"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// ArchiveConfig controls raw payload archival.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseDir string `mapstructure:"base_dir"`
}

// NotifyConfig selects the event publisher.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"` // pubsub | noop
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// AlertsConfig tunes rule evaluation.
type AlertsConfig struct {
	SeedDefaults bool `mapstructure:"seed_defaults"`
}

// KeywordsConfig tunes trending aggregation.
type KeywordsConfig struct {
	WindowHours int `mapstructure:"window_hours"`
	Limit       int `mapstructure:"limit"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("sources.path", "sources.yaml")
	v.SetDefault("collector.concurrency", 10)
	v.SetDefault("collector.timeout_seconds", 30)
	v.SetDefault("collector.user_agent", "sentinel-ingest/0.1")
	v.SetDefault("scheduler.high_minutes", 5)
	v.SetDefault("scheduler.medium_minutes", 15)
	v.SetDefault("scheduler.low_minutes", 30)
	v.SetDefault("scheduler.full_sweep_minutes", 60)
	v.SetDefault("scheduler.evaluation_minutes", 5)
	v.SetDefault("scheduler.maintenance_minutes", 1440)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.max_conns", 8)
	v.SetDefault("store.retention_days", 180)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.base_dir", "archive")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("alerts.seed_defaults", true)
	v.SetDefault("keywords.window_hours", 24)
	v.SetDefault("keywords.limit", 50)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Collector.Concurrency <= 0 {
		return fmt.Errorf("collector.concurrency must be > 0")
	}
	if c.Collector.TimeoutSeconds <= 0 {
		return fmt.Errorf("collector.timeout_seconds must be > 0")
	}
	if c.Store.RetentionDays <= 0 {
		return fmt.Errorf("store.retention_days must be > 0")
	}
	switch c.Store.Provider {
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.provider: %s", c.Store.Provider)
	}
	switch c.Notify.Provider {
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id must be set when notify.provider is pubsub")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown notify.provider: %s", c.Notify.Provider)
	}
	if c.Archive.Enabled && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set when archive is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the per-request timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutSeconds) * time.Second
}

// Retention converts the retention setting into a duration.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Store.RetentionDays) * 24 * time.Hour
}

// KeywordWindow converts the trending window into a duration.
func (c Config) KeywordWindow() time.Duration {
	return time.Duration(c.Keywords.WindowHours) * time.Hour
}
