// Package config loads the loopmeter configuration from YAML and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/loopmeter/loopmeter/internal/health"
)

// Config is the root configuration structure.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Alerts  AlertsConfig  `mapstructure:"alerts" yaml:"alerts"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// MonitorConfig holds sampling parameters.
type MonitorConfig struct {
	// SampleInterval is the tick period. Must be within [100ms, 60s].
	SampleInterval time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`

	// HistorySize is the ring capacity; zero disables storage.
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`

	// Resolution is the delay recorder granularity. Must be within
	// [1ms, SampleInterval].
	Resolution time.Duration `mapstructure:"resolution" yaml:"resolution"`
}

// HealthConfig holds the scoring thresholds.
type HealthConfig struct {
	LagWarningMs   float64 `mapstructure:"lag_warning_ms" yaml:"lag_warning_ms"`
	LagCriticalMs  float64 `mapstructure:"lag_critical_ms" yaml:"lag_critical_ms"`
	UtilWarning    float64 `mapstructure:"util_warning" yaml:"util_warning"`
	UtilCritical   float64 `mapstructure:"util_critical" yaml:"util_critical"`
	MemoryWarning  float64 `mapstructure:"memory_warning" yaml:"memory_warning"`
	MemoryCritical float64 `mapstructure:"memory_critical" yaml:"memory_critical"`
}

// Thresholds converts the health section into scorer thresholds.
func (h HealthConfig) Thresholds() health.Thresholds {
	return health.Thresholds{
		LagWarningMs:   h.LagWarningMs,
		LagCriticalMs:  h.LagCriticalMs,
		UtilWarning:    h.UtilWarning,
		UtilCritical:   h.UtilCritical,
		MemoryWarning:  h.MemoryWarning,
		MemoryCritical: h.MemoryCritical,
	}
}

// AlertsConfig configures the alert notifier.
type AlertsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// WebhookURL is the endpoint for alert notifications; empty means
	// alerts are only logged.
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`

	// Cooldown is the minimum gap between repeat firings for an unchanged
	// level (default 30s).
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`

	// PollInterval is how often the notifier evaluates current health
	// (default 5s).
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			SampleInterval: time.Second,
			HistorySize:    300,
			Resolution:     10 * time.Millisecond,
		},
		Health: HealthConfig{
			LagWarningMs:   50,
			LagCriticalMs:  100,
			UtilWarning:    0.7,
			UtilCritical:   0.9,
			MemoryWarning:  0.8,
			MemoryCritical: 0.9,
		},
		Alerts: AlertsConfig{
			Enabled:      false,
			Cooldown:     30 * time.Second,
			PollInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path, or from the default
// search locations when path is empty. Missing files yield the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.config/loopmeter")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("LOOPMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Default(), nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("monitor.sample_interval", def.Monitor.SampleInterval)
	v.SetDefault("monitor.history_size", def.Monitor.HistorySize)
	v.SetDefault("monitor.resolution", def.Monitor.Resolution)
	v.SetDefault("health.lag_warning_ms", def.Health.LagWarningMs)
	v.SetDefault("health.lag_critical_ms", def.Health.LagCriticalMs)
	v.SetDefault("health.util_warning", def.Health.UtilWarning)
	v.SetDefault("health.util_critical", def.Health.UtilCritical)
	v.SetDefault("health.memory_warning", def.Health.MemoryWarning)
	v.SetDefault("health.memory_critical", def.Health.MemoryCritical)
	v.SetDefault("alerts.enabled", def.Alerts.Enabled)
	v.SetDefault("alerts.cooldown", def.Alerts.Cooldown)
	v.SetDefault("alerts.poll_interval", def.Alerts.PollInterval)
	v.SetDefault("logging.level", def.Logging.Level)
}

// Validate checks the configuration values.
func Validate(cfg *Config) error {
	m := cfg.Monitor
	if m.SampleInterval < 100*time.Millisecond || m.SampleInterval > time.Minute {
		return fmt.Errorf("monitor.sample_interval must be between 100ms and 60s, got %v", m.SampleInterval)
	}
	if m.HistorySize < 0 {
		return fmt.Errorf("monitor.history_size must be >= 0, got %d", m.HistorySize)
	}
	if m.Resolution < time.Millisecond || m.Resolution > m.SampleInterval {
		return fmt.Errorf("monitor.resolution must be between 1ms and the sample interval, got %v", m.Resolution)
	}

	h := cfg.Health
	if h.LagWarningMs <= 0 || h.LagCriticalMs <= h.LagWarningMs {
		return fmt.Errorf("health lag thresholds must satisfy 0 < warning < critical, got %v/%v", h.LagWarningMs, h.LagCriticalMs)
	}
	if err := validateRatioPair("util", h.UtilWarning, h.UtilCritical); err != nil {
		return err
	}
	if err := validateRatioPair("memory", h.MemoryWarning, h.MemoryCritical); err != nil {
		return err
	}

	a := cfg.Alerts
	if a.Cooldown <= 0 {
		return fmt.Errorf("alerts.cooldown must be positive, got %v", a.Cooldown)
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("alerts.poll_interval must be positive, got %v", a.PollInterval)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	return nil
}

func validateRatioPair(name string, warning, critical float64) error {
	if warning <= 0 || warning >= 1 || critical <= warning || critical >= 1 {
		return fmt.Errorf("health %s thresholds must satisfy 0 < warning < critical < 1, got %v/%v", name, warning, critical)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path, creating
// parent directories as needed. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
