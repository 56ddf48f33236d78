// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jmylchreest/pagewatch/internal/scheduler"
)

// ScraperConfig controls the fetcher pool.
type ScraperConfig struct {
	MaxConcurrentChecks int           `koanf:"max_concurrent_checks" validate:"gt=0"`
	RetryAttempts       int           `koanf:"retry_attempts" validate:"gte=0"`
	RetryDelayMs        int           `koanf:"retry_delay_ms" validate:"gte=0"`
	RequestTimeout      time.Duration `koanf:"request_timeout" validate:"gt=0"`
	UserAgent           string        `koanf:"user_agent"`
	ChromePath          string        `koanf:"chrome_path"`
	RatePerSecond       float64       `koanf:"rate_per_second" validate:"gt=0"`
	RateBurst           int           `koanf:"rate_burst" validate:"gt=0"`
}

// SchedulerConfig controls cron admission and the scheduler's concurrency cap.
type SchedulerConfig struct {
	DefaultInterval string        `koanf:"default_interval" validate:"required"`
	MaxRunningJobs  int           `koanf:"max_running_jobs" validate:"gt=0"`
	JobTimeout      time.Duration `koanf:"job_timeout" validate:"gt=0"`
}

// ScreenshotConfig controls on-demand screenshot capture and retention.
type ScreenshotConfig struct {
	Enabled       bool `koanf:"enabled"`
	Quality       int  `koanf:"quality" validate:"gte=1,lte=100"`
	MaxSizeMB     int  `koanf:"max_size_mb" validate:"gt=0"`
	RetentionDays int  `koanf:"retention_days" validate:"gt=0"`
}

// CleanupConfig controls the retention sweep's own cadence, distinct from the
// screenshot policy's retention_days.
type CleanupConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Interval             time.Duration `koanf:"interval" validate:"gt=0"`
	HistoryRetention      time.Duration `koanf:"history_retention" validate:"gt=0"`
	NotificationRetention time.Duration `koanf:"notification_retention" validate:"gt=0"`
}

// Config holds all application configuration.
type Config struct {
	HTTPAddr    string `koanf:"http_addr" validate:"required"`
	DatabaseURL string `koanf:"database_url" validate:"required"`
	DataDir     string `koanf:"data_dir"`

	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`
	LogFile   string `koanf:"log_file"`

	IdleTimeout time.Duration `koanf:"idle_timeout" validate:"gte=0"`

	Scraper    ScraperConfig    `koanf:"scraper" validate:"required"`
	Scheduler  SchedulerConfig  `koanf:"scheduler" validate:"required"`
	Screenshot ScreenshotConfig `koanf:"screenshot" validate:"required"`
	Cleanup    CleanupConfig    `koanf:"cleanup" validate:"required"`
}

// Defaults returns the configuration used when neither a config file nor an
// environment variable overrides a given key.
func Defaults() Config {
	return Config{
		HTTPAddr:    "0.0.0.0:8080",
		DatabaseURL: "file:pagewatch.db?_journal=WAL&_timeout=5000",
		LogLevel:    "info",
		LogFormat:   "text",
		IdleTimeout: 0,
		Scraper: ScraperConfig{
			MaxConcurrentChecks: 3,
			RetryAttempts:       3,
			RetryDelayMs:        500,
			RequestTimeout:      30 * time.Second,
			UserAgent:           "pagewatch/1.0",
			RatePerSecond:       3,
			RateBurst:           3,
		},
		Scheduler: SchedulerConfig{
			DefaultInterval: "0 */6 * * *",
			MaxRunningJobs:  10,
			JobTimeout:      2 * time.Minute,
		},
		Screenshot: ScreenshotConfig{
			Enabled:       false,
			Quality:       80,
			MaxSizeMB:     5,
			RetentionDays: 30,
		},
		Cleanup: CleanupConfig{
			Enabled:               true,
			Interval:              24 * time.Hour,
			HistoryRetention:      90 * 24 * time.Hour,
			NotificationRetention: 30 * 24 * time.Hour,
		},
	}
}

// Load builds the layered configuration: hard-coded defaults, then an
// optional JSON file (path from CONFIG_FILE, default config.json if
// present), then environment variables — each layer overriding the last,
// via koanf's layered provider model.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	configFile := envOr("CONFIG_FILE", "config.json")
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), json.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("PAGEWATCH_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := scheduler.ValidateCron(cfg.Scheduler.DefaultInterval); err != nil {
		return nil, fmt.Errorf("config: scheduler.default_interval: %w", err)
	}

	return &cfg, nil
}

// envTransform maps PAGEWATCH_SCHEDULER__MAX_RUNNING_JOBS ->
// scheduler.max_running_jobs. A double underscore marks struct nesting so
// that single underscores inside a field name (max_running_jobs) survive.
func envTransform(rawKey, value string) (string, any) {
	key := strings.TrimPrefix(rawKey, "PAGEWATCH_")
	parts := strings.Split(key, "__")
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "."), value
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
