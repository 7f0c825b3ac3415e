package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures provider credentials, storage, ingestion and sampling settings.
type Config struct {
	Account   AccountConfig   `yaml:"account"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Server    ServerConfig    `yaml:"server"`
}

type AccountConfig struct {
	// Owner user id; a single-owner deployment uses one.
	UserID string `yaml:"userId"`
}

type ProvidersConfig struct {
	// TwitterAPI.io API key. If empty, read from env TWITTERAPI_KEY.
	TwitterAPIKey string `yaml:"twitterApiKey"`
	// SocialData.tools API key. If empty, read from env SOCIALDATA_KEY.
	SocialDataKey string `yaml:"socialDataKey"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type IngestionConfig struct {
	// Per-user daily tweet ceiling used when a user has no stored budget.
	DefaultDailyLimit int `yaml:"defaultDailyLimit"`
	// Days of stored tweets kept by the retention sweep.
	RetentionDays int `yaml:"retentionDays"`
	// Interval between ingestion runs when serving with the loop enabled.
	IntervalMinutes int `yaml:"intervalMinutes"`
}

type SamplingConfig struct {
	Limit    int `yaml:"limit"`
	DaysBack int `yaml:"daysBack"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Static bearer secret guarding the cron trigger routes.
	// If empty, read from env CRON_SECRET.
	CronSecret string `yaml:"cronSecret"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account:   AccountConfig{UserID: "owner"},
		Providers: ProvidersConfig{},
		Storage:   StorageConfig{DBPath: "./musefeed.db"},
		Ingestion: IngestionConfig{DefaultDailyLimit: 100, RetentionDays: 30, IntervalMinutes: 1440},
		Sampling:  SamplingConfig{Limit: 50, DaysBack: 30},
		Server:    ServerConfig{Addr: ":8080"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Providers.TwitterAPIKey == "" {
		c.Providers.TwitterAPIKey = os.Getenv("TWITTERAPI_KEY")
	}
	if c.Providers.SocialDataKey == "" {
		c.Providers.SocialDataKey = os.Getenv("SOCIALDATA_KEY")
	}
	if c.Server.CronSecret == "" {
		c.Server.CronSecret = os.Getenv("CRON_SECRET")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
