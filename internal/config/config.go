package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Feed        FeedConfig        `yaml:"feed"`
	Novelty     NoveltyConfig     `yaml:"novelty"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Syndication SyndicationConfig `yaml:"syndication"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FeedConfig configures feed assembly.
type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

// NoveltyConfig sizes the per-user seen-set filters.
type NoveltyConfig struct {
	Capacity          uint    `yaml:"capacity"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

// ScheduleConfig configures the syndication interval.
type ScheduleConfig struct {
	IngestInterval string `yaml:"ingest_interval"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// SyndicationConfig lists external feeds pulled into portfolios.
type SyndicationConfig struct {
	Feeds []SyndicatedFeed `yaml:"feeds"`
}

// SyndicatedFeed binds one RSS/Atom URL to a portfolio.
type SyndicatedFeed struct {
	Portfolio string `yaml:"portfolio"`
	URL       string `yaml:"url"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./atelier.db"},
		Server:   ServerConfig{Port: 8080},
		Feed:     FeedConfig{PageSize: 20},
		Novelty: NoveltyConfig{
			Capacity:          4096,
			FalsePositiveRate: 0.01,
		},
		Schedule: ScheduleConfig{IngestInterval: "30m"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATELIER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ATELIER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}
