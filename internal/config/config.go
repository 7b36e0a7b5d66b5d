// Package config loads service settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Insights InsightsConfig `yaml:"insights"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// ShareBaseURL prefixes fingerprint share links. Empty disables them.
	ShareBaseURL string `yaml:"share_base_url"`
}

type StorageConfig struct {
	// Driver is the repository backend. Only "sqlite" is supported.
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type SpotifyConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	RefreshToken   string `yaml:"refresh_token"`
	BaseURL        string `yaml:"base_url"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
}

type InsightsConfig struct {
	DedupeRule       string `yaml:"dedupe_rule"`
	IncludeLiked     bool   `yaml:"include_liked"`
	MinPlaylists     int    `yaml:"min_playlists"`
	MinVariants      int    `yaml:"min_variants"`
	GenreArtistLimit int    `yaml:"genre_artist_limit"`
}

type WorkerConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
	// PreviewAnalysis enables energy estimates from preview clips.
	PreviewAnalysis bool `yaml:"preview_analysis"`
}

// Load reads the YAML file at path, applies defaults and then environment
// overrides. An empty path skips the file. Variables in a .env file in the
// working directory are loaded first without replacing ones already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	rule, err := domain.ParseDedupeRule(cfg.Insights.DedupeRule)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Insights.DedupeRule = string(rule)

	if cfg.Storage.Driver != "sqlite" {
		return nil, fmt.Errorf("config: unknown storage driver %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "tastemap.db"
	}
	if cfg.Spotify.MaxRetries <= 0 {
		cfg.Spotify.MaxRetries = 3
	}
	if cfg.Spotify.RetryBackoffMs <= 0 {
		cfg.Spotify.RetryBackoffMs = 500
	}
	if cfg.Insights.MinPlaylists <= 0 {
		cfg.Insights.MinPlaylists = 2
	}
	if cfg.Insights.MinVariants <= 0 {
		cfg.Insights.MinVariants = 2
	}
	if cfg.Insights.GenreArtistLimit <= 0 {
		cfg.Insights.GenreArtistLimit = 200
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 2
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = 100
	}
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SPOTIFY_CLIENT_ID":     &cfg.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &cfg.Spotify.ClientSecret,
		"SPOTIFY_REFRESH_TOKEN": &cfg.Spotify.RefreshToken,
		"STORAGE_DRIVER":        &cfg.Storage.Driver,
		"STORAGE_PATH":          &cfg.Storage.Path,
		"PORT":                  &cfg.Server.Port,
		"DEDUPE_RULE":           &cfg.Insights.DedupeRule,
		"LOG_LEVEL":             &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SPOTIFY_MAX_RETRIES":      &cfg.Spotify.MaxRetries,
		"SPOTIFY_RETRY_BACKOFF_MS": &cfg.Spotify.RetryBackoffMs,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
		}
		*dst = n
	}
	return nil
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Rule returns the configured dedupe rule. Load has already validated it.
func (c *Config) Rule() domain.DedupeRule {
	return domain.DedupeRule(c.Insights.DedupeRule)
}
