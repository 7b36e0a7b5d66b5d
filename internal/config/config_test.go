package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// clearEnv blanks every variable applyEnv reads so host settings do not leak
// into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_REFRESH_TOKEN",
		"SPOTIFY_MAX_RETRIES", "SPOTIFY_RETRY_BACKOFF_MS",
		"STORAGE_DRIVER", "STORAGE_PATH", "PORT", "DEDUPE_RULE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level: debug
server:
  port: "9090"
  share_base_url: https://tastemap.example/dna
storage:
  path: /tmp/library.db
spotify:
  client_id: abc
  max_retries: 5
insights:
  dedupe_rule: track_uri
  include_liked: true
  min_playlists: 3
worker:
  count: 4
  preview_analysis: true
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://tastemap.example/dna", cfg.Server.ShareBaseURL)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/library.db", cfg.Storage.Path)
	assert.Equal(t, "abc", cfg.Spotify.ClientID)
	assert.Equal(t, 5, cfg.Spotify.MaxRetries)
	assert.Equal(t, 500, cfg.Spotify.RetryBackoffMs)
	assert.Equal(t, domain.DedupeByTrackURI, cfg.Rule())
	assert.True(t, cfg.Insights.IncludeLiked)
	assert.Equal(t, 3, cfg.Insights.MinPlaylists)
	assert.Equal(t, 2, cfg.Insights.MinVariants)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
	assert.True(t, cfg.Worker.PreviewAnalysis)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "tastemap.db", cfg.Storage.Path)
	assert.Equal(t, domain.DedupeByTrackID, cfg.Rule())
	assert.False(t, cfg.Insights.IncludeLiked)
	assert.Equal(t, 200, cfg.Insights.GenreArtistLimit)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9090"
spotify:
  client_id: from-file
`)
	t.Setenv("PORT", "7070")
	t.Setenv("SPOTIFY_CLIENT_ID", "from-env")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "refresh")
	t.Setenv("SPOTIFY_RETRY_BACKOFF_MS", "25")
	t.Setenv("DEDUPE_RULE", "TRACK_URI")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Spotify.ClientID)
	assert.Equal(t, "refresh", cfg.Spotify.RefreshToken)
	assert.Equal(t, 25, cfg.Spotify.RetryBackoffMs)
	assert.Equal(t, domain.DedupeByTrackURI, cfg.Rule())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantIs  error
	}{
		{
			name:    "invalid yaml",
			content: "server: [this is not valid yaml",
		},
		{
			name:    "invalid dedupe rule",
			content: "insights:\n  dedupe_rule: isrc\n",
			wantIs:  domain.ErrInvalidDedupeRule,
		},
		{
			name:    "unknown storage driver",
			content: "storage:\n  driver: postgres\n",
		},
		{
			name:    "non-numeric retry env",
			content: "log_level: info\n",
			env:     map[string]string{"SPOTIFY_MAX_RETRIES": "many"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.content))

			assert.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("non_existent_file.yaml")

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSlogLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
