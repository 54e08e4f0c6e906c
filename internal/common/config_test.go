package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signalist.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0 12 * * *", cfg.Digest.Schedule)
	assert.True(t, cfg.Digest.Enabled)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
	assert.Equal(t, 10, cfg.Finnhub.RateLimit)
	assert.Equal(t, 5, cfg.Finnhub.NewsWindowDays)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.True(t, cfg.Mail.UseTLS)
}

func TestLoadFromFiles(t *testing.T) {
	t.Run("no files returns defaults", func(t *testing.T) {
		cfg, err := LoadFromFiles()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
[server]
port = 9090

[digest]
enabled = false
schedule = "30 6 * * *"
`)
		cfg, err := LoadFromFiles(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.False(t, cfg.Digest.Enabled)
		assert.Equal(t, "30 6 * * *", cfg.Digest.Schedule)

		// Untouched sections keep their defaults.
		assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	})

	t.Run("later files win", func(t *testing.T) {
		first := writeConfig(t, "[server]\nport = 9090\n")
		second := writeConfig(t, "[server]\nport = 9191\n")

		cfg, err := LoadFromFiles(first, second)
		require.NoError(t, err)
		assert.Equal(t, 9191, cfg.Server.Port)
	})

	t.Run("environment overrides files", func(t *testing.T) {
		t.Setenv("FINNHUB_API_KEY", "env-token")
		t.Setenv("SIGNALIST_PORT", "7070")

		path := writeConfig(t, `
[finnhub]
api_key = "file-token"
`)
		cfg, err := LoadFromFiles(path)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Finnhub.APIKey)
		assert.Equal(t, 7070, cfg.Server.Port)
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		path := writeConfig(t, `
[logging]
level = "verbose"
`)
		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadFromFiles("/nonexistent/signalist.toml")
		assert.Error(t, err)
	})
}
