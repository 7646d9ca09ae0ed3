package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Proxy.Timeout)
	assert.Equal(t, "mistral-large-latest", cfg.Oracle.Model)
	assert.Empty(t, cfg.Oracle.APIKey)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("WEB2RSS_FETCH_TIMEOUT", "5s")
	t.Setenv("WEB2RSS_LISTEN", ":8080")
	t.Setenv("MISTRAL_API_KEY", "secret")
	t.Setenv("DATABASE_URL", "/tmp/feeds.db")
	t.Setenv("SERVER_NAME", "feeds.example.com/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "secret", cfg.Oracle.APIKey)
	assert.Equal(t, "/tmp/feeds.db", cfg.Database)
	assert.Equal(t, "http://feeds.example.com", cfg.BaseURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "web2rss.yaml")
	content := []byte("base_url: https://rss.example.org\nproxy:\n  timeout: 3s\noracle:\n  model: small\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rss.example.org", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Proxy.Timeout)
	assert.Equal(t, "small", cfg.Oracle.Model)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
