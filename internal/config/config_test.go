package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CATALOG_API_URL", "CATALOG_API_TOKEN", "CATALOG_DB", "CATALOG_LOG_LEVEL", "CATALOG_DEBUG"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "catalog", cfg.Name)
	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, 2, cfg.Search.MinChars)
	assert.Equal(t, 10, cfg.UI.PageSize)
	assert.False(t, cfg.Logging.DebugMode)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://catalog.example.com"
	cfg.Backend.Token = "secret"
	cfg.UI.PageSize = 25
	cfg.Logging.Categories = map[string]bool{"search": false}

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com", loaded.Backend.BaseURL)
	assert.Equal(t, "secret", loaded.Backend.Token)
	assert.Equal(t, 25, loaded.UI.PageSize)
	assert.False(t, loaded.Logging.IsCategoryEnabled("search"))
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Backend, cfg.Backend)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  base_url: https://cmdb.internal\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cmdb.internal", cfg.Backend.BaseURL)
	assert.Equal(t, "30s", cfg.Backend.Timeout)
	assert.Equal(t, 2, cfg.Search.MinChars)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestConfig_Durations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.GetBackendTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.GetSearchDebounce())

	cfg.Backend.Timeout = "bogus"
	cfg.Search.Debounce = "bogus"
	assert.Equal(t, 30*time.Second, cfg.GetBackendTimeout())
	assert.Zero(t, cfg.GetSearchDebounce())

	cfg.Search.MinChars = 0
	cfg.UI.PageSize = -1
	assert.Equal(t, 2, cfg.GetSearchMinChars())
	assert.Equal(t, 10, cfg.GetPageSize())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty url", func(c *Config) { c.Backend.BaseURL = " " }, "base_url not configured"},
		{"bad scheme", func(c *Config) { c.Backend.BaseURL = "ftp://x" }, "invalid backend base_url"},
		{"negative retries", func(c *Config) { c.Backend.MaxRetries = -1 }, "max_retries"},
		{"bad timeout", func(c *Config) { c.Backend.Timeout = "soon" }, "invalid backend timeout"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "invalid ui theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("api"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("api"))

	lc.Categories = map[string]bool{"api": false}
	assert.False(t, lc.IsCategoryEnabled("api"))
	assert.True(t, lc.IsCategoryEnabled("wizard"))
}

func TestConfig_LoggingOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.DebugMode = true
	cfg.Logging.Level = "debug"

	opts := cfg.LoggingOptions()
	assert.True(t, opts.DebugMode)
	assert.Equal(t, "debug", opts.Level)
	assert.Equal(t, cfg.Logging.Dir, opts.Dir)
}
