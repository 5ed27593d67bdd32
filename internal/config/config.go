package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"appcatalog/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all catalog console configuration.
type Config struct {
	Name string `yaml:"name"`

	// Catalog REST backend
	Backend BackendConfig `yaml:"backend"`

	// Type-ahead search behaviour
	Search SearchConfig `yaml:"search"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Onboarding history database
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the REST client.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token,omitempty"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"` // GET retries on 502/503/504
}

// SearchConfig configures the async search inputs.
type SearchConfig struct {
	MinChars int    `yaml:"min_chars"`
	Debounce string `yaml:"debounce"` // "0s" disables debouncing
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	PageSize int    `yaml:"page_size"`
	Theme    string `yaml:"theme"` // auto, light, dark
}

// StoreConfig configures the local SQLite history.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	Disabled     bool   `yaml:"disabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "catalog",

		Backend: BackendConfig{
			BaseURL:    "http://localhost:8080",
			Timeout:    "30s",
			MaxRetries: 2,
		},

		Search: SearchConfig{
			MinChars: 2,
			Debounce: "250ms",
		},

		UI: UIConfig{
			PageSize: 10,
			Theme:    "auto",
		},

		Store: StoreConfig{
			DatabasePath: filepath.Join(defaultHome(), "catalog.db"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(defaultHome(), "logs"),
		},
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".catalog"
	}
	return filepath.Join(home, ".catalog")
}

// DefaultConfigPath returns ~/.catalog/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(defaultHome(), "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CATALOG_API_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("CATALOG_API_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("CATALOG_DB"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("CATALOG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("CATALOG_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// GetBackendTimeout returns the request timeout as a duration.
func (c *Config) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetSearchDebounce returns the search debounce as a duration (0 disables it).
func (c *Config) GetSearchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Search.Debounce)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetSearchMinChars returns the minimum term length that triggers a search.
func (c *Config) GetSearchMinChars() int {
	if c.Search.MinChars < 1 {
		return 2
	}
	return c.Search.MinChars
}

// GetPageSize returns the table page size.
func (c *Config) GetPageSize() int {
	if c.UI.PageSize < 1 {
		return 10
	}
	return c.UI.PageSize
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("backend base_url not configured (set backend.base_url or CATALOG_API_URL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend max_retries must not be negative: %d", c.Backend.MaxRetries)
	}
	if c.Backend.Timeout != "" {
		if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
			return fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
		}
	}

	validTheme := c.UI.Theme == ""
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}

// LoggingOptions converts the logging section for logging.Initialize.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Dir:        c.Logging.Dir,
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
	}
}
