// Package config loads sentinelctl configuration with the layering
// defaults -> TOML config file -> environment variables -> CLI flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variable names for overrides.
const (
	EnvConfig      = "SENTINEL_CONFIG"
	EnvBaseURL     = "SENTINEL_BASE_URL"
	EnvProjectID   = "SENTINEL_PROJECT_ID"
	EnvPageSize    = "SENTINEL_PAGE_SIZE"
	EnvSessionPath = "SENTINEL_SESSION_PATH"
)

// Config is the on-disk configuration for sentinelctl.
type Config struct {
	// BaseURL is the dashboard API root, e.g. "https://sentinel.example.com/api".
	BaseURL string `toml:"base_url"`

	// ProjectID is the default project for runs/issues/evidence commands.
	ProjectID string `toml:"project_id"`

	// PageSize is the default list page size (server clamps to 1..100).
	PageSize int `toml:"page_size"`

	// PersistSession controls whether the session survives process restart.
	PersistSession bool `toml:"persist_session"`

	// SessionPath overrides where the session record is stored.
	SessionPath string `toml:"session_path"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		PageSize:       25,
		PersistSession: true,
	}
}

// DefaultPath returns the default config file location
// (~/.config/sentinelctl/config.toml), honoring SENTINEL_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(base, "sentinelctl", "config.toml"), nil
}

// DefaultSessionPath returns where the session record lives when the config
// does not override it.
func DefaultSessionPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(base, "sentinelctl", "session.json"), nil
}

// Load reads and parses a TOML config file and applies env overrides on top.
// A missing file is not an error — the zero-config first run works with
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, decErr := toml.DecodeFile(path, cfg); decErr != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, decErr)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.SessionPath == "" {
		sp, err := DefaultSessionPath()
		if err != nil {
			return nil, err
		}

		cfg.SessionPath = sp
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}

	if v := os.Getenv(EnvProjectID); v != "" {
		cfg.ProjectID = v
	}

	if v := os.Getenv(EnvSessionPath); v != "" {
		cfg.SessionPath = v
	}

	if v := os.Getenv(EnvPageSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
}

// Validate checks that the config is usable for API commands.
func Validate(cfg *Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("config: base_url is required (set it in the config file or %s)", EnvBaseURL)
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not a valid URL", cfg.BaseURL)
	}

	if cfg.PageSize < 1 {
		return fmt.Errorf("config: page_size must be positive, got %d", cfg.PageSize)
	}

	return nil
}

// NormalizeBaseURL strips a trailing slash so path joins stay predictable.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}
