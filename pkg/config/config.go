// Package config loads grimnote's YAML configuration with environment
// variable overrides. Every field has a working default; a missing
// config file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/grimnote/pkg/annotate"
)

// Markers names the root element classes identifying each top-level view.
type Markers struct {
	Lobby    string `yaml:"lobby" env:"GRIMNOTE_MARKER_LOBBY"`
	Grimoire string `yaml:"grimoire" env:"GRIMNOTE_MARKER_GRIMOIRE"`
}

// Config is the full application configuration.
type Config struct {
	// HostURL is the lobby page grimnote attaches to.
	HostURL string `yaml:"host_url" env:"GRIMNOTE_HOST_URL"`

	// DataDir holds the roster file and logs. Empty means ~/.grimnote
	DataDir string `yaml:"data_dir" env:"GRIMNOTE_DATA_DIR"`

	// Headless runs the driven browser without a visible window. Off by
	// default: the attached page is the user's own game session.
	Headless bool `yaml:"headless" env:"GRIMNOTE_HEADLESS"`

	// Endpoints are glob patterns selecting which response URLs carry
	// session data.
	Endpoints []string `yaml:"endpoints" env:"GRIMNOTE_ENDPOINTS" envSeparator:","`

	// Markers and Selectors describe the host DOM. Override them when
	// the host markup changes ahead of a grimnote release.
	Markers   Markers            `yaml:"markers"`
	Selectors annotate.Selectors `yaml:"selectors"`
}

// Default returns the configuration matching the host as shipped.
func Default() Config {
	return Config{
		HostURL:   "https://play.grimtower.app",
		Endpoints: []string{"*/api/sessions*"},
		Markers:   Markers{Lobby: "lobby", Grimoire: "grimoire"},
		Selectors: annotate.DefaultSelectors(),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".grimnote", "config.yaml"), nil
}

// Load reads the config file at path, falling back to DefaultPath when
// path is empty. A missing file yields the defaults. Environment
// variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the app cannot start with.
func (c Config) Validate() error {
	if c.HostURL == "" {
		return fmt.Errorf("host_url must not be empty")
	}
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint pattern is required")
	}
	for _, p := range c.Endpoints {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid endpoint pattern %q: %w", p, err)
		}
	}
	if c.Markers.Lobby == "" || c.Markers.Grimoire == "" {
		return fmt.Errorf("view markers must not be empty")
	}
	return nil
}

// ResolveDataDir returns the effective data directory.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".grimnote"), nil
}
