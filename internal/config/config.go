// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for hyperionx.
//
// Settings split into two worlds that never mix:
//
//   - Tunables (model parameters, search thresholds, UI) live in
//     ~/.hyperionx/config.toml and can be hot-reloaded while running.
//   - Credentials (numbered GROQ_API_KEY_n / TAVILY_API_KEY_n) come from the
//     environment or a .env file, are read once at startup, and are never
//     written to disk or reloaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hyperionx configuration.
type Config struct {
	Version string `toml:"version"`

	// Model configuration
	Model ModelConfig `toml:"model"`

	// Search configuration
	Search SearchConfig `toml:"search"`

	// Pool configuration
	Pool PoolConfig `toml:"pool"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ModelConfig contains Groq model settings.
type ModelConfig struct {
	// Name is the model used for routing and answering.
	Name string `toml:"name"`
	// Temperature for answer generation.
	Temperature float64 `toml:"temperature"`
	// MaxTokens bounds one streamed answer.
	MaxTokens int `toml:"max_tokens"`
	// BaseURL overrides the API endpoint (testing, proxies).
	BaseURL string `toml:"base_url"`
}

// SearchConfig contains search and refinement settings.
type SearchConfig struct {
	// MaxResults caps results per search.
	MaxResults int `toml:"max_results"`
	// CacheTTLSecs is the search cache lifetime in seconds.
	CacheTTLSecs int `toml:"cache_ttl_secs"`
	// MinResults below which a result set counts as weak.
	MinResults int `toml:"min_results"`
	// MinContentChars of combined snippets below which a set counts as weak.
	MinContentChars int `toml:"min_content_chars"`
	// Endpoint overrides the search API endpoint.
	Endpoint string `toml:"endpoint"`
}

// PoolConfig contains credential pool settings.
type PoolConfig struct {
	// CooldownSecs is how long a failed credential sits out.
	CooldownSecs int `toml:"cooldown_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowSources renders source cards under grounded answers.
	ShowSources bool `toml:"show_sources"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Model: ModelConfig{
			Name:        "llama-3.1-8b-instant",
			Temperature: 0.4,
			MaxTokens:   1024,
		},

		Search: SearchConfig{
			MaxResults:      6,
			CacheTTLSecs:    300,
			MinResults:      2,
			MinContentChars: 900,
		},

		Pool: PoolConfig{
			CooldownSecs: 25,
		},

		UI: UIConfig{
			Theme:       "dark",
			ShowSources: true,
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the hyperionx configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hyperionx"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Model.Name == "" {
		c.Model.Name = defaults.Model.Name
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = defaults.Model.Temperature
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = defaults.Model.MaxTokens
	}

	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	if c.Search.CacheTTLSecs == 0 {
		c.Search.CacheTTLSecs = defaults.Search.CacheTTLSecs
	}
	if c.Search.MinResults == 0 {
		c.Search.MinResults = defaults.Search.MinResults
	}
	if c.Search.MinContentChars == 0 {
		c.Search.MinContentChars = defaults.Search.MinContentChars
	}

	if c.Pool.CooldownSecs == 0 {
		c.Pool.CooldownSecs = defaults.Pool.CooldownSecs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
// Credentials are never part of the Config struct, so nothing sensitive can
// end up in the file; permissions are restricted anyway.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo saves the configuration to a TOML file with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# hyperionx configuration file")
	fmt.Fprintln(file, "# API keys do not belong here; set GROQ_API_KEY_1.. and TAVILY_API_KEY_1.. in the environment.")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Model.Name == "" {
		errs = append(errs, ValidationError{"model.name", "must not be empty"})
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, ValidationError{"model.temperature", "must be between 0 and 2"})
	}
	if c.Model.MaxTokens < 1 || c.Model.MaxTokens > 32768 {
		errs = append(errs, ValidationError{"model.max_tokens", "must be between 1 and 32768"})
	}

	if c.Search.MaxResults < 1 || c.Search.MaxResults > 20 {
		errs = append(errs, ValidationError{"search.max_results", "must be between 1 and 20"})
	}
	if c.Search.CacheTTLSecs < 0 {
		errs = append(errs, ValidationError{"search.cache_ttl_secs", "must not be negative"})
	}
	if c.Search.MinResults < 1 {
		errs = append(errs, ValidationError{"search.min_results", "must be at least 1"})
	}
	if c.Search.MinContentChars < 0 {
		errs = append(errs, ValidationError{"search.min_content_chars", "must not be negative"})
	}

	if c.Pool.CooldownSecs < 1 {
		errs = append(errs, ValidationError{"pool.cooldown_secs", "must be at least 1"})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if c.UI.Theme != "" && !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{"ui.theme", "must be dark, light, or auto"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed, using defaults: %v\n", err)
		cfg = Default()
	}
	SetGlobal(cfg)
	return cfg
}

// SetGlobal replaces the process-wide configuration. Used by the watcher on
// hot reload and by tests.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
