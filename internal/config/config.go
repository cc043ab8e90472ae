// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// vllmchat.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.vllmchat/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete vllmchat configuration.
type Config struct {
	// General settings
	Version      string `toml:"version"`
	DefaultModel string `toml:"default_model"`

	// Server (vLLM endpoint) configuration
	Server ServerConfig `toml:"server"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// History (generation log) configuration
	History HistoryConfig `toml:"history"`
}

// ServerConfig contains the chat server endpoint configuration.
type ServerConfig struct {
	// BaseURL of the OpenAI-compatible server
	BaseURL string `toml:"base_url"`
	// ContextLength of the served model, used for max_tokens derivation
	ContextLength int `toml:"context_length"`
	// TimeoutSecs for non-streaming requests
	TimeoutSecs int `toml:"timeout_secs"`
	// ProbeRetries for the startup availability probe
	ProbeRetries int `toml:"probe_retries"`
	// ProbeDelaySecs between probe attempts
	ProbeDelaySecs int `toml:"probe_delay_secs"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// SystemPrompt seeded into every new conversation. Survives clear.
	SystemPrompt string `toml:"system_prompt"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme name: "dark", "light"
	Theme string `toml:"theme"`

	// RedrawPolicy during streaming: "fragment" (every fragment),
	// "interval" (fixed wall-clock period), "batch" (every N fragments)
	RedrawPolicy string `toml:"redraw_policy"`
	// RedrawBatchSize is N for the batch policy
	RedrawBatchSize int `toml:"redraw_batch_size"`
	// RedrawMaxFPS caps redraw frequency for the batch and interval policies
	RedrawMaxFPS int `toml:"redraw_max_fps"`

	// SubmitDebounceMs deduplicates auto-repeated submit key events
	SubmitDebounceMs int `toml:"submit_debounce_ms"`

	// Markdown enables glamour rendering of finalized assistant messages
	Markdown bool `toml:"markdown"`
}

// StorageConfig contains conversation persistence configuration.
type StorageConfig struct {
	// AutoSave persists the conversation on exit
	AutoSave bool `toml:"auto_save"`
}

// HistoryConfig contains the generation log configuration.
type HistoryConfig struct {
	// Enabled turns the SQLite generation log on
	Enabled bool `toml:"enabled"`
}

// ValidRedrawPolicies lists the accepted redraw_policy values.
var ValidRedrawPolicies = []string{"fragment", "interval", "batch"}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version:      "1.0",
		DefaultModel: "Qwen/QwQ-32B-AWQ",
		Server: ServerConfig{
			BaseURL:        "http://localhost:8000",
			ContextLength:  32768,
			TimeoutSecs:    30,
			ProbeRetries:   10,
			ProbeDelaySecs: 2,
		},
		Chat: ChatConfig{
			SystemPrompt: "You are a helpful assistant.",
		},
		UI: UIConfig{
			Theme:            "dark",
			RedrawPolicy:     "batch",
			RedrawBatchSize:  15,
			RedrawMaxFPS:     30,
			SubmitDebounceMs: 250,
			Markdown:         true,
		},
		Storage: StorageConfig{
			AutoSave: true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the vllmchat configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vllmchat"), nil
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

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Used for --config overrides and the reload watcher.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# vllmchat configuration file")
	fmt.Fprintln(file, "# Generated by vllmchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// DEFAULTS & VALIDATION
// =============================================================================

// SetDefaults fills in any missing values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.ContextLength == 0 {
		c.Server.ContextLength = defaults.Server.ContextLength
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.ProbeRetries == 0 {
		c.Server.ProbeRetries = defaults.Server.ProbeRetries
	}
	if c.Server.ProbeDelaySecs == 0 {
		c.Server.ProbeDelaySecs = defaults.Server.ProbeDelaySecs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.RedrawPolicy == "" {
		c.UI.RedrawPolicy = defaults.UI.RedrawPolicy
	}
	if c.UI.RedrawBatchSize == 0 {
		c.UI.RedrawBatchSize = defaults.UI.RedrawBatchSize
	}
	if c.UI.RedrawMaxFPS == 0 {
		c.UI.RedrawMaxFPS = defaults.UI.RedrawMaxFPS
	}
	if c.UI.SubmitDebounceMs == 0 {
		c.UI.SubmitDebounceMs = defaults.UI.SubmitDebounceMs
	}
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Server.BaseURL); err != nil {
		return ValidationError{Field: "server.base_url", Message: "not a valid URL"}
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return ValidationError{Field: "server.base_url", Message: "must start with http:// or https://"}
	}
	if c.Server.ContextLength < 0 {
		return ValidationError{Field: "server.context_length", Message: "must not be negative"}
	}
	if c.Server.ProbeRetries < 1 {
		return ValidationError{Field: "server.probe_retries", Message: "must be at least 1"}
	}

	valid := false
	for _, p := range ValidRedrawPolicies {
		if c.UI.RedrawPolicy == p {
			valid = true
			break
		}
	}
	if !valid {
		return ValidationError{
			Field:   "ui.redraw_policy",
			Message: "must be one of: " + strings.Join(ValidRedrawPolicies, ", "),
		}
	}

	if c.UI.RedrawBatchSize < 1 {
		return ValidationError{Field: "ui.redraw_batch_size", Message: "must be at least 1"}
	}
	if c.UI.RedrawMaxFPS < 1 || c.UI.RedrawMaxFPS > 120 {
		return ValidationError{Field: "ui.redraw_max_fps", Message: "must be between 1 and 120"}
	}
	if c.UI.SubmitDebounceMs < 0 {
		return ValidationError{Field: "ui.submit_debounce_ms", Message: "must not be negative"}
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	// VLLM_MODEL
	if model := os.Getenv("VLLM_MODEL"); model != "" {
		c.DefaultModel = model
	}

	// VLLM_API_URL
	if apiURL := os.Getenv("VLLM_API_URL"); apiURL != "" {
		c.Server.BaseURL = apiURL
	}

	// VLLMCHAT_SYSTEM_PROMPT
	if prompt := os.Getenv("VLLMCHAT_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}

	// VLLMCHAT_CONTEXT_LENGTH
	if ctxLen := os.Getenv("VLLMCHAT_CONTEXT_LENGTH"); ctxLen != "" {
		if n, err := strconv.Atoi(ctxLen); err == nil && n > 0 {
			c.Server.ContextLength = n
		}
	}

	// VLLMCHAT_THEME
	if theme := os.Getenv("VLLMCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	// VLLMCHAT_REDRAW_POLICY
	if policy := os.Getenv("VLLMCHAT_REDRAW_POLICY"); policy != "" {
		c.UI.RedrawPolicy = policy
	}
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Use defaults when the file is broken
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
