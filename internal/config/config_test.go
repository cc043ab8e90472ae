// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DefaultModel != "Qwen/QwQ-32B-AWQ" {
		t.Errorf("Unexpected default model %q", cfg.DefaultModel)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("Unexpected default base URL %q", cfg.Server.BaseURL)
	}
	if cfg.Server.ProbeRetries != 10 {
		t.Errorf("Expected 10 probe retries, got %d", cfg.Server.ProbeRetries)
	}
	if cfg.UI.RedrawPolicy != "batch" {
		t.Errorf("Unexpected default redraw policy %q", cfg.UI.RedrawPolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Server.ContextLength != 32768 {
		t.Errorf("Expected filled context length, got %d", cfg.Server.ContextLength)
	}
	if cfg.UI.RedrawBatchSize != 15 {
		t.Errorf("Expected filled batch size, got %d", cfg.UI.RedrawBatchSize)
	}
	if cfg.UI.SubmitDebounceMs != 250 {
		t.Errorf("Expected filled submit debounce, got %d", cfg.UI.SubmitDebounceMs)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://host" }, true},
		{"bad redraw policy", func(c *Config) { c.UI.RedrawPolicy = "eager" }, true},
		{"zero batch size", func(c *Config) { c.UI.RedrawBatchSize = 0 }, true},
		{"excessive fps", func(c *Config) { c.UI.RedrawMaxFPS = 500 }, true},
		{"negative debounce", func(c *Config) { c.UI.SubmitDebounceMs = -1 }, true},
		{"interval policy", func(c *Config) { c.UI.RedrawPolicy = "interval" }, false},
		{"fragment policy", func(c *Config) { c.UI.RedrawPolicy = "fragment" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// ENV OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("VLLM_MODEL", "env-model")
	t.Setenv("VLLM_API_URL", "http://example:9000")
	t.Setenv("VLLMCHAT_CONTEXT_LENGTH", "8192")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.DefaultModel != "env-model" {
		t.Errorf("VLLM_MODEL not applied: %q", cfg.DefaultModel)
	}
	if cfg.Server.BaseURL != "http://example:9000" {
		t.Errorf("VLLM_API_URL not applied: %q", cfg.Server.BaseURL)
	}
	if cfg.Server.ContextLength != 8192 {
		t.Errorf("VLLMCHAT_CONTEXT_LENGTH not applied: %d", cfg.Server.ContextLength)
	}
}

func TestApplyEnvOverridesIgnoresBadContextLength(t *testing.T) {
	t.Setenv("VLLMCHAT_CONTEXT_LENGTH", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.ContextLength != 32768 {
		t.Errorf("Bad env value changed context length: %d", cfg.Server.ContextLength)
	}
}

// =============================================================================
// LOAD/SAVE TESTS
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.DefaultModel = "custom-model"
	cfg.UI.RedrawPolicy = "interval"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if loaded.DefaultModel != "custom-model" {
		t.Errorf("Model changed in round trip: %q", loaded.DefaultModel)
	}
	if loaded.UI.RedrawPolicy != "interval" {
		t.Errorf("Redraw policy changed in round trip: %q", loaded.UI.RedrawPolicy)
	}
}

func TestLoadFromPathInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("not [valid toml"), 0600)

	if _, err := LoadFromPath(path); err == nil {
		t.Error("Expected error for broken TOML")
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcherForPath(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcherForPath failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	changed := Default()
	changed.DefaultModel = "reloaded-model"
	if err := SaveTOML(changed, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.DefaultModel != "reloaded-model" {
			t.Errorf("Reloaded config has model %q", cfg.DefaultModel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not reload within the deadline")
	}
}
