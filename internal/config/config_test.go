// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL == "" {
		t.Error("Default base URL should not be empty")
	}
	if cfg.Cache.TTLMinutes != 5 {
		t.Errorf("Expected default TTL 5 minutes, got %d", cfg.Cache.TTLMinutes)
	}
	if cfg.Cache.MaxEntries != 500 {
		t.Errorf("Expected default max entries 500, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.RateLimit.MaxRequests != 30 || cfg.RateLimit.WindowSecs != 60 {
		t.Errorf("Unexpected default rate limit: %d/%ds",
			cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSecs)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1.0.0"
default_model = "large-v2"

[api]
base_url = "https://chat.example.com"
timeout_secs = 30

[cache]
enabled = true
ttl_minutes = 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.API.BaseURL != "https://chat.example.com" {
		t.Errorf("Expected configured base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.DefaultModel != "large-v2" {
		t.Errorf("Expected model 'large-v2', got %s", cfg.DefaultModel)
	}
	if cfg.CacheTTL() != 10*time.Minute {
		t.Errorf("Expected 10m TTL, got %v", cfg.CacheTTL())
	}

	// Fields absent from the file fall back to defaults.
	if cfg.API.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.API.MaxRetries)
	}
	if cfg.Queue.MaxSize != 50 {
		t.Errorf("Expected default queue size 50, got %d", cfg.Queue.MaxSize)
	}
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATCORE_BASE_URL", "https://override.example.com")
	t.Setenv("CHATCORE_TOKEN", "env-token")
	t.Setenv("CHATCORE_MODEL", "env-model")
	t.Setenv("CHATCORE_CACHE_DISABLED", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "https://override.example.com" {
		t.Errorf("Expected env base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("Expected env token, got %s", cfg.API.Token)
	}
	if cfg.DefaultModel != "env-model" {
		t.Errorf("Expected env model, got %s", cfg.DefaultModel)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled via env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"timeout too large", func(c *Config) { c.API.TimeoutSecs = 9999 }, "api.timeout_secs"},
		{"negative ttl", func(c *Config) { c.Cache.TTLMinutes = -1 }, "cache.ttl_minutes"},
		{"zero rate limit", func(c *Config) { c.RateLimit.MaxRequests = -5 }, "ratelimit.max_requests"},
		{"oversized queue", func(c *Config) { c.Queue.MaxSize = 100000 }, "queue.max_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestTokenNeverWrittenToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.API.Token = "super-secret-token"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "super-secret-token") {
		t.Error("Session token must never be written to the config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.DefaultModel = "round-trip"
	cfg.Cache.TTLMinutes = 42

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.DefaultModel != "round-trip" {
		t.Errorf("Expected model 'round-trip', got %s", loaded.DefaultModel)
	}
	if loaded.Cache.TTLMinutes != 42 {
		t.Errorf("Expected TTL 42, got %d", loaded.Cache.TTLMinutes)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %o", info.Mode().Perm())
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	updated := Default()
	updated.DefaultModel = "hot-reloaded"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.DefaultModel != "hot-reloaded" {
			t.Errorf("Expected reloaded model, got %s", cfg.DefaultModel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for config reload")
	}
}

func TestWatcherKeepsPreviousConfigOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("this is [not valid toml"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Error("Broken config must not reach the reload callback")
	case <-time.After(time.Second):
	}
}
