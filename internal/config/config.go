// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatcore configuration.
type Config struct {
	// General settings
	Version      string `toml:"version" json:"version"`
	DefaultModel string `toml:"default_model" json:"default_model"`

	// API backend configuration
	API APIConfig `toml:"api" json:"api"`

	// Cache configuration
	Cache CacheConfig `toml:"cache" json:"cache"`

	// Rate limit configuration
	RateLimit RateLimitConfig `toml:"ratelimit" json:"ratelimit"`

	// Request queue configuration
	Queue QueueConfig `toml:"queue" json:"queue"`

	// Session configuration
	Session SessionConfig `toml:"session" json:"session"`
}

// APIConfig contains backend API configuration.
type APIConfig struct {
	// BaseURL is the URL of the chat backend
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry budget for retryable failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RetryDelayMs is the fixed delay between retries in milliseconds
	RetryDelayMs int `toml:"retry_delay_ms" json:"retry_delay_ms"`

	// Token is the session token.
	// SECURITY: Never persisted to the config file; set via CHATCORE_TOKEN
	// or the encrypted token store.
	Token string `toml:"-" json:"-"`
}

// CacheConfig contains cache configuration.
type CacheConfig struct {
	// Enabled controls whether caching is active
	Enabled bool `toml:"enabled" json:"enabled"`
	// TTLMinutes is the time-to-live for cache entries in minutes
	TTLMinutes int `toml:"ttl_minutes" json:"ttl_minutes"`
	// MaxEntries is the maximum number of cache entries
	MaxEntries int `toml:"max_entries" json:"max_entries"`
	// SweepIntervalSecs is how often expired entries are swept, in seconds
	SweepIntervalSecs int `toml:"sweep_interval_secs" json:"sweep_interval_secs"`
	// SnapshotPath is where the persisted cache snapshot lives
	// (empty = ~/.chatcore/cache.db)
	SnapshotPath string `toml:"snapshot_path" json:"snapshot_path"`
}

// RateLimitConfig contains sliding-window rate limiter configuration.
type RateLimitConfig struct {
	// MaxRequests is the number of requests admitted per window
	MaxRequests int `toml:"max_requests" json:"max_requests"`
	// WindowSecs is the sliding window length in seconds
	WindowSecs int `toml:"window_secs" json:"window_secs"`
}

// QueueConfig contains request queue configuration.
type QueueConfig struct {
	// MaxSize is the maximum number of pending requests
	MaxSize int `toml:"max_size" json:"max_size"`
	// MaxAttempts bounds retries per queued request
	MaxAttempts int `toml:"max_attempts" json:"max_attempts"`
	// RetryDelayMs is the fixed delay between attempts in milliseconds
	RetryDelayMs int `toml:"retry_delay_ms" json:"retry_delay_ms"`
}

// SessionConfig contains hosted-identity session configuration.
type SessionConfig struct {
	// TokenPath is where the encrypted token lives (empty = ~/.chatcore/session.tok)
	TokenPath string `toml:"token_path" json:"token_path"`
	// RefreshBeforeSecs is how close to expiry the token gets refreshed
	RefreshBeforeSecs int `toml:"refresh_before_secs" json:"refresh_before_secs"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultModel: "default",

		API: APIConfig{
			BaseURL:      "http://127.0.0.1:8080",
			TimeoutSecs:  60,
			MaxRetries:   3,
			RetryDelayMs: 500,
		},

		Cache: CacheConfig{
			Enabled:           true,
			TTLMinutes:        5,
			MaxEntries:        500,
			SweepIntervalSecs: 60,
		},

		RateLimit: RateLimitConfig{
			MaxRequests: 30,
			WindowSecs:  60,
		},

		Queue: QueueConfig{
			MaxSize:      50,
			MaxAttempts:  3,
			RetryDelayMs: 500,
		},

		Session: SessionConfig{
			RefreshBeforeSecs: 120,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatcore configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatcore"), nil
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

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	// SECURITY: Check and fix file permissions if needed
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
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
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# chatcore configuration file")
	fmt.Fprintln(file, "# Generated by chatcore - edit with care")
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

	// Validate API base URL
	if c.API.BaseURL != "" {
		if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}

	// Validate API timeout and retries
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.API.MaxRetries),
		})
	}

	// Validate cache settings
	if c.Cache.TTLMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.ttl_minutes",
			Message: "must be non-negative",
		})
	}
	if c.Cache.MaxEntries < 0 || c.Cache.MaxEntries > 100000 {
		errs = append(errs, ValidationError{
			Field:   "cache.max_entries",
			Message: fmt.Sprintf("must be 0-100000, got %d", c.Cache.MaxEntries),
		})
	}

	// Validate rate limit settings
	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, ValidationError{
			Field:   "ratelimit.max_requests",
			Message: fmt.Sprintf("must be at least 1, got %d", c.RateLimit.MaxRequests),
		})
	}
	if c.RateLimit.WindowSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "ratelimit.window_secs",
			Message: fmt.Sprintf("must be at least 1, got %d", c.RateLimit.WindowSecs),
		})
	}

	// Validate queue settings
	if c.Queue.MaxSize < 1 || c.Queue.MaxSize > 1000 {
		errs = append(errs, ValidationError{
			Field:   "queue.max_size",
			Message: fmt.Sprintf("must be 1-1000, got %d", c.Queue.MaxSize),
		})
	}
	if c.Queue.MaxAttempts < 1 || c.Queue.MaxAttempts > 10 {
		errs = append(errs, ValidationError{
			Field:   "queue.max_attempts",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Queue.MaxAttempts),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}
	if c.API.RetryDelayMs == 0 {
		c.API.RetryDelayMs = defaults.API.RetryDelayMs
	}

	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = defaults.Cache.TTLMinutes
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
	if c.Cache.SweepIntervalSecs == 0 {
		c.Cache.SweepIntervalSecs = defaults.Cache.SweepIntervalSecs
	}

	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = defaults.RateLimit.MaxRequests
	}
	if c.RateLimit.WindowSecs == 0 {
		c.RateLimit.WindowSecs = defaults.RateLimit.WindowSecs
	}

	if c.Queue.MaxSize == 0 {
		c.Queue.MaxSize = defaults.Queue.MaxSize
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = defaults.Queue.MaxAttempts
	}
	if c.Queue.RetryDelayMs == 0 {
		c.Queue.RetryDelayMs = defaults.Queue.RetryDelayMs
	}

	if c.Session.RefreshBeforeSecs == 0 {
		c.Session.RefreshBeforeSecs = defaults.Session.RefreshBeforeSecs
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATCORE_BASE_URL: overrides api.base_url
//   - CHATCORE_TOKEN: sets the session token
//   - CHATCORE_MODEL: overrides default_model
//   - CHATCORE_TIMEOUT_SECS: overrides api.timeout_secs
//   - CHATCORE_CACHE_TTL_MINUTES: overrides cache.ttl_minutes
//   - CHATCORE_CACHE_DISABLED: set to "1" or "true" to disable caching
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("CHATCORE_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}

	if token := os.Getenv("CHATCORE_TOKEN"); token != "" {
		c.API.Token = token
	}

	if model := os.Getenv("CHATCORE_MODEL"); model != "" {
		c.DefaultModel = model
	}

	if timeout := os.Getenv("CHATCORE_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.API.TimeoutSecs = secs
		}
	}

	if ttl := os.Getenv("CHATCORE_CACHE_TTL_MINUTES"); ttl != "" {
		if mins, err := strconv.Atoi(ttl); err == nil && mins > 0 {
			c.Cache.TTLMinutes = mins
		}
	}

	if disabled := os.Getenv("CHATCORE_CACHE_DISABLED"); disabled != "" {
		if disabled == "1" || strings.ToLower(disabled) == "true" {
			c.Cache.Enabled = false
		}
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// RetryDelay returns the API retry delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.API.RetryDelayMs) * time.Millisecond
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// SweepInterval returns the cache sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSecs) * time.Second
}

// RateWindow returns the rate limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSecs) * time.Second
}

// QueueRetryDelay returns the queue retry delay as a duration.
func (c *Config) QueueRetryDelay() time.Duration {
	return time.Duration(c.Queue.RetryDelayMs) * time.Millisecond
}

// RefreshBefore returns the session refresh threshold as a duration.
func (c *Config) RefreshBefore() time.Duration {
	return time.Duration(c.Session.RefreshBeforeSecs) * time.Second
}

// SnapshotPath returns the cache snapshot location, defaulting under the
// config directory.
func (c *Config) SnapshotPath() (string, error) {
	if c.Cache.SnapshotPath != "" {
		return c.Cache.SnapshotPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// TokenPath returns the encrypted token location, defaulting under the
// config directory.
func (c *Config) TokenPath() (string, error) {
	if c.Session.TokenPath != "" {
		return c.Session.TokenPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.tok"), nil
}
