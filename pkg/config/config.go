package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"seedrio/pkg/env"
	"seedrio/pkg/logger"
	"seedrio/pkg/paths"
)

// Default endpoints for the wrapped Seedr API. Every observed variant of the
// addon points at the same hosts, so these are defaults rather than required
// settings; tests override them with httptest URLs.
const (
	DefaultSeedrAPIURL   = "https://www.seedr.cc/rest"
	DefaultSeedrOAuthURL = "https://www.seedr.cc/oauth"
	DefaultCinemetaURL   = "https://v3-cinemeta.strem.io"
)

// Config holds application configuration
type Config struct {
	// Seedr endpoints
	SeedrAPIURL   string `json:"seedr_api_url"`
	SeedrOAuthURL string `json:"seedr_oauth_url"`
	SeedrClientID string `json:"seedr_client_id"`

	// External metadata lookup
	CinemetaURL string `json:"cinemeta_url"`

	// Addon settings
	AddonPort    int    `json:"addon_port"`
	AddonBaseURL string `json:"addon_base_url"`
	LogLevel     string `json:"log_level"`

	// Device session eviction
	SessionTTLSeconds int `json:"session_ttl_seconds"`

	// Credentials from the environment (never written to the config file)
	PastedToken   string `json:"-"`
	SessionCookie string `json:"-"`

	// Internal - where was this config loaded from?
	LoadedPath string `json:"-"`
}

// Load is intended for startup only. It loads configuration from config.json,
// applies environment variable overrides once, then saves the merged config.
// Priority: Environment variables (if not empty) > config.json > defaults
func Load() (*Config, error) {
	// 1. Determine config path using common data directory function
	dataDir := paths.GetDataDir()
	configPath := filepath.Join(dataDir, "config.json")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("Failed to create data directory", "dir", dataDir, "err", err)
	}

	// 2. Load config.json (or create with defaults if it doesn't exist)
	cfg := &Config{
		SeedrAPIURL:       DefaultSeedrAPIURL,
		SeedrOAuthURL:     DefaultSeedrOAuthURL,
		SeedrClientID:     "seedrio",
		CinemetaURL:       DefaultCinemetaURL,
		AddonPort:         7000,
		AddonBaseURL:      "http://localhost:7000",
		LogLevel:          "INFO",
		SessionTTLSeconds: 1800,
		LoadedPath:        configPath,
	}

	if err := cfg.LoadFile(configPath); err != nil {
		if os.IsNotExist(err) {
			logger.Info("No config found, creating new one", "path", configPath)
		} else {
			logger.Warn("Failed to load config, using defaults", "path", configPath, "err", err)
		}
	} else {
		logger.Info("Loaded configuration", "path", configPath)
	}

	// 3. Override with environment variables (single source: pkg/env)
	overrides, keys := env.ReadConfigOverrides()
	ApplyEnvOverrides(cfg, overrides, keys)

	// Credentials are environment-only
	cfg.PastedToken = env.Token()
	cfg.SessionCookie = env.Cookie()

	// 4. Save the merged configuration
	if err := cfg.Save(); err != nil {
		logger.Warn("Failed to save config on startup", "err", err)
	} else {
		logger.Info("Saved merged configuration", "path", configPath)
	}

	return cfg, nil
}

// LoadFile overrides config with values from a JSON file
func (c *Config) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return err
	}
	return nil
}

// Save saves the current configuration to the file it was loaded from
func (c *Config) Save() error {
	path := c.LoadedPath
	if path == "" {
		path = "config.json"
	}
	return c.SaveFile(path)
}

// SaveFile saves the current configuration to a JSON file
func (c *Config) SaveFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// keySet returns true if s is in list.
func keySet(list []string, s string) bool {
	for _, k := range list {
		if k == s {
			return true
		}
	}
	return false
}

// ApplyEnvOverrides applies environment-derived overrides to cfg (used at startup only).
// Only fields present in keys are applied, so env vars override file values per setting.
func ApplyEnvOverrides(cfg *Config, o env.ConfigOverrides, keys []string) {
	if keySet(keys, env.KeySeedrAPIURL) {
		cfg.SeedrAPIURL = o.SeedrAPIURL
	}
	if keySet(keys, env.KeySeedrOAuthURL) {
		cfg.SeedrOAuthURL = o.SeedrOAuthURL
	}
	if keySet(keys, env.KeySeedrClientID) {
		cfg.SeedrClientID = o.SeedrClientID
	}
	if keySet(keys, env.KeyCinemetaURL) {
		cfg.CinemetaURL = o.CinemetaURL
	}
	if keySet(keys, env.KeyAddonPort) {
		cfg.AddonPort = o.AddonPort
	}
	if keySet(keys, env.KeyAddonBaseURL) {
		cfg.AddonBaseURL = o.AddonBaseURL
	}
	if keySet(keys, env.KeyLogLevel) {
		cfg.LogLevel = o.LogLevel
	}
	if keySet(keys, env.KeySessionTTL) {
		cfg.SessionTTLSeconds = o.SessionTTLSeconds
	}
}

// GetEnvOverrideKeys returns config JSON keys that have environment variable overrides set.
// These values will be overwritten on next restart. Used by the UI to show warnings.
func GetEnvOverrideKeys() []string {
	return env.OverrideKeys()
}
