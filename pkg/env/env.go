// Package env consolidates all environment variable reading for the application.
// Config overrides are applied only at startup (see config.Load).
package env

import (
	"os"
	"strconv"
)

// Environment variable names (single source of truth)
const (
	SeedrAPIURL    = "SEEDR_API_URL"
	SeedrOAuthURL  = "SEEDR_OAUTH_URL"
	SeedrClientID  = "SEEDR_CLIENT_ID"
	SeedrToken     = "SEEDR_TOKEN"
	SeedrCookie    = "SEEDR_COOKIE"
	CinemetaURL    = "CINEMETA_URL"
	ADDONPort      = "ADDON_PORT"
	ADDONBaseURL   = "ADDON_BASE_URL"
	LOGLevel       = "LOG_LEVEL"
	DataDir        = "DATA_DIR"
	SessionTTLSecs = "SESSION_TTL_SECONDS"
)

// Config JSON keys returned with overrides (for UI "overwritten on restart" warnings)
const (
	KeySeedrAPIURL   = "seedr_api_url"
	KeySeedrOAuthURL = "seedr_oauth_url"
	KeySeedrClientID = "seedr_client_id"
	KeyCinemetaURL   = "cinemeta_url"
	KeyAddonPort     = "addon_port"
	KeyAddonBaseURL  = "addon_base_url"
	KeyLogLevel      = "log_level"
	KeySessionTTL    = "session_ttl_seconds"
)

// LogLevel returns LOG_LEVEL with default "INFO" (for early logger init before config).
func LogLevel() string {
	if v := os.Getenv(LOGLevel); v != "" {
		return v
	}
	return "INFO"
}

// Token returns the pasted bearer token credential, if any.
func Token() string {
	return os.Getenv(SeedrToken)
}

// Cookie returns the session cookie credential, if any.
func Cookie() string {
	return os.Getenv(SeedrCookie)
}

// ConfigOverrides holds all config values that can be set via environment variables.
// Used at startup by config.Load to apply overrides.
type ConfigOverrides struct {
	SeedrAPIURL       string
	SeedrOAuthURL     string
	SeedrClientID     string
	CinemetaURL       string
	AddonPort         int
	AddonBaseURL      string
	LogLevel          string
	SessionTTLSeconds int
}

// ReadConfigOverrides reads all relevant environment variables once and returns
// overrides to apply to config plus the list of config JSON keys that were set
// (for UI "overwritten on restart" warnings).
func ReadConfigOverrides() (ConfigOverrides, []string) {
	var o ConfigOverrides
	var keys []string

	if v := os.Getenv(SeedrAPIURL); v != "" {
		o.SeedrAPIURL = v
		keys = append(keys, KeySeedrAPIURL)
	}
	if v := os.Getenv(SeedrOAuthURL); v != "" {
		o.SeedrOAuthURL = v
		keys = append(keys, KeySeedrOAuthURL)
	}
	if v := os.Getenv(SeedrClientID); v != "" {
		o.SeedrClientID = v
		keys = append(keys, KeySeedrClientID)
	}
	if v := os.Getenv(CinemetaURL); v != "" {
		o.CinemetaURL = v
		keys = append(keys, KeyCinemetaURL)
	}
	if v := os.Getenv(ADDONPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			o.AddonPort = port
			keys = append(keys, KeyAddonPort)
		}
	}
	if v := os.Getenv(ADDONBaseURL); v != "" {
		o.AddonBaseURL = v
		keys = append(keys, KeyAddonBaseURL)
	}
	if v := os.Getenv(LOGLevel); v != "" {
		o.LogLevel = v
		keys = append(keys, KeyLogLevel)
	}
	if v := os.Getenv(SessionTTLSecs); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			o.SessionTTLSeconds = ttl
			keys = append(keys, KeySessionTTL)
		}
	}

	return o, keys
}

// OverrideKeys returns the config JSON keys that have environment overrides set.
// Used by the API to tell the UI which settings show "overwritten on restart" warnings.
func OverrideKeys() []string {
	_, keys := ReadConfigOverrides()
	return keys
}
