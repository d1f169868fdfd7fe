package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for ptt, stored in ~/.ptt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	// DataDir overrides the data directory. Empty = ~/.ptt.
	DataDir string `json:"data_dir"`
	// IdleThresholdSeconds is how long the shared activity timestamp may
	// go stale before a persisted session is considered abandoned.
	IdleThresholdSeconds int `json:"idle_threshold_seconds"`
	// ActivityIntervalSeconds throttles periodic shared activity writes.
	ActivityIntervalSeconds int `json:"activity_interval_seconds"`
	// ConflictRetryLimit caps read-validate-write retries on snapshot conflicts.
	ConflictRetryLimit int `json:"conflict_retry_limit"`
	// Outlook holds Microsoft Graph calendar import settings.
	Outlook OutlookConfig `json:"outlook"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar import settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone"`
}

const (
	// DefaultIdleThresholdSeconds is the default staleness threshold for
	// abandoned-session recovery.
	DefaultIdleThresholdSeconds = 300
	// DefaultActivityIntervalSeconds is the default throttle for
	// periodic shared activity writes.
	DefaultActivityIntervalSeconds = 30
	// DefaultConflictRetryLimit is the default conflict retry cap.
	DefaultConflictRetryLimit = 3
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
)

// IdleThreshold returns the idle threshold as a duration.
func (c Config) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSeconds) * time.Second
}

// ActivityInterval returns the shared activity write throttle as a duration.
func (c Config) ActivityInterval() time.Duration {
	return time.Duration(c.ActivityIntervalSeconds) * time.Second
}

// defaultDataDir returns ~/.ptt.
func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".ptt"), nil
}

// ResolvedDataDir returns the configured data directory, falling back
// to ~/.ptt.
func (c Config) ResolvedDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return defaultDataDir()
}

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		IdleThresholdSeconds:    DefaultIdleThresholdSeconds,
		ActivityIntervalSeconds: DefaultActivityIntervalSeconds,
		ConflictRetryLimit:      DefaultConflictRetryLimit,
		Outlook: OutlookConfig{
			TenantID: DefaultTenantID,
			ClientID: DefaultClientID,
			Timezone: "",
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// ptt configuration – ~/.ptt/config.json
//
// All settings are optional; the built-in defaults shown below work out
// of the box. Edit this file to customise ptt behaviour.
{
  // Data directory holding snapshots, the project index and the
  // activity log. Empty = ~/.ptt.
  "data_dir": "",

  // How long (seconds) the shared activity timestamp may go stale
  // before a running session left behind by another process is treated
  // as abandoned and closed at its last known activity time.
  "idle_threshold_seconds": 300,

  // Minimum interval (seconds) between periodic shared activity writes
  // while a timer is running. Start and stop always write immediately.
  "activity_interval_seconds": 30,

  // How many times a conflicting snapshot write is retried with a fresh
  // read before the operation gives up.
  "conflict_retry_limit": 3,

  // ── Microsoft Graph / Outlook calendar import ────────────────────────
  "outlook": {
    // Azure AD tenant ID.
    // • "common"  – personal Microsoft accounts and any organisation (default)
    // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    // Leave empty to use UTC. Can be overridden with: ptt outlook sync --timezone <tz>
    "timezone": ""
  }
}
`

// configFilePath returns the path to ~/.ptt/config.json.
func configFilePath() (string, error) {
	dir, err := defaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.ptt/config.json, creating it with annotated defaults on
// first run. Lines starting with // are treated as comments and
// stripped before JSON parsing.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.IdleThresholdSeconds <= 0 {
		cfg.IdleThresholdSeconds = DefaultIdleThresholdSeconds
	}
	if cfg.ActivityIntervalSeconds <= 0 {
		cfg.ActivityIntervalSeconds = DefaultActivityIntervalSeconds
	}
	if cfg.ConflictRetryLimit <= 0 {
		cfg.ConflictRetryLimit = DefaultConflictRetryLimit
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}

	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
