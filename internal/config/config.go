// Package config handles configuration and credential management for
// hwachat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides, checked before config-file values.
const (
	EnvRealtimeHost = "HWACHAT_WEBSOCKET_URL"
	EnvAPIBase      = "HWACHAT_API_URL"
	EnvToken        = "HWACHAT_TOKEN"
	EnvAppID        = "HWACHAT_APP_ID"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`             // "dark", "light", or "auto"
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
}

// Config represents the user configuration
type Config struct {
	// RealtimeHost is the base URL of the realtime channel. Falls back
	// to the production host when empty.
	RealtimeHost string `json:"realtime_host"`
	// APIBase is the base URL for REST endpoints (uploads, group
	// listing). Defaults to the realtime host.
	APIBase string `json:"api_base"`
	// Token is the bearer credential carried as a connection-time query
	// parameter and as the Authorization header on REST calls.
	Token string `json:"token"`
	// ApplicationID identifies the homework-assistant application; the
	// service issues these as UUIDs.
	ApplicationID string `json:"application_id"`
	// Curriculum and ClassLevel scope every conversation.
	Curriculum string `json:"curriculum"`
	ClassLevel string `json:"class_level"`
	// PageLimit is the page size used when listing conversation groups.
	PageLimit int `json:"page_limit"`
	// Verbose enables a debug log of socket traffic.
	Verbose bool `json:"verbose"`
	// CopyToClipboard copies each assistant reply to the clipboard.
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Curriculum:      "Biology",
		ClassLevel:      "SSS 1",
		PageLimit:       10,
		Verbose:         false,
		CopyToClipboard: false,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".hwachat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the bearer token
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk, applying environment
// overrides on top of file values.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return applyEnv(cfg), err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil // Use defaults if config doesn't exist
		}
		return applyEnv(cfg), fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv(EnvRealtimeHost); v != "" {
		cfg.RealtimeHost = v
	}
	if v := os.Getenv(EnvAPIBase); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvAppID); v != "" {
		cfg.ApplicationID = v
	}
	return cfg
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0o600: the file contains the bearer token
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
