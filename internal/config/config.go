// Package config reads the global ~/.zapzap/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Identity-failure policies for the conversation list refresh.
const (
	IdentityFailureNotify = "notify"
	IdentityFailureIgnore = "ignore"
)

// Config is the global configuration.
type Config struct {
	DefaultProfile string `toml:"default_profile"`

	// UserID and UserName identify the authenticated local user. Session
	// and token management live outside this program; the resolved
	// identity is handed to it.
	UserID   string `toml:"user_id"`
	UserName string `toml:"user_name"`

	// SyncURL is the optional websocket sync endpoint. Empty runs the
	// engine fully local.
	SyncURL string `toml:"sync_url"`

	// PresenceIntervalSeconds is the self-presence heartbeat period.
	PresenceIntervalSeconds int `toml:"presence_interval_seconds"`

	// IdentityFailure is "notify" (surface to the UI) or "ignore" (skip
	// the refresh silently).
	IdentityFailure string `toml:"identity_failure"`
}

// Default returns a config with defaults applied.
func Default() *Config {
	return &Config{
		PresenceIntervalSeconds: 60,
		IdentityFailure:         IdentityFailureNotify,
	}
}

// Load reads config from path and validates it. A missing file is an
// error; callers that accept absence fall back to Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.IdentityFailure {
	case "", IdentityFailureNotify, IdentityFailureIgnore:
	default:
		return fmt.Errorf("config: identity_failure must be %q or %q, got %q",
			IdentityFailureNotify, IdentityFailureIgnore, c.IdentityFailure)
	}
	if c.PresenceIntervalSeconds < 0 {
		return fmt.Errorf("config: presence_interval_seconds must not be negative")
	}
	return nil
}

// Save writes config to path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
