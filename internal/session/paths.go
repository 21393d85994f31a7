// Package session manages per-profile directories and naming.
package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.zapzap.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".zapzap")
}

// Dir returns the profile-specific directory.
func Dir(profile string) string {
	return filepath.Join(BaseDir(), "profiles", profile)
}

// DBPath returns the engine store path for a profile.
func DBPath(profile string) string {
	return filepath.Join(Dir(profile), "zapzap.db")
}

// BlobDir returns the media blob directory for a profile.
func BlobDir(profile string) string {
	return filepath.Join(Dir(profile), "blobs")
}

// LogPath returns the log file path for a profile.
func LogPath(profile string) string {
	return filepath.Join(Dir(profile), "logs", "zapzap.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with 0700 permissions.
func EnsureDir(profile string) error {
	dirs := []string{
		Dir(profile),
		BlobDir(profile),
		filepath.Join(Dir(profile), "logs"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
