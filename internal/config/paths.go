package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".lookout"

// DataDir returns the base data directory for lookout.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// SettingsPath returns the path to the settings file.
func SettingsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// StorePath returns the path to the persisted summary cache database.
func StorePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "cache.db"), nil
}

// LogPath returns the path to the engine log file.
func LogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "lookout.log"), nil
}

// DefaultSessionRoot returns the agent's per-workspace session log root.
func DefaultSessionRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "projects"), nil
}
