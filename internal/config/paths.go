package config

import (
	"os"
	"path/filepath"
)

const appName = "agentboard"

// ConfigDir returns $XDG_CONFIG_HOME/agentboard, defaulting to ~/.config/agentboard.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/agentboard, defaulting to ~/.local/state/agentboard.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// CacheDir returns $XDG_CACHE_HOME/agentboard, defaulting to ~/.cache/agentboard.
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DefaultConfigPath honours AGENTBOARD_CONFIG before the XDG location.
func DefaultConfigPath() string {
	if p := os.Getenv("AGENTBOARD_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

func DefaultJournalPath() string {
	return filepath.Join(StateDir(), "events.jsonl")
}

func DefaultCheckpointPath() string {
	return filepath.Join(StateDir(), "checkpoint.json")
}

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback, appName)
}
