// Package paths resolves the config and data directory locations.
package paths

import (
	"os"
	"path/filepath"
)

// DefaultDataDirName is the CWD-relative data directory used when no
// override is active.
const DefaultDataDirName = ".kernalinit-data"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "KERNALINIT_CONFIG_DIR"
	EnvDataDir   = "KERNALINIT_DATA_DIR"
)

// DefaultConfigDir returns the per-user config directory:
// $XDG_CONFIG_HOME/kernalinit on Linux, ~/Library/Application
// Support/kernalinit on macOS. os.UserConfigDir handles the platform
// fallback chain.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kernalinit"), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > KERNALINIT_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence
// chain: flag > configYAMLValue > KERNALINIT_DATA_DIR env > CWD default.
//
// The CWD-relative default keeps the registry, backups, and host
// sandbox next to wherever the agent is run when no override is active.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
