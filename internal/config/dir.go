package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the directory under the user's config and data
	// directories where fixboard keeps its files.
	dirName string = "fixboard"
)

// MustConfigDir returns the directory holding config.yaml.
func MustConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Errorf("cannot obtain user config dir: %w", err))
	}

	return filepath.Join(configDir, dirName)
}

// DataDir returns the directory for mutable state such as the session
// token. XDG_DATA_HOME wins, with ~/.local/share as the fallback.
func DataDir() (string, error) {
	var dataDir string

	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		dataDir = xdgDataHome
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot obtain user home dir: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, dirName), nil
}
