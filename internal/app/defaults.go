package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - MM_CONFIG_PATH: config file location (default: ~/.config/mm.toml)
//   - MM_HOME: base directory for mm data (default: ~/.local/share/mm)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

// getConfigPath returns the config file path, checking MM_CONFIG_PATH env var first,
// then falling back to the default ~/.config/mm.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("MM_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mm.toml"), nil
}

// getBaseDir returns the base directory for mm data, checking MM_HOME env var first,
// then falling back to the XDG default ~/.local/share/mm.
func getBaseDir() (string, error) {
	if path := os.Getenv("MM_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mm"), nil
}
