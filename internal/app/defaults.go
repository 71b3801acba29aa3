package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - AUTOLEARNER_CONFIG_PATH: config file location (default: ~/.config/autolearner.toml)
//   - AUTOLEARNER_HOME: base directory for autolearner data (default: ~/.local/share/autolearner)
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
	}, nil
}

// getConfigPath returns the config file path, checking AUTOLEARNER_CONFIG_PATH env var first,
// then falling back to the default ~/.config/autolearner.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("AUTOLEARNER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "autolearner.toml"), nil
}

// getBaseDir returns the base directory for autolearner data, checking AUTOLEARNER_HOME env var first,
// then falling back to the XDG default ~/.local/share/autolearner.
func getBaseDir() (string, error) {
	if path := os.Getenv("AUTOLEARNER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "autolearner"), nil
}

// LogLevel returns the minimum log level from AUTOLEARNER_LOG_LEVEL (default: info).
func LogLevel() (slog.Level, error) {
	raw := strings.TrimSpace(os.Getenv("AUTOLEARNER_LOG_LEVEL"))
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid AUTOLEARNER_LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}
