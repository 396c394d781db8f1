package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the default file locations.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - QRG_CONFIG_PATH: config file location (default: ~/.config/qrganizer.toml)
//   - QRG_HOME: base directory for qrganizer data (default: ~/.local/share/qrganizer)
func GetDefaults() (*Defaults, error) {
	configPath, err := fromEnvOrHome("QRG_CONFIG_PATH", ".config", "qrganizer.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome("QRG_HOME", ".local", "share", "qrganizer")
	if err != nil {
		return nil, err
	}
	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns the value of env if set, otherwise the home
// directory joined with rel.
func fromEnvOrHome(env string, rel ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
