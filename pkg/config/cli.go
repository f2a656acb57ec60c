package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const defaultAPIBaseURL = "http://localhost:4000"

// CLIConfig is persisted by the board CLI between invocations.
type CLIConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

// LoadCLIConfig reads the CLI config from the user config dir. A missing file
// yields defaults.
func LoadCLIConfig() (CLIConfig, error) {
	path, err := CLIConfigPath()
	if err != nil {
		return CLIConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CLIConfig{APIBaseURL: GetString("BOARD_API", defaultAPIBaseURL)}, nil
		}
		return CLIConfig{}, err
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = GetString("BOARD_API", defaultAPIBaseURL)
	}
	return cfg, nil
}

// SaveCLIConfig writes the CLI config with user-only permissions.
func SaveCLIConfig(cfg CLIConfig) error {
	path, err := CLIConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CLIConfigPath returns the location of the CLI config file.
func CLIConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "teamboard", "config.json"), nil
}
