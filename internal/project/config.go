// Package project reads per-repository settings from a .turnline directory
// at the repo root: a small JSON config plus a free-text custom rules file
// appended to the turn controller's system prompt.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Dir is the directory name for per-project turnline configuration.
	Dir = ".turnline"
	// ConfigFile is the name of the project configuration file.
	ConfigFile = "config.json"
	// RulesFile is the name of the custom rules file.
	RulesFile = "rules"
)

// Config holds per-project settings read from .turnline/config.json.
type Config struct {
	AutoRunSkills bool `json:"auto_run_skills"`
}

func configPath(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, ConfigFile)
}

func rulesPath(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, RulesFile)
}

// Exists reports whether a project configuration file exists.
func Exists(repoRoot string) bool {
	_, err := os.Stat(configPath(repoRoot))
	return !os.IsNotExist(err)
}

// LoadConfig reads the project configuration from disk. Returns nil and no
// error if the config file does not exist.
func LoadConfig(repoRoot string) (*Config, error) {
	path := configPath(repoRoot)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the project configuration to disk, creating the
// .turnline directory if it doesn't exist.
func SaveConfig(repoRoot string, cfg *Config) error {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project config: %w", err)
	}

	if err := os.WriteFile(configPath(repoRoot), data, 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	return nil
}

// LoadRules reads custom agent instructions from .turnline/rules. Returns
// empty string and no error if the file does not exist.
func LoadRules(repoRoot string) (string, error) {
	path := rulesPath(repoRoot)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read rules file: %w", err)
	}
	return string(data), nil
}
