package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Manager handles loading and saving the configuration document.
type Manager struct {
	configDir string
}

// NewManager creates a configuration manager rooted at the user's config
// directory (XDG_CONFIG_HOME-equivalent), under a "turnline" subdirectory.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return &Manager{configDir: filepath.Join(configDir, "turnline")}, nil
}

// GetConfigPath returns the absolute path to config.yaml.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.yaml")
}

// Load reads the configuration document from disk. If the file does not
// exist, it returns Default() and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration document to disk with restricted
// permissions (0600), matching the teacher's habit for files that may
// carry an API key.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// LoadDotEnv loads a ".env" file in the working directory if present,
// the same best-effort override the teacher's cmd/repl/main.go performs
// before reading any config.
func LoadDotEnv() {
	_ = godotenv.Load()
}
