package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at a config file when
// no -config flag is given.
const EnvConfig = "TOWERSCENE_CONFIG"

// Load builds the configuration from defaults, then the config file, then CLI
// flags, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile picks the file to load. An explicit -config flag or EnvConfig
// must exist; the search locations are optional.
func configFile() (string, error) {
	explicit := ConfigPath()
	if explicit == "" {
		explicit = os.Getenv(EnvConfig)
	}
	if explicit == "" {
		return findConfigFile(), nil
	}
	if _, err := os.Stat(explicit); err != nil {
		return "", fmt.Errorf("config file: %w", err)
	}
	return explicit, nil
}

// findConfigFile returns the first config.yaml in the working directory or
// ConfigDir, or "" when neither exists.
func findConfigFile() string {
	for _, path := range []string{"./config.yaml", UserConfigPath()} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "TowerScene")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "TowerScene")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "towerscene")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "towerscene")
	}
}

// loadFromFile merges a YAML file over cfg. Unknown keys are rejected so a
// misspelt setting does not silently fall back to its default. An empty file
// leaves cfg unchanged.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
