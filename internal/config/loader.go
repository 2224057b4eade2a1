package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the given path, applies defaults, and
// loads the env file if one is configured. A missing config file yields
// pure defaults.
func Load(path string) (Config, error) {
	config := Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		config = Default()
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		config.ApplyDefaults()
	}

	if config.EnvFile != "" {
		if err := godotenv.Load(config.EnvFile); err != nil {
			slog.Warn("failed to load env file", "path", config.EnvFile, "error", err)
		}
	}
	return config, nil
}

// DefaultPath returns $COCODE_HOME/config.yaml, defaulting to
// $HOME/.cocode/config.yaml.
func DefaultPath() string {
	if home := os.Getenv("COCODE_HOME"); home != "" {
		return filepath.Join(home, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cocode", "config.yaml")
}
