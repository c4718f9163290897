package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const logLevelEnv = "FRAMECTL_LOG_LEVEL"

// config holds the settings that can come from a config file. Flags override them.
type config struct {
	Codec    string `toml:"codec" yaml:"codec"`
	Width    string `toml:"width" yaml:"width"`
	MaxFrame int    `toml:"max_frame" yaml:"max_frame"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	DB       string `toml:"db" yaml:"db"`
}

func defaultConfig() config {
	return config{
		Codec:    "cobs",
		Width:    "fixed32",
		LogLevel: "info",
		DB:       "frames.db",
	}
}

// loadConfig reads the file at path over the defaults. The format is picked by extension.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}

	return cfg, nil
}
