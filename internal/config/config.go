// Package config persists the one piece of state that survives across
// invocations: which model is the default. The record lives in a small file
// under the per-user configuration directory and is written only after a
// successful acquisition or an explicit model switch.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultModel is used until the user selects another one.
const DefaultModel = "qwen3-correct-0.6B"

// appDir is the directory name under the platform config root.
const appDir = "fix"

// fileName is the default on-disk record.
const fileName = "config.json"

// Config is the persisted configuration record.
type Config struct {
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
}

// Default returns the configuration used before any file exists.
func Default() Config {
	return Config{DefaultModel: DefaultModel}
}

// Dir returns the per-user configuration directory. When the platform
// config root cannot be determined it falls back to the working directory
// so the tool still functions in minimal environments.
func Dir() string {
	root, err := os.UserConfigDir()
	if err != nil {
		if wd, werr := os.Getwd(); werr == nil {
			return filepath.Join(wd, appDir)
		}
		return appDir
	}
	return filepath.Join(root, appDir)
}

// Path returns the configuration file path. FIX_CONFIG overrides it, which
// also selects the encoding by extension.
func Path() string {
	if v := os.Getenv("FIX_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(Dir(), fileName)
}

// Load reads the configuration at path. A missing or unreadable file, and a
// file that fails to decode, all degrade to the defaults: correction must
// proceed on a fresh machine and after a corrupted write.
func Load(path string) Config {
	b, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg, err := decode(path, b)
	if err != nil || cfg.DefaultModel == "" {
		return Default()
	}
	return cfg
}

// Save writes cfg to path, creating the parent directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	b, err := encode(path, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// decode selects the format from the file extension.
// Supports: .json (default), .yaml/.yml, .toml
func decode(path string, b []byte) (Config, error) {
	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json", "":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

func encode(path string, cfg Config) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	case ".toml":
		return toml.Marshal(cfg)
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}
