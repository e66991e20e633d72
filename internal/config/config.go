// Copyright 2025 MediaMirror Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// getConfigDir returns the config directory path.
// Uses MEDIAMIRROR_CONFIG_DIR env var if set, otherwise ~/.mediamirror.
// Computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("MEDIAMIRROR_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mediamirror")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return getConfigDir()
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// LockPath returns the lock file guarding against concurrent sync passes.
func LockPath() string {
	return filepath.Join(getConfigDir(), "sync.lock")
}

// DefaultDatabasePath returns the default mirror database path.
func DefaultDatabasePath() string {
	return filepath.Join(getConfigDir(), "mirror.db")
}

// Stages toggles individual pipeline stages. A disabled stage reports
// Skipped in the run status and is never executed.
type Stages struct {
	Assets      *bool `yaml:"assets"`
	Collections *bool `yaml:"collections"`
	Materialize *bool `yaml:"materialize"`
	Views       *bool `yaml:"views"`
}

// Config is the mediamirror configuration loaded from config.yaml.
type Config struct {
	Database       string   `yaml:"database"`        // mirror database path
	ExportRoot     string   `yaml:"export-root"`     // root of materialized files and views
	ExpiryDays     int      `yaml:"expiry-days"`     // tombstone expiry window, default 30
	ScoreThreshold float64  `yaml:"score-threshold"` // minimum score for the score view
	LogLevel       string   `yaml:"log-level"`       // logrus level name
	Exclude        []string `yaml:"exclude"`         // gitignore-style filename patterns to skip
	Stages         Stages   `yaml:"stages"`
}

// ApplyDefaults fills zero-value fields with their defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabasePath()
	}
	if cfg.ExportRoot == "" {
		home, _ := os.UserHomeDir()
		cfg.ExportRoot = filepath.Join(home, "mediamirror")
	}
	if cfg.ExpiryDays == 0 {
		cfg.ExpiryDays = 30
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.9
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	on := true
	if cfg.Stages.Assets == nil {
		cfg.Stages.Assets = &on
	}
	if cfg.Stages.Collections == nil {
		cfg.Stages.Collections = &on
	}
	if cfg.Stages.Materialize == nil {
		cfg.Stages.Materialize = &on
	}
	if cfg.Stages.Views == nil {
		cfg.Stages.Views = &on
	}
}

// Load reads the config file at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// Save writes the config to path, creating parent directories.
func (cfg *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
