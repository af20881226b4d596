// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied. A missing
// file is tolerated and produces an all-defaults config, since every
// field has a documented fallback.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := l.Load(ctx, path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}
	if cfg == nil {
		cfg = &Config{}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}

	if cfg.Process.Binary == "" {
		cfg.Process.Binary = "claude"
	}
	if cfg.Process.InitTimeoutSec == 0 {
		cfg.Process.InitTimeoutSec = 30
	}
	if cfg.Process.StopGraceSec == 0 {
		cfg.Process.StopGraceSec = 5
	}
	if cfg.Process.ShutdownTimeout == 0 {
		cfg.Process.ShutdownTimeout = 10
	}

	if cfg.History.ProjectsRoot == "" {
		cfg.History.ProjectsRoot = expandPath(filepath.Join("~", ".claude", "projects"))
	} else {
		cfg.History.ProjectsRoot = expandPath(cfg.History.ProjectsRoot)
	}

	if cfg.SessionInfo.Path == "" {
		cfg.SessionInfo.Path = expandPath(filepath.Join("~", ".cui", "session-info.json"))
	} else {
		cfg.SessionInfo.Path = expandPath(cfg.SessionInfo.Path)
	}

	if cfg.Permission.PendingTimeoutSec == 0 {
		cfg.Permission.PendingTimeoutSec = 3600
	}

	if cfg.Preferences.Path == "" {
		cfg.Preferences.Path = expandPath(filepath.Join("~", ".cui", "preferences.json"))
	} else {
		cfg.Preferences.Path = expandPath(cfg.Preferences.Path)
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
