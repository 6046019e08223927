// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the config file expected at the project root.
const FileName = "unibotctl.yaml"

var (
	// Global is a singleton instance
	Global UnibotConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable.
//
// The file is resolved relative to projectRoot. On first run a default
// config is written so the operator has something to edit.
func Load(projectRoot string) error {
	var err error
	once.Do(func() {
		err = loadInternal(projectRoot)
	})
	return err
}

// LoadFile reads a config file without touching the Global singleton.
// Used by tests and by callers that manage their own config lifetime.
func LoadFile(path string) (UnibotConfig, error) {
	var cfg UnibotConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	applyFallbacks(&cfg)
	return cfg, nil
}

func loadInternal(projectRoot string) error {
	configPath := filepath.Join(projectRoot, FileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	cfg, err := LoadFile(configPath)
	if err != nil {
		return err
	}
	Global = cfg
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyFallbacks fills zero values with defaults so a hand-trimmed config
// file still yields a usable configuration.
func applyFallbacks(cfg *UnibotConfig) {
	def := Default()
	if cfg.Python.Version == "" {
		cfg.Python.Version = def.Python.Version
	}
	if cfg.Env.VenvDir == "" {
		cfg.Env.VenvDir = def.Env.VenvDir
	}
	if len(cfg.Env.Manifests) == 0 {
		cfg.Env.Manifests = def.Env.Manifests
	}
	if cfg.Env.EnvTemplate == "" {
		cfg.Env.EnvTemplate = def.Env.EnvTemplate
	}
	if cfg.Env.EnvFile == "" {
		cfg.Env.EnvFile = def.Env.EnvFile
	}
	if cfg.Service.Module == "" {
		cfg.Service.Module = def.Service.Module
	}
	if cfg.Service.Host == "" {
		cfg.Service.Host = def.Service.Host
	}
	if cfg.Service.Port == 0 {
		cfg.Service.Port = def.Service.Port
	}
	if len(cfg.Service.WatchDirs) == 0 {
		cfg.Service.WatchDirs = def.Service.WatchDirs
	}
	if cfg.Git.Remote == "" {
		cfg.Git.Remote = def.Git.Remote
	}
	if cfg.Git.Branch == "" {
		cfg.Git.Branch = def.Git.Branch
	}
	if cfg.Git.SecretsPath == "" {
		cfg.Git.SecretsPath = def.Git.SecretsPath
	}
}
