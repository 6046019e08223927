// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the unibotctl configuration file.
//
// The configuration describes the Unibot project checkout that unibotctl
// operates on: which interpreter version the project requires, where the
// virtual environment lives, which dependency manifests to install, and how
// the service and its git remote are reached. The file is YAML and lives at
// the project root so that each checkout carries its own settings.
package config

// UnibotConfig is the root configuration structure.
type UnibotConfig struct {
	Python  PythonConfig  `yaml:"python"`
	Env     EnvConfig     `yaml:"environment"`
	Service ServiceConfig `yaml:"service"`
	Git     GitConfig     `yaml:"git"`
}

// PythonConfig pins the interpreter the project requires.
type PythonConfig struct {
	// Version is the required major.minor version, e.g. "3.11".
	// The resolver accepts any patch release of this version and
	// nothing else.
	Version string `yaml:"version"`
}

// EnvConfig describes the isolated dependency environment.
type EnvConfig struct {
	// VenvDir is the virtual environment root, relative to the project
	// root unless absolute.
	VenvDir string `yaml:"venv_dir"`

	// Manifests are pip requirement files applied in order. Entries
	// marked optional may fail without aborting provisioning.
	Manifests []Manifest `yaml:"manifests"`

	// EnvTemplate is the committed environment-variable template
	// (.env.example). Copied to EnvFile on first provisioning.
	EnvTemplate string `yaml:"env_template"`

	// EnvFile is the operator-edited environment file (.env). Never
	// parsed by unibotctl, only created from the template when absent.
	EnvFile string `yaml:"env_file"`
}

// Manifest is one dependency manifest file.
type Manifest struct {
	Path     string `yaml:"path"`
	Optional bool   `yaml:"optional"`
}

// ServiceConfig describes the long-running service.
type ServiceConfig struct {
	// Module is the ASGI application path passed to uvicorn,
	// e.g. "src.main:app".
	Module string `yaml:"module"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// WatchDirs are source directories the serve supervisor watches
	// for changes. A change triggers a service restart.
	WatchDirs []string `yaml:"watch_dirs"`
}

// GitConfig describes the repository the history sanitizer operates on.
type GitConfig struct {
	Remote string `yaml:"remote"`
	Branch string `yaml:"branch"`

	// SecretsPath is the tracked path that must be purged from history,
	// typically the .env file that was committed by accident.
	SecretsPath string `yaml:"secrets_path"`
}

// Default returns the configuration written on first run.
//
// The defaults match the Unibot project layout: Python 3.11, a .venv at the
// project root, requirements.txt plus an optional requirements-dev.txt, and
// uvicorn serving src.main:app on port 8000.
func Default() UnibotConfig {
	return UnibotConfig{
		Python: PythonConfig{Version: "3.11"},
		Env: EnvConfig{
			VenvDir: ".venv",
			Manifests: []Manifest{
				{Path: "requirements.txt"},
				{Path: "requirements-dev.txt", Optional: true},
			},
			EnvTemplate: ".env.example",
			EnvFile:     ".env",
		},
		Service: ServiceConfig{
			Module:    "src.main:app",
			Host:      "0.0.0.0",
			Port:      8000,
			WatchDirs: []string{"src"},
		},
		Git: GitConfig{
			Remote:      "origin",
			Branch:      "main",
			SecretsPath: ".env",
		},
	}
}
