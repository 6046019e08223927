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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_FullConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
python:
  version: "3.12"
environment:
  venv_dir: env
  manifests:
    - path: requirements.txt
    - path: requirements-dev.txt
      optional: true
  env_template: .env.sample
  env_file: .env.local
service:
  module: app.main:api
  host: 127.0.0.1
  port: 9000
  watch_dirs: [app, lib]
git:
  remote: upstream
  branch: develop
  secrets_path: config/.env
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "3.12", cfg.Python.Version)
	assert.Equal(t, "env", cfg.Env.VenvDir)
	require.Len(t, cfg.Env.Manifests, 2)
	assert.False(t, cfg.Env.Manifests[0].Optional)
	assert.True(t, cfg.Env.Manifests[1].Optional)
	assert.Equal(t, ".env.sample", cfg.Env.EnvTemplate)
	assert.Equal(t, "app.main:api", cfg.Service.Module)
	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, []string{"app", "lib"}, cfg.Service.WatchDirs)
	assert.Equal(t, "upstream", cfg.Git.Remote)
	assert.Equal(t, "config/.env", cfg.Git.SecretsPath)
}

func TestLoadFile_PartialConfigGetsFallbacks(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
service:
  port: 9000
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// Explicit value survives.
	assert.Equal(t, 9000, cfg.Service.Port)

	// Everything omitted falls back to the defaults.
	def := Default()
	assert.Equal(t, def.Python.Version, cfg.Python.Version)
	assert.Equal(t, def.Env.VenvDir, cfg.Env.VenvDir)
	assert.Equal(t, def.Env.Manifests, cfg.Env.Manifests)
	assert.Equal(t, def.Service.Module, cfg.Service.Module)
	assert.Equal(t, def.Git.Remote, cfg.Git.Remote)
	assert.Equal(t, def.Git.SecretsPath, cfg.Git.SecretsPath)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "python: [unclosed")
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestDefault_MatchesProjectLayout(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "3.11", cfg.Python.Version)
	assert.Equal(t, ".venv", cfg.Env.VenvDir)
	require.Len(t, cfg.Env.Manifests, 2)
	assert.Equal(t, "requirements.txt", cfg.Env.Manifests[0].Path)
	assert.False(t, cfg.Env.Manifests[0].Optional)
	assert.True(t, cfg.Env.Manifests[1].Optional)
	assert.Equal(t, "src.main:app", cfg.Service.Module)
	assert.Equal(t, 8000, cfg.Service.Port)
	assert.Equal(t, ".env", cfg.Git.SecretsPath)
}
