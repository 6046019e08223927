// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// EnvironmentDescriptor identifies an isolated dependency environment.
//
// Created by the provisioning pipeline after interpreter resolution.
// Recreation destroys and rebuilds the environment wholesale; there is no
// partial-update state to track.
type EnvironmentDescriptor struct {
	// Root is the absolute path of the virtual environment.
	Root string

	// ProjectRoot is the checkout the environment serves. Manifest paths
	// are resolved against it and installers run inside it.
	ProjectRoot string

	// Interpreter is the resolved base interpreter used to materialize
	// the environment.
	Interpreter ResolvedInterpreter

	// Manifests are the dependency manifests to install, in order.
	Manifests []config.Manifest
}

// VenvBinDir returns the scripts directory of a virtual environment
// ("Scripts" on Windows, "bin" elsewhere).
func VenvBinDir(root string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(root, "Scripts")
	}
	return filepath.Join(root, "bin")
}

// VenvPython returns the path of the environment's interpreter.
func VenvPython(root string) string {
	return venvExecutable(root, "python")
}

// VenvPip returns the path of the environment's pip.
func VenvPip(root string) string {
	return venvExecutable(root, "pip")
}

func venvExecutable(root, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(VenvBinDir(root), name)
}

// VenvManager owns the lifecycle of the isolated environment.
//
// # Description
//
// The only supported operation is wholesale recreation: remove the old
// environment entirely, then materialize a fresh one with the resolved
// interpreter. No merge or upgrade path exists; a clean rebuild is the
// reproducibility guarantee.
//
// Remove-then-create is not atomic. A crash mid-recreation leaves no
// environment, which the next run treats as "absent" and rebuilds.
type VenvManager struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewVenvManager creates a VenvManager using the given process manager.
func NewVenvManager(proc ProcessManager, log *logging.Logger) *VenvManager {
	if log == nil {
		log = logging.Default()
	}
	return &VenvManager{proc: proc, log: log}
}

// Recreate removes any environment at desc.Root and builds a new one.
//
// # Description
//
// Runs `<interpreter> -m venv <root>` and verifies the resulting
// environment answers `--version`. Calling Recreate twice in succession
// yields an equivalent environment (modulo upstream package drift).
//
// # Error Conditions
//
//   - removal of the old environment fails (permissions)
//   - venv creation exits non-zero (disk, broken base interpreter)
//   - the created environment has no working python
//
// All failures are fatal for provisioning.
func (m *VenvManager) Recreate(ctx context.Context, desc EnvironmentDescriptor) error {
	if _, err := os.Stat(desc.Root); err == nil {
		m.log.Info("removing existing virtualenv", "path", desc.Root)
		if err := os.RemoveAll(desc.Root); err != nil {
			return fmt.Errorf("failed to remove old environment at %s: %w", desc.Root, err)
		}
	}

	m.log.Info("creating virtualenv",
		"path", desc.Root,
		"interpreter", desc.Interpreter.Command,
		"version", desc.Interpreter.Version)

	name, args := desc.Interpreter.Invoke("-m", "venv", desc.Root)
	if _, err := m.proc.Run(ctx, desc.ProjectRoot, name, args...); err != nil {
		return fmt.Errorf("virtualenv creation failed: %w", err)
	}

	return m.verify(ctx, desc.Root)
}

// verify confirms the environment has a responsive interpreter.
func (m *VenvManager) verify(ctx context.Context, root string) error {
	python := VenvPython(root)
	if _, err := os.Stat(python); err != nil {
		return fmt.Errorf("virtualenv at %s has no interpreter (%s): %w", root, python, err)
	}
	out, err := m.proc.Run(ctx, "", python, "--version")
	if err != nil {
		return fmt.Errorf("virtualenv interpreter check failed: %w", err)
	}
	if _, _, ok := parsePythonVersion(string(out)); !ok {
		return fmt.Errorf("virtualenv interpreter reported unexpected version output: %q", string(out))
	}
	return nil
}

// UpgradePip upgrades pip inside the environment.
//
// Failure is recoverable: an old pip can usually still install the
// project's manifests.
func (m *VenvManager) UpgradePip(ctx context.Context, desc EnvironmentDescriptor) error {
	python := VenvPython(desc.Root)
	if _, err := m.proc.Run(ctx, desc.ProjectRoot, python, "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return fmt.Errorf("pip upgrade failed: %w", err)
	}
	return nil
}
