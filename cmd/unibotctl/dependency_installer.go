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

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// DependencyInstaller applies dependency manifests into an environment.
//
// # Description
//
// Manifests are installed strictly in declared order via the environment's
// pip. The first failing required manifest aborts installation; manifests
// marked optional may fail and are reported as warnings by the caller.
//
// pip itself is idempotent: reinstalling an already-satisfied manifest only
// reconfirms versions. This component does not deduplicate.
type DependencyInstaller struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewDependencyInstaller creates an installer using the given process manager.
func NewDependencyInstaller(proc ProcessManager, log *logging.Logger) *DependencyInstaller {
	if log == nil {
		log = logging.Default()
	}
	return &DependencyInstaller{proc: proc, log: log}
}

// InstallAll installs every manifest of the descriptor in order.
//
// # Outputs
//
//   - []string: warnings for optional manifests that failed or were absent
//   - error: the first required-manifest failure; nil otherwise
//
// A missing required manifest file fails before any subprocess runs, so
// partial installs from a misconfigured manifest list cannot occur.
func (d *DependencyInstaller) InstallAll(ctx context.Context, desc EnvironmentDescriptor) ([]string, error) {
	var warnings []string
	for _, manifest := range desc.Manifests {
		if err := d.Install(ctx, desc, manifest); err != nil {
			if manifest.Optional {
				d.log.Warn("optional manifest failed, continuing",
					"manifest", manifest.Path,
					"error", err)
				warnings = append(warnings, fmt.Sprintf("%s: %v", manifest.Path, err))
				continue
			}
			return warnings, fmt.Errorf("install of %s failed: %w", manifest.Path, err)
		}
	}
	return warnings, nil
}

// Install applies a single manifest into the environment.
//
// A missing manifest file fails before any subprocess runs. The caller
// decides fatality from manifest.Optional.
func (d *DependencyInstaller) Install(ctx context.Context, desc EnvironmentDescriptor, manifest config.Manifest) error {
	path := manifest.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(desc.ProjectRoot, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("manifest not found: %w", err)
	}

	d.log.Info("installing manifest", "manifest", manifest.Path, "optional", manifest.Optional)
	pip := VenvPip(desc.Root)
	if _, err := d.proc.Run(ctx, desc.ProjectRoot, pip, "install", "-r", path); err != nil {
		return err
	}
	return nil
}
