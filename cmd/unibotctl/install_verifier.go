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
	"strings"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// ImportProbe checks that one package imports inside the environment.
type ImportProbe struct {
	// Module is the importable package name, e.g. "fastapi".
	Module string

	// Required marks probes whose failure means the install is broken.
	Required bool
}

// DefaultImportProbes covers the packages the service cannot start without,
// plus the ones worth reporting a version for.
func DefaultImportProbes() []ImportProbe {
	return []ImportProbe{
		{Module: "aiogram", Required: true},
		{Module: "fastapi", Required: true},
		{Module: "sqlalchemy", Required: true},
		{Module: "alembic", Required: false},
		{Module: "uvicorn", Required: true},
	}
}

// ProbeResult is the outcome of one import probe.
type ProbeResult struct {
	Module  string
	OK      bool
	Version string
	Err     error
}

// InstallVerifier confirms an environment can actually import the
// project's dependency set.
//
// pip exiting zero does not guarantee importability (broken wheels,
// conflicting transitive pins), so the verifier imports each package in a
// fresh interpreter and captures its reported version.
type InstallVerifier struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewInstallVerifier creates a verifier using the given process manager.
func NewInstallVerifier(proc ProcessManager, log *logging.Logger) *InstallVerifier {
	if log == nil {
		log = logging.Default()
	}
	return &InstallVerifier{proc: proc, log: log}
}

// VerifyImports runs every probe and returns all results.
//
// The error is non-nil when any Required probe failed; optional probe
// failures surface only in the results.
func (v *InstallVerifier) VerifyImports(ctx context.Context, desc EnvironmentDescriptor, probes []ImportProbe) ([]ProbeResult, error) {
	python := VenvPython(desc.Root)
	results := make([]ProbeResult, 0, len(probes))
	var failedRequired []string

	for _, probe := range probes {
		script := fmt.Sprintf("import %s; print(getattr(%s, '__version__', ''))", probe.Module, probe.Module)
		out, err := v.proc.Run(ctx, desc.ProjectRoot, python, "-c", script)
		result := ProbeResult{Module: probe.Module}
		if err != nil {
			result.Err = err
			v.log.Warn("import probe failed", "module", probe.Module, "error", err)
			if probe.Required {
				failedRequired = append(failedRequired, probe.Module)
			}
		} else {
			result.OK = true
			result.Version = strings.TrimSpace(string(out))
			v.log.Debug("import probe ok", "module", probe.Module, "version", result.Version)
		}
		results = append(results, result)
	}

	if len(failedRequired) > 0 {
		return results, fmt.Errorf("required packages failed to import: %s", strings.Join(failedRequired, ", "))
	}
	return results, nil
}
