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
	"regexp"
	"strings"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// ErrInterpreterNotFound is returned when no probed executable reports the
// required Python version. This is fatal for provisioning.
var ErrInterpreterNotFound = fmt.Errorf("no matching Python interpreter found")

// pythonVersionPattern matches the output of `python --version`,
// e.g. "Python 3.11.9".
var pythonVersionPattern = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// ProbeStrategy is one way of locating an installed interpreter.
//
// Strategies are probed in order; the first whose reported version matches
// the required constraint wins. Args carry version-selection flags (the
// Windows "py" launcher takes "-3.11" rather than encoding the version in
// the executable name).
type ProbeStrategy struct {
	// Name identifies the strategy in logs and diagnostics.
	Name string

	// Command is the executable name looked up on PATH.
	Command string

	// Args are version-selection arguments, prepended to any invocation
	// of the resolved interpreter.
	Args []string
}

// InterpreterSpec is the version constraint plus the discovery strategies.
//
// Constructed once from configuration and never mutated.
type InterpreterSpec struct {
	// Version is the required major.minor version, e.g. "3.11".
	Version string

	// Strategies are probed in declared order.
	Strategies []ProbeStrategy
}

// DefaultInterpreterSpec returns the spec for a required version using the
// standard discovery order: the version-aware "py" launcher, the versioned
// binary name, then generic PATH lookups whose reported version must match.
func DefaultInterpreterSpec(version string) InterpreterSpec {
	return InterpreterSpec{
		Version: version,
		Strategies: []ProbeStrategy{
			{Name: "py launcher", Command: "py", Args: []string{"-" + version}},
			{Name: "versioned binary", Command: "python" + version},
			{Name: "python3 on PATH", Command: "python3"},
			{Name: "python on PATH", Command: "python"},
		},
	}
}

// ResolvedInterpreter is the outcome of a successful probe.
type ResolvedInterpreter struct {
	// Command is the executable to invoke.
	Command string

	// Args are version-selection arguments that must precede any real
	// arguments, e.g. ["-3.11"] for the py launcher. Usually empty.
	Args []string

	// Version is the full reported version, e.g. "3.11.9".
	Version string
}

// Invoke builds the argument list for running the interpreter with extra
// arguments, e.g. Invoke("-m", "venv", ".venv").
func (r ResolvedInterpreter) Invoke(extra ...string) (string, []string) {
	args := make([]string, 0, len(r.Args)+len(extra))
	args = append(args, r.Args...)
	args = append(args, extra...)
	return r.Command, args
}

// InterpreterResolver locates an installed interpreter matching a spec.
//
// # Description
//
// Probes each strategy by invoking it with --version and parsing the
// reported version string. A probe whose executable is missing or whose
// version does not match the constraint is skipped silently; only the
// exhaustion of all strategies is an error.
//
// No side effects beyond subprocess invocation.
type InterpreterResolver struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewInterpreterResolver creates a resolver using the given process manager.
func NewInterpreterResolver(proc ProcessManager, log *logging.Logger) *InterpreterResolver {
	if log == nil {
		log = logging.Default()
	}
	return &InterpreterResolver{proc: proc, log: log}
}

// Resolve returns the first strategy whose executable reports the required
// major.minor version.
//
// # Outputs
//
//   - ResolvedInterpreter: executable, selection args, verified version
//   - error: wraps ErrInterpreterNotFound if no strategy matches
//
// A mismatched version (e.g. 3.13 when 3.11 is required) never falls back
// silently; the strategy is rejected and probing continues.
func (r *InterpreterResolver) Resolve(ctx context.Context, spec InterpreterSpec) (ResolvedInterpreter, error) {
	for _, strategy := range spec.Strategies {
		probeArgs := append(append([]string{}, strategy.Args...), "--version")
		output, err := r.proc.Run(ctx, "", strategy.Command, probeArgs...)
		if err != nil {
			r.log.Debug("interpreter probe failed",
				"strategy", strategy.Name,
				"command", strategy.Command,
				"error", err)
			continue
		}

		reported, majorMinor, ok := parsePythonVersion(string(output))
		if !ok {
			r.log.Debug("interpreter probe returned unparseable version",
				"strategy", strategy.Name,
				"output", strings.TrimSpace(string(output)))
			continue
		}

		if majorMinor != spec.Version {
			r.log.Debug("interpreter version mismatch",
				"strategy", strategy.Name,
				"reported", reported,
				"required", spec.Version)
			continue
		}

		r.log.Info("resolved interpreter",
			"strategy", strategy.Name,
			"command", strategy.Command,
			"version", reported)
		return ResolvedInterpreter{
			Command: strategy.Command,
			Args:    strategy.Args,
			Version: reported,
		}, nil
	}

	return ResolvedInterpreter{}, fmt.Errorf("%w: Python %s is required (probed %d strategies)",
		ErrInterpreterNotFound, spec.Version, len(spec.Strategies))
}

// parsePythonVersion extracts the full version and the major.minor prefix
// from `python --version` output. Some Python builds print the version to
// stderr; callers pass whatever the probe captured.
func parsePythonVersion(output string) (full string, majorMinor string, ok bool) {
	m := pythonVersionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", "", false
	}
	majorMinor = m[1] + "." + m[2]
	full = majorMinor
	if m[3] != "" {
		full = majorMinor + "." + m[3]
	}
	return full, majorMinor, true
}
