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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
)

// runDoctor checks the provisioned environment without modifying it and
// reports what a setup run would have to fix. Exits with CLIExitFindings
// when the environment needs attention.
func runDoctor(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	cfg := config.Global
	proc := NewDefaultProcessManager()
	findings := 0

	printTitle("Unibot environment health")

	interp, err := NewInterpreterResolver(proc, appLog).Resolve(ctx, DefaultInterpreterSpec(cfg.Python.Version))
	if err != nil {
		findings++
		fmt.Printf("   %s Python %s not found on this machine\n",
			render(styleError, "FAIL"), cfg.Python.Version)
	} else {
		fmt.Printf("   %s Python %s via %s\n",
			render(styleSuccess, "ok"), interp.Version, interp.Command)
	}

	venvRoot := resolveProjectPath(projectRoot, cfg.Env.VenvDir)
	if _, statErr := os.Stat(VenvPython(venvRoot)); statErr != nil {
		findings++
		fmt.Printf("   %s virtualenv missing at %s (run `unibotctl setup`)\n",
			render(styleError, "FAIL"), venvRoot)
	} else {
		fmt.Printf("   %s virtualenv present at %s\n", render(styleSuccess, "ok"), venvRoot)

		desc := EnvironmentDescriptor{Root: venvRoot, ProjectRoot: projectRoot, Interpreter: interp}
		results, verr := NewInstallVerifier(proc, appLog).VerifyImports(ctx, desc, DefaultImportProbes())
		for _, r := range results {
			switch {
			case r.OK && r.Version != "":
				fmt.Printf("   %s import %s (%s)\n", render(styleSuccess, "ok"), r.Module, r.Version)
			case r.OK:
				fmt.Printf("   %s import %s\n", render(styleSuccess, "ok"), r.Module)
			default:
				fmt.Printf("   %s import %s failed\n", render(styleWarning, "warn"), r.Module)
			}
		}
		if verr != nil {
			findings++
		}
	}

	if EnvFileExists(projectRoot, cfg.Env.EnvFile) {
		fmt.Printf("   %s %s present\n", render(styleSuccess, "ok"), cfg.Env.EnvFile)
	} else {
		findings++
		fmt.Printf("   %s %s missing (copy %s and fill in your tokens)\n",
			render(styleError, "FAIL"), cfg.Env.EnvFile, cfg.Env.EnvTemplate)
	}

	// Port occupancy is informational: serve clears it anyway.
	owners, perr := NewPortInspector(proc).ListOwners(ctx, cfg.Service.Port)
	switch {
	case perr != nil:
		fmt.Printf("   %s could not inspect port %d: %v\n",
			render(styleWarning, "warn"), cfg.Service.Port, perr)
	case len(owners) > 0:
		fmt.Printf("   %s port %d busy (pids %v); `unibotctl serve` will clear it\n",
			render(styleWarning, "warn"), cfg.Service.Port, owners)
	default:
		fmt.Printf("   %s port %d free\n", render(styleSuccess, "ok"), cfg.Service.Port)
	}

	fmt.Println()
	if findings > 0 {
		fmt.Printf("%s\n", render(styleWarning, fmt.Sprintf("%d finding(s); the environment needs attention.", findings)))
		os.Exit(CLIExitFindings)
	}
	fmt.Println(render(styleSuccess, "All checks passed."))
}
