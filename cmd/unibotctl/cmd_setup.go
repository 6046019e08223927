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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
)

// runSetup executes the full provisioning pipeline: resolve interpreter,
// recreate the virtualenv, install manifests, create the env file, apply
// migrations, verify imports.
func runSetup(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	cfg := config.Global
	proc := NewDefaultProcessManager()

	printTitle("Provisioning Unibot at " + projectRoot)

	resolver := NewInterpreterResolver(proc, appLog)
	venv := NewVenvManager(proc, appLog)
	installer := NewDependencyInstaller(proc, appLog)
	gate := NewMigrationGate(proc, appLog)
	verifier := NewInstallVerifier(proc, appLog)

	// desc is populated by the resolve step and shared by every later step.
	var desc EnvironmentDescriptor

	pipeline := NewPipeline(PipelineConfig{
		OnStepStart: printStepStart,
		OnStepDone:  printStepDone,
	}, appLog)

	pipeline.AddStep(ProvisioningStep{
		Name:    "resolve Python " + cfg.Python.Version,
		Fatal:   true,
		Timeout: time.Minute,
		Remedy:  "install Python " + cfg.Python.Version + " and make sure it is reachable from PATH",
		Run: func(ctx context.Context) error {
			interp, err := resolver.Resolve(ctx, DefaultInterpreterSpec(cfg.Python.Version))
			if err != nil {
				return err
			}
			desc = EnvironmentDescriptor{
				Root:        resolveProjectPath(projectRoot, cfg.Env.VenvDir),
				ProjectRoot: projectRoot,
				Interpreter: interp,
				Manifests:   cfg.Env.Manifests,
			}
			return nil
		},
	})

	pipeline.AddStep(ProvisioningStep{
		Name:   "recreate virtualenv " + cfg.Env.VenvDir,
		Fatal:  true,
		Remedy: "check permissions on " + cfg.Env.VenvDir + " and available disk space",
		Run: func(ctx context.Context) error {
			return venv.Recreate(ctx, desc)
		},
	})

	pipeline.AddStep(ProvisioningStep{
		Name: "upgrade pip",
		Run: func(ctx context.Context) error {
			return venv.UpgradePip(ctx, desc)
		},
	})

	for _, manifest := range cfg.Env.Manifests {
		pipeline.AddStep(ProvisioningStep{
			Name:   "install " + manifest.Path,
			Fatal:  !manifest.Optional,
			Remedy: "inspect the pip output above and fix the failing requirement in " + manifest.Path,
			Run: func(ctx context.Context) error {
				return installer.Install(ctx, desc, manifest)
			},
		})
	}

	pipeline.AddStep(ProvisioningStep{
		Name: "create " + cfg.Env.EnvFile + " from " + cfg.Env.EnvTemplate,
		Skip: func(ctx context.Context) string {
			if EnvFileExists(projectRoot, cfg.Env.EnvFile) {
				return cfg.Env.EnvFile + " already exists"
			}
			return ""
		},
		Run: func(ctx context.Context) error {
			return CopyEnvTemplate(projectRoot, cfg.Env.EnvTemplate, cfg.Env.EnvFile)
		},
	})

	pipeline.AddStep(ProvisioningStep{
		Name: "apply database migrations",
		Run: func(ctx context.Context) error {
			return gate.UpgradeHead(ctx, desc)
		},
	})

	pipeline.AddStep(ProvisioningStep{
		Name: "verify package imports",
		Run: func(ctx context.Context) error {
			_, err := verifier.VerifyImports(ctx, desc, DefaultImportProbes())
			return err
		},
	})

	report, err := pipeline.Execute(ctx)
	printReport(report)
	if err != nil {
		os.Exit(CLIExitError)
	}
}

// runEnvRecreate rebuilds the virtualenv without installing dependencies.
func runEnvRecreate(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	cfg := config.Global
	proc := NewDefaultProcessManager()

	interp, err := NewInterpreterResolver(proc, appLog).Resolve(ctx, DefaultInterpreterSpec(cfg.Python.Version))
	if err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}

	desc := EnvironmentDescriptor{
		Root:        resolveProjectPath(projectRoot, cfg.Env.VenvDir),
		ProjectRoot: projectRoot,
		Interpreter: interp,
	}
	if err := NewVenvManager(proc, appLog).Recreate(ctx, desc); err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}
	fmt.Printf("%s virtualenv recreated at %s (Python %s)\n",
		render(styleSuccess, "ok"), desc.Root, interp.Version)
}

// runEnvInstall installs the configured manifests into the existing
// virtualenv. Unlike setup it never rebuilds the environment, so it is the
// fast path after editing a requirements file.
func runEnvInstall(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	cfg := config.Global
	proc := NewDefaultProcessManager()

	desc := EnvironmentDescriptor{
		Root:        resolveProjectPath(projectRoot, cfg.Env.VenvDir),
		ProjectRoot: projectRoot,
		Manifests:   cfg.Env.Manifests,
	}
	if _, err := os.Stat(VenvPython(desc.Root)); err != nil {
		printError("no virtualenv at %s; run 'unibotctl env recreate' first", desc.Root)
		os.Exit(CLIExitError)
	}

	warnings, err := NewDependencyInstaller(proc, appLog).InstallAll(ctx, desc)
	for _, w := range warnings {
		printWarning("%s", w)
	}
	if err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}
	fmt.Printf("%s %d manifest(s) installed into %s\n",
		render(styleSuccess, "ok"), len(cfg.Env.Manifests), desc.Root)
}
