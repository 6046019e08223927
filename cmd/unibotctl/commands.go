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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	projectRoot string
	logLevel    string
	assumeYes   bool

	rootCmd = &cobra.Command{
		Use:   "unibotctl",
		Short: "A cli to provision and operate a local Unibot deployment",
		Long: `unibotctl automates the recurring operator tasks of a local Unibot
				checkout: reproducible environment provisioning (interpreter pinning,
				virtualenv recreation, dependency install, schema migration) and
				cleaning an accidentally committed secrets file out of git history.`,
	}

	// --- Provisioning ---
	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Run the full provisioning pipeline",
		Run:   runSetup, // Defined in cmd_setup.go
	}

	envCmd = &cobra.Command{
		Use:   "env",
		Short: "Manage the isolated dependency environment",
	}
	envRecreateCmd = &cobra.Command{
		Use:   "recreate",
		Short: "Destroy and rebuild the virtualenv (no dependency install)",
		Run:   runEnvRecreate, // Defined in cmd_setup.go
	}
	envInstallCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the dependency manifests into the existing virtualenv",
		Run:   runEnvInstall, // Defined in cmd_setup.go
	}

	// --- Service ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Free the service port and run the service under a source watch",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- History Sanitizer ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Remove the committed secrets file from git history",
	}
	historyShallowCmd = &cobra.Command{
		Use:   "shallow",
		Short: "Amend the last commit to drop the secrets file, then push",
		Run:   runHistoryShallow, // Defined in cmd_history.go
	}
	historyDeepCmd = &cobra.Command{
		Use:   "deep",
		Short: "DANGER: Rewrite all unpushed commits and force push",
		Run:   runHistoryDeep, // Defined in cmd_history.go
	}

	// --- Diagnostics ---
	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Verify the provisioned environment and report its health",
		Run:   runDoctor, // Defined in cmd_doctor.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "C", ".",
		"Path to the Unibot project checkout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log verbosity: debug, info, warn, error")

	rootCmd.AddCommand(setupCmd)

	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envRecreateCmd)
	envCmd.AddCommand(envInstallCmd)

	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShallowCmd)
	historyCmd.AddCommand(historyDeepCmd)
	historyDeepCmd.Flags().BoolVar(&assumeYes, "yes", false,
		"Skip the force-push confirmation prompt (for scripted use)")

	rootCmd.AddCommand(doctorCmd)
}
