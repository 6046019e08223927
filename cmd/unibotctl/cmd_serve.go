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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
)

// runServe frees the service port and runs the service under the source
// watch until interrupted.
func runServe(cmd *cobra.Command, _ []string) {
	cfg := config.Global

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := NewDefaultProcessManager()
	guardian := NewPortGuardian(NewPortInspector(proc), DefaultGracePeriod, appLog)
	launcher := NewServiceLauncher(proc, guardian, appLog)

	printTitle(fmt.Sprintf("Serving %s on %s:%d", cfg.Service.Module, cfg.Service.Host, cfg.Service.Port))
	fmt.Println(render(styleMuted, "watching for source changes, Ctrl-C to stop"))

	err := launcher.Serve(ctx, LaunchSpec{
		ProjectRoot: projectRoot,
		VenvRoot:    resolveProjectPath(projectRoot, cfg.Env.VenvDir),
		Module:      cfg.Service.Module,
		Host:        cfg.Service.Host,
		Port:        cfg.Service.Port,
		WatchDirs:   cfg.Service.WatchDirs,
	})
	if err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}
	fmt.Println("Service stopped.")
}
