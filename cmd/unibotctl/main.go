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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// appLog is the process-wide logger; initApp replaces it once the
// persistent flags have been parsed.
var appLog = logging.Default()

func main() {
	rootCmd.PersistentPreRunE = initApp
	defer func() { _ = appLog.Close() }()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}
}

// initApp resolves the project root, loads the configuration and builds
// the logger honouring --log-level. Runs before every subcommand.
func initApp(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return err
	}
	projectRoot = abs

	if err := config.Load(projectRoot); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		Service: cmd.Name(),
	})
	if err != nil {
		return err
	}
	appLog = logger
	return nil
}
