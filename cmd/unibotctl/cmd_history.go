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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
)

// newSanitizer builds the sanitizer over the configured repository.
func newSanitizer() *HistorySanitizer {
	proc := NewDefaultProcessManager()
	git := NewExecGitClient(proc, projectRoot)
	return NewHistorySanitizer(git, config.Global.Git, appLog)
}

// runHistoryShallow removes the secrets path from the last commit and
// pushes the result.
func runHistoryShallow(cmd *cobra.Command, _ []string) {
	cfg := config.Global.Git
	printTitle("Cleaning " + cfg.SecretsPath + " from the last commit")

	result, err := newSanitizer().Shallow(cmd.Context())
	if err != nil {
		printError("%v", err)
		os.Exit(CLIExitError)
	}

	if result.NothingToClean {
		fmt.Printf("Last commit does not contain %s; pushed as-is.\n", cfg.SecretsPath)
	} else {
		fmt.Printf("%s removed %s from the last commit and pushed to %s/%s\n",
			render(styleSuccess, "ok"), cfg.SecretsPath, cfg.Remote, cfg.Branch)
	}
	if result.NewHead != "" {
		fmt.Println(render(styleMuted, "HEAD is now "+result.NewHead))
	}
}

// runHistoryDeep rewrites every unpushed commit with the secrets path
// removed and force-pushes, behind a confirmation gate.
func runHistoryDeep(cmd *cobra.Command, _ []string) {
	cfg := config.Global.Git
	printTitle("Rewriting unpushed history to drop " + cfg.SecretsPath)

	confirm := func(commits int) bool {
		if assumeYes {
			return true
		}
		printWarning("about to rewrite %d commit(s) and force push to %s/%s",
			commits, cfg.Remote, cfg.Branch)
		fmt.Print("Collaborators who fetched the old history will need to reset. Continue? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}

	result, err := newSanitizer().Deep(cmd.Context(), confirm)
	if err != nil {
		if errors.Is(err, ErrConfirmationDeclined) {
			fmt.Println("Aborted; no history was touched.")
			return
		}
		printError("%v", err)
		os.Exit(CLIExitError)
	}

	if result.NothingToClean {
		fmt.Printf("No local commits ahead of %s/%s; nothing to rewrite.\n", cfg.Remote, cfg.Branch)
		return
	}

	pruned := result.CommitsBefore - result.CommitsAfter
	fmt.Printf("%s rewrote %d commit(s)", render(styleSuccess, "ok"), result.CommitsBefore)
	if pruned > 0 {
		fmt.Printf(" (%d pruned as empty)", pruned)
	}
	fmt.Printf(" and force pushed to %s/%s\n", cfg.Remote, cfg.Branch)
	if result.NewHead != "" {
		fmt.Println(render(styleMuted, "HEAD is now "+result.NewHead))
	}
}
