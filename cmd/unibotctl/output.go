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

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings (doctor failures)
	CLIExitError    = 2 // Operation failed
)

// colorEnabled gates ANSI styling; scripted/piped output stays plain.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
)

// render applies a style only when color output is enabled.
func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// printTitle prints a command banner.
func printTitle(title string) {
	fmt.Println(render(styleTitle, title))
}

// printStepStart announces a pipeline step, "[2/8] recreate virtualenv...".
func printStepStart(index, total int, step ProvisioningStep) {
	fmt.Printf("%s %s...\n", render(styleMuted, fmt.Sprintf("[%d/%d]", index+1, total)), step.Name)
}

// printStepDone reports a step outcome.
func printStepDone(index, total int, step ProvisioningStep, result StepResult) {
	switch result.Status {
	case StepOK:
		fmt.Printf("   %s %s\n", render(styleSuccess, "ok"), step.Name)
	case StepWarned:
		fmt.Printf("   %s %s: %v\n", render(styleWarning, "warn"), step.Name, result.Err)
	case StepFailed:
		fmt.Printf("   %s %s: %v\n", render(styleError, "FAIL"), step.Name, result.Err)
		if step.Remedy != "" {
			fmt.Printf("   %s %s\n", render(styleMuted, "remedy:"), step.Remedy)
		}
	case StepSkipped:
		fmt.Printf("   %s %s (%s)\n", render(styleMuted, "skip"), step.Name, result.Reason)
	}
}

// printReport prints the pipeline summary.
func printReport(report *PipelineReport) {
	fmt.Println()
	if report.Cancelled {
		fmt.Println(render(styleWarning, "Provisioning cancelled."))
		return
	}
	if report.Succeeded() {
		fmt.Println(render(styleSuccess, "Provisioning complete."))
		if warnings := report.Warnings(); len(warnings) > 0 {
			fmt.Printf("%s\n", render(styleWarning, fmt.Sprintf("%d step(s) reported warnings:", len(warnings))))
			for _, w := range warnings {
				fmt.Printf("  - %s: %v\n", w.Name, w.Err)
			}
		}
		return
	}
	fmt.Printf("%s failing step: %s\n", render(styleError, "Provisioning FAILED."), report.FailedStep)
}

// printWarning prints a standalone warning line.
func printWarning(format string, args ...any) {
	fmt.Printf("%s %s\n", render(styleWarning, "warning:"), fmt.Sprintf(format, args...))
}

// printError prints an error to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", render(styleError, "error:"), fmt.Sprintf(format, args...))
}
