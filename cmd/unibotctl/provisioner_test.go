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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

func TestPipeline_Execute_AllStepsSucceed(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{}, testLogger())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		pipeline.AddStep(ProvisioningStep{
			Name: name,
			Run: func(ctx context.Context) error {
				order = append(order, name)
				return nil
			},
		})
	}

	report, err := pipeline.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if !report.Succeeded() {
		t.Error("report should indicate success")
	}
	if len(order) != 3 {
		t.Errorf("executed %d steps, want 3", len(order))
	}
	for i, name := range []string{"first", "second", "third"} {
		if order[i] != name {
			t.Errorf("step %d ran %q, want %q", i, order[i], name)
		}
	}
}

func TestPipeline_Execute_FatalFailureSkipsRemaining(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{}, testLogger())

	ran := map[string]bool{}
	pipeline.AddStep(ProvisioningStep{
		Name: "resolve interpreter",
		Run:  func(ctx context.Context) error { ran["resolve"] = true; return nil },
	})
	pipeline.AddStep(ProvisioningStep{
		Name:  "install requirements",
		Fatal: true,
		Run: func(ctx context.Context) error {
			ran["install"] = true
			return errors.New("pip exited 1")
		},
	})
	pipeline.AddStep(ProvisioningStep{
		Name: "apply migrations",
		Run:  func(ctx context.Context) error { ran["migrate"] = true; return nil },
	})

	report, err := pipeline.Execute(context.Background())
	if err == nil {
		t.Fatal("Execute() should return an error after a fatal failure")
	}
	if report.Succeeded() {
		t.Error("report should not indicate success")
	}
	if report.FailedStep != "install requirements" {
		t.Errorf("FailedStep = %q, want 'install requirements'", report.FailedStep)
	}
	if ran["migrate"] {
		t.Error("steps after a fatal failure must not run")
	}

	last := report.Results[len(report.Results)-1]
	if last.Status != StepSkipped {
		t.Errorf("trailing step status = %v, want StepSkipped", last.Status)
	}
	if last.Reason != "earlier fatal failure" {
		t.Errorf("trailing step reason = %q", last.Reason)
	}
}

func TestPipeline_Execute_WarningContinues(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{}, testLogger())

	migrateRan := false
	pipeline.AddStep(ProvisioningStep{
		Name: "upgrade pip",
		Run:  func(ctx context.Context) error { return errors.New("network hiccup") },
	})
	pipeline.AddStep(ProvisioningStep{
		Name: "apply migrations",
		Run:  func(ctx context.Context) error { migrateRan = true; return nil },
	})

	report, err := pipeline.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() returned error for a non-fatal failure: %v", err)
	}
	if !report.Succeeded() {
		t.Error("warnings must not fail the pipeline")
	}
	if !migrateRan {
		t.Error("steps after a warning must still run")
	}

	warnings := report.Warnings()
	if len(warnings) != 1 || warnings[0].Name != "upgrade pip" {
		t.Errorf("Warnings() = %v, want the pip step", warnings)
	}
}

func TestPipeline_Execute_SkipPrecondition(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{}, testLogger())

	ran := false
	pipeline.AddStep(ProvisioningStep{
		Name: "create .env",
		Skip: func(ctx context.Context) string { return ".env already exists" },
		Run:  func(ctx context.Context) error { ran = true; return nil },
	})

	report, err := pipeline.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if ran {
		t.Error("a skipped step must not run")
	}
	if report.Results[0].Status != StepSkipped {
		t.Errorf("status = %v, want StepSkipped", report.Results[0].Status)
	}
	if report.Results[0].Reason != ".env already exists" {
		t.Errorf("reason = %q", report.Results[0].Reason)
	}
}

func TestPipeline_Execute_Callbacks(t *testing.T) {
	var started, done int
	pipeline := NewPipeline(PipelineConfig{
		OnStepStart: func(index, total int, step ProvisioningStep) { started++ },
		OnStepDone:  func(index, total int, step ProvisioningStep, result StepResult) { done++ },
	}, testLogger())

	pipeline.AddStep(ProvisioningStep{
		Name: "one",
		Run:  func(ctx context.Context) error { return nil },
	})
	pipeline.AddStep(ProvisioningStep{
		Name: "two",
		Run:  func(ctx context.Context) error { return nil },
	})

	if _, err := pipeline.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if started != 2 || done != 2 {
		t.Errorf("callbacks: started=%d done=%d, want 2/2", started, done)
	}
}

func TestPipeline_Execute_CancelledContext(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{}, testLogger())

	ran := false
	for _, name := range []string{"first", "second"} {
		pipeline.AddStep(ProvisioningStep{
			Name: name,
			Run:  func(ctx context.Context) error { ran = true; return nil },
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := pipeline.Execute(ctx)
	if err == nil {
		t.Fatal("Execute() should fail on a cancelled context")
	}
	if ran {
		t.Error("no step should run after cancellation")
	}
	if !report.Cancelled {
		t.Error("report should be marked cancelled")
	}
	if report.Succeeded() {
		t.Error("a cancelled run is not a success")
	}
	// Cancellation is not a step failure; no step is blamed.
	if report.FailedStep != "" {
		t.Errorf("FailedStep = %q, want empty on cancellation", report.FailedStep)
	}
	for _, res := range report.Results {
		if res.Status != StepSkipped || res.Reason != "cancelled" {
			t.Errorf("step %s = (%v, %q), want skipped/cancelled", res.Name, res.Status, res.Reason)
		}
	}
}

func TestPipeline_Execute_FatalStepLogsStderr(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Config{Stderr: &buf})
	if err != nil {
		t.Fatal(err)
	}
	pipeline := NewPipeline(PipelineConfig{}, log)

	pipeline.AddStep(ProvisioningStep{
		Name:  "install requirements",
		Fatal: true,
		Run: func(ctx context.Context) error {
			return fmt.Errorf("install failed: %w",
				NewCommandError("pip install", 1, "No matching distribution found", nil))
		},
	})

	if _, err := pipeline.Execute(context.Background()); err == nil {
		t.Fatal("Execute() should fail")
	}
	// The captured stderr surfaces as its own attribute in the log.
	if !strings.Contains(buf.String(), "No matching distribution found") {
		t.Errorf("log should carry the subprocess stderr: %q", buf.String())
	}
}
