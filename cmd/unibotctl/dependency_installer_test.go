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
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
)

// writeManifest creates a requirements file under dir.
func writeManifest(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("fastapi==0.111.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func installerDescriptor(projectRoot string, manifests ...config.Manifest) EnvironmentDescriptor {
	return EnvironmentDescriptor{
		Root:        filepath.Join(projectRoot, ".venv"),
		ProjectRoot: projectRoot,
		Manifests:   manifests,
	}
}

func TestDependencyInstaller_Install_MissingManifestNoSubprocess(t *testing.T) {
	dir := t.TempDir()
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, d, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}
	installer := NewDependencyInstaller(mock, testLogger())

	err := installer.Install(context.Background(), installerDescriptor(dir),
		config.Manifest{Path: "requirements.txt"})
	if err == nil {
		t.Fatal("Install() should fail for a missing manifest")
	}
	if len(mock.GetCalls()) != 0 {
		t.Error("no subprocess should run when the manifest is missing")
	}
}

func TestDependencyInstaller_InstallAll_InstallsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "requirements.txt")
	writeManifest(t, dir, "requirements-dev.txt")

	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, d, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}
	installer := NewDependencyInstaller(mock, testLogger())

	desc := installerDescriptor(dir,
		config.Manifest{Path: "requirements.txt"},
		config.Manifest{Path: "requirements-dev.txt", Optional: true})

	warnings, err := installer.InstallAll(context.Background(), desc)
	if err != nil {
		t.Fatalf("InstallAll() returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	calls := mock.GetCalls()
	if len(calls) != 2 {
		t.Fatalf("ran %d commands, want 2", len(calls))
	}
	first := calls[0]
	if first.Name != VenvPip(desc.Root) {
		t.Errorf("command = %q, want the venv pip", first.Name)
	}
	if len(first.Args) != 3 || first.Args[0] != "install" || first.Args[1] != "-r" {
		t.Errorf("args = %v, want install -r <path>", first.Args)
	}
	if filepath.Base(first.Args[2]) != "requirements.txt" {
		t.Errorf("first manifest = %q, want requirements.txt", first.Args[2])
	}
	if filepath.Base(calls[1].Args[2]) != "requirements-dev.txt" {
		t.Errorf("second manifest = %q, want requirements-dev.txt", calls[1].Args[2])
	}
}

func TestDependencyInstaller_InstallAll_OptionalFailureWarns(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "requirements.txt")
	// requirements-dev.txt deliberately absent.

	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, d, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}
	installer := NewDependencyInstaller(mock, testLogger())

	desc := installerDescriptor(dir,
		config.Manifest{Path: "requirements.txt"},
		config.Manifest{Path: "requirements-dev.txt", Optional: true})

	warnings, err := installer.InstallAll(context.Background(), desc)
	if err != nil {
		t.Fatalf("an optional manifest failure must not fail the install: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
}

func TestDependencyInstaller_InstallAll_RequiredFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "requirements.txt")
	writeManifest(t, dir, "requirements-dev.txt")

	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, d, name string, args ...string) ([]byte, error) {
			return nil, NewCommandError(name, 1, "ERROR: no matching distribution", nil)
		},
	}
	installer := NewDependencyInstaller(mock, testLogger())

	desc := installerDescriptor(dir,
		config.Manifest{Path: "requirements.txt"},
		config.Manifest{Path: "requirements-dev.txt", Optional: true})

	_, err := installer.InstallAll(context.Background(), desc)
	if err == nil {
		t.Fatal("InstallAll() should fail when a required manifest fails")
	}
	// The optional manifest is never attempted after a required failure.
	if calls := mock.GetCalls(); len(calls) != 1 {
		t.Errorf("ran %d commands, want 1", len(calls))
	}
}
