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
	"strings"
	"testing"
)

func TestMigrationGate_UpgradeHead_CommandLine(t *testing.T) {
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	}
	gate := NewMigrationGate(mock, testLogger())

	desc := EnvironmentDescriptor{Root: "/proj/.venv", ProjectRoot: "/proj"}
	if err := gate.UpgradeHead(context.Background(), desc); err != nil {
		t.Fatalf("UpgradeHead() returned error: %v", err)
	}

	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("ran %d commands, want 1", len(calls))
	}
	if calls[0].Name != VenvPython(desc.Root) {
		t.Errorf("alembic must run through the venv python, got %q", calls[0].Name)
	}
	if calls[0].Dir != "/proj" {
		t.Errorf("alembic must run at the project root, got %q", calls[0].Dir)
	}
	want := []string{"-m", "alembic", "upgrade", "head"}
	for i := range want {
		if calls[0].Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, calls[0].Args[i], want[i])
		}
	}
}

func TestMigrationGate_UpgradeHead_FailureWraps(t *testing.T) {
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, NewCommandError(name, 1, "sqlalchemy.exc.OperationalError", nil)
		},
	}
	gate := NewMigrationGate(mock, testLogger())

	err := gate.UpgradeHead(context.Background(),
		EnvironmentDescriptor{Root: "/proj/.venv", ProjectRoot: "/proj"})
	if err == nil {
		t.Fatal("UpgradeHead() should surface alembic failures")
	}
	if !strings.Contains(err.Error(), "alembic upgrade head failed") {
		t.Errorf("error = %v", err)
	}
}
