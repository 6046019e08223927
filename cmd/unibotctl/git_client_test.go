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

// gitRecorder returns a client whose git invocations are recorded and
// answered with the given stdout.
func gitRecorder(stdout string) (*ExecGitClient, *MockProcessManager) {
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte(stdout), nil
		},
	}
	return NewExecGitClient(mock, "/repo"), mock
}

func TestExecGitClient_HeadContains(t *testing.T) {
	client, mock := gitRecorder(".env\n")
	tracked, err := client.HeadContains(context.Background(), ".env")
	if err != nil {
		t.Fatalf("HeadContains() returned error: %v", err)
	}
	if !tracked {
		t.Error("HeadContains() = false for tracked path")
	}

	call := mock.GetCalls()[0]
	if call.Name != "git" || call.Dir != "/repo" {
		t.Errorf("call = %+v", call)
	}
	want := []string{"ls-tree", "--name-only", "HEAD", "--", ".env"}
	for i := range want {
		if call.Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, call.Args[i], want[i])
		}
	}

	client, _ = gitRecorder("")
	tracked, err = client.HeadContains(context.Background(), ".env")
	if err != nil || tracked {
		t.Errorf("HeadContains() = (%v, %v) for untracked path", tracked, err)
	}
}

func TestExecGitClient_RemoveFromIndex_LeavesWorkingTree(t *testing.T) {
	client, mock := gitRecorder("")
	if err := client.RemoveFromIndex(context.Background(), ".env"); err != nil {
		t.Fatalf("RemoveFromIndex() returned error: %v", err)
	}

	args := mock.GetCalls()[0].Args
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--cached") {
		t.Errorf("rm must be index-only (--cached): %v", args)
	}
	if !strings.Contains(joined, "--ignore-unmatch") {
		t.Errorf("rm must tolerate an absent path: %v", args)
	}
}

func TestExecGitClient_CountRange(t *testing.T) {
	client, mock := gitRecorder("7\n")
	n, err := client.CountRange(context.Background(), "origin/main", "HEAD")
	if err != nil {
		t.Fatalf("CountRange() returned error: %v", err)
	}
	if n != 7 {
		t.Errorf("CountRange() = %d, want 7", n)
	}

	args := mock.GetCalls()[0].Args
	if args[0] != "rev-list" || args[1] != "--count" || args[2] != "origin/main..HEAD" {
		t.Errorf("args = %v", args)
	}
}

func TestExecGitClient_RewriteRange_FilterShape(t *testing.T) {
	client, mock := gitRecorder("")
	if err := client.RewriteRange(context.Background(), "origin/main", ".env"); err != nil {
		t.Fatalf("RewriteRange() returned error: %v", err)
	}

	args := mock.GetCalls()[0].Args
	joined := strings.Join(args, " ")
	if args[0] != "filter-branch" {
		t.Errorf("args = %v", args)
	}
	if !strings.Contains(joined, "--prune-empty") {
		t.Error("rewrite must prune commits left empty by the removal")
	}
	if !strings.Contains(joined, "origin/main..HEAD") {
		t.Error("rewrite must be bounded to the unpushed range")
	}
	// The index filter embeds the quoted path in a shell command.
	foundFilter := false
	for i, arg := range args {
		if arg == "--index-filter" && i+1 < len(args) {
			foundFilter = true
			if !strings.Contains(args[i+1], "'.env'") {
				t.Errorf("index filter should quote the path: %q", args[i+1])
			}
		}
	}
	if !foundFilter {
		t.Error("no --index-filter argument found")
	}
}

func TestExecGitClient_Push_ForceFlag(t *testing.T) {
	client, mock := gitRecorder("")
	if err := client.Push(context.Background(), "origin", "main", false); err != nil {
		t.Fatal(err)
	}
	if err := client.Push(context.Background(), "origin", "main", true); err != nil {
		t.Fatal(err)
	}

	calls := mock.GetCalls()
	if strings.Join(calls[0].Args, " ") != "push origin main" {
		t.Errorf("plain push args = %v", calls[0].Args)
	}
	if strings.Join(calls[1].Args, " ") != "push --force origin main" {
		t.Errorf("force push args = %v", calls[1].Args)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{".env", "'.env'"},
		{"config/secrets.yaml", "'config/secrets.yaml'"},
		{"it's.env", `'it'\''s.env'`},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.input); got != tt.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
