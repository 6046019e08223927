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
	"strconv"
	"strings"
	"sync"
)

// GitClient abstracts the version-control operations the history
// sanitizer needs. The git binary is the only implementation; the
// sanitizer never manipulates repository internals itself.
//
// All methods report distinguishable success/failure via the error; a
// non-zero git exit surfaces as a *CommandError in the chain.
type GitClient interface {
	// Fetch updates the remote tracking refs.
	Fetch(ctx context.Context, remote string) error

	// RevParse resolves a ref to a commit hash.
	RevParse(ctx context.Context, ref string) (string, error)

	// HeadContains reports whether HEAD's tree tracks the path.
	HeadContains(ctx context.Context, path string) (bool, error)

	// RemoveFromIndex removes the path from the index only; the working
	// tree copy is left in place.
	RemoveFromIndex(ctx context.Context, path string) error

	// AmendLastCommit rewrites the last commit with the current index,
	// preserving its message.
	AmendLastCommit(ctx context.Context) error

	// CountRange returns the number of commits in lo..hi.
	CountRange(ctx context.Context, lo, hi string) (int, error)

	// RewriteRange rewrites every commit in upstream..HEAD, removing the
	// path from each tree. Commits left empty by the removal are pruned.
	// Authorship and timestamps of surviving commits are preserved; only
	// trees and the resulting hashes change.
	RewriteRange(ctx context.Context, upstream, path string) error

	// Push updates the remote branch, forcibly when force is set.
	Push(ctx context.Context, remote, branch string, force bool) error
}

// ExecGitClient implements GitClient by shelling out to git.
type ExecGitClient struct {
	proc    ProcessManager
	repoDir string
}

// NewExecGitClient creates a client operating on the repository at repoDir.
func NewExecGitClient(proc ProcessManager, repoDir string) *ExecGitClient {
	return &ExecGitClient{proc: proc, repoDir: repoDir}
}

func (g *ExecGitClient) git(ctx context.Context, args ...string) ([]byte, error) {
	return g.proc.Run(ctx, g.repoDir, "git", args...)
}

// Fetch updates the remote tracking refs.
func (g *ExecGitClient) Fetch(ctx context.Context, remote string) error {
	if _, err := g.git(ctx, "fetch", remote); err != nil {
		return fmt.Errorf("git fetch %s: %w", remote, err)
	}
	return nil
}

// RevParse resolves a ref to a commit hash.
func (g *ExecGitClient) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := g.git(ctx, "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("git rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadContains reports whether HEAD's tree tracks the path.
func (g *ExecGitClient) HeadContains(ctx context.Context, path string) (bool, error) {
	out, err := g.git(ctx, "ls-tree", "--name-only", "HEAD", "--", path)
	if err != nil {
		return false, fmt.Errorf("git ls-tree HEAD -- %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// RemoveFromIndex removes the path from the index only.
func (g *ExecGitClient) RemoveFromIndex(ctx context.Context, path string) error {
	if _, err := g.git(ctx, "rm", "--cached", "--ignore-unmatch", "--", path); err != nil {
		return fmt.Errorf("git rm --cached %s: %w", path, err)
	}
	return nil
}

// AmendLastCommit rewrites the last commit with the current index.
func (g *ExecGitClient) AmendLastCommit(ctx context.Context) error {
	if _, err := g.git(ctx, "commit", "--amend", "--no-edit"); err != nil {
		return fmt.Errorf("git commit --amend: %w", err)
	}
	return nil
}

// CountRange returns the number of commits in lo..hi.
func (g *ExecGitClient) CountRange(ctx context.Context, lo, hi string) (int, error) {
	out, err := g.git(ctx, "rev-list", "--count", lo+".."+hi)
	if err != nil {
		return 0, fmt.Errorf("git rev-list --count %s..%s: %w", lo, hi, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", string(out), err)
	}
	return n, nil
}

// RewriteRange rewrites every commit in upstream..HEAD with the path
// removed from its tree.
//
// Uses filter-branch with an index filter: trees are rebuilt without the
// path while author, committer and message metadata pass through
// untouched. --prune-empty drops commits whose only content was the
// removed path.
func (g *ExecGitClient) RewriteRange(ctx context.Context, upstream, path string) error {
	indexFilter := fmt.Sprintf("git rm --cached --ignore-unmatch -- %s", shellQuote(path))
	_, err := g.git(ctx, "filter-branch", "--force",
		"--index-filter", indexFilter,
		"--prune-empty",
		"--", upstream+"..HEAD")
	if err != nil {
		return fmt.Errorf("git filter-branch over %s..HEAD: %w", upstream, err)
	}
	return nil
}

// Push updates the remote branch.
func (g *ExecGitClient) Push(ctx context.Context, remote, branch string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, branch)
	if _, err := g.git(ctx, args...); err != nil {
		return fmt.Errorf("git push %s %s (force=%t): %w", remote, branch, force, err)
	}
	return nil
}

// shellQuote single-quotes a path for embedding in the index filter,
// which git runs through sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockGitClient is a test double for GitClient.
//
// Configure by setting function fields; unset fields succeed with zero
// values so tests only script the calls they care about. Every invocation
// is recorded in Calls.
type MockGitClient struct {
	FetchFunc           func(ctx context.Context, remote string) error
	RevParseFunc        func(ctx context.Context, ref string) (string, error)
	HeadContainsFunc    func(ctx context.Context, path string) (bool, error)
	RemoveFromIndexFunc func(ctx context.Context, path string) error
	AmendLastCommitFunc func(ctx context.Context) error
	CountRangeFunc      func(ctx context.Context, lo, hi string) (int, error)
	RewriteRangeFunc    func(ctx context.Context, upstream, path string) error
	PushFunc            func(ctx context.Context, remote, branch string, force bool) error

	Calls []string
	mu    sync.Mutex
}

func (m *MockGitClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// GetCalls returns a copy of the recorded call names.
func (m *MockGitClient) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *MockGitClient) Fetch(ctx context.Context, remote string) error {
	m.record("Fetch")
	if m.FetchFunc == nil {
		return nil
	}
	return m.FetchFunc(ctx, remote)
}

func (m *MockGitClient) RevParse(ctx context.Context, ref string) (string, error) {
	m.record("RevParse")
	if m.RevParseFunc == nil {
		return "deadbeef", nil
	}
	return m.RevParseFunc(ctx, ref)
}

func (m *MockGitClient) HeadContains(ctx context.Context, path string) (bool, error) {
	m.record("HeadContains")
	if m.HeadContainsFunc == nil {
		return false, nil
	}
	return m.HeadContainsFunc(ctx, path)
}

func (m *MockGitClient) RemoveFromIndex(ctx context.Context, path string) error {
	m.record("RemoveFromIndex")
	if m.RemoveFromIndexFunc == nil {
		return nil
	}
	return m.RemoveFromIndexFunc(ctx, path)
}

func (m *MockGitClient) AmendLastCommit(ctx context.Context) error {
	m.record("AmendLastCommit")
	if m.AmendLastCommitFunc == nil {
		return nil
	}
	return m.AmendLastCommitFunc(ctx)
}

func (m *MockGitClient) CountRange(ctx context.Context, lo, hi string) (int, error) {
	m.record("CountRange")
	if m.CountRangeFunc == nil {
		return 0, nil
	}
	return m.CountRangeFunc(ctx, lo, hi)
}

func (m *MockGitClient) RewriteRange(ctx context.Context, upstream, path string) error {
	m.record("RewriteRange")
	if m.RewriteRangeFunc == nil {
		return nil
	}
	return m.RewriteRangeFunc(ctx, upstream, path)
}

func (m *MockGitClient) Push(ctx context.Context, remote, branch string, force bool) error {
	if force {
		m.record("Push(force)")
	} else {
		m.record("Push")
	}
	if m.PushFunc == nil {
		return nil
	}
	return m.PushFunc(ctx, remote, branch, force)
}

// Compile-time interface compliance check.
var (
	_ GitClient = (*ExecGitClient)(nil)
	_ GitClient = (*MockGitClient)(nil)
)
