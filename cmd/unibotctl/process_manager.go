// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package main provides ProcessManager for abstracting external process execution.

Every external tool unibotctl touches (python, pip, alembic, git, lsof,
uvicorn) is invoked through this interface so that provisioning and sanitizer
logic can be unit tested without running real processes.
*/
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ProcessManager handles external process operations.
//
// # Description
//
// Abstracts all interaction with the operating system's process table.
// The production implementation shells out via os/exec; tests install a
// MockProcessManager and script its responses.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// Run blocks until the subprocess exits and honours context cancellation.
// Start returns a handle immediately; cancellation does not kill a started
// process, the caller owns its lifetime through the handle.
type ProcessManager interface {
	// Run executes a command synchronously in dir and returns its stdout.
	//
	// An empty dir inherits the current working directory. On a non-zero
	// exit the returned error is a *CommandError carrying the exit code
	// and captured stderr.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// Start launches a long-running process in dir and returns a handle.
	//
	// The child inherits stdout/stderr so service logs stay visible to
	// the operator. The caller must eventually call Signal/Kill and Wait
	// on the handle to avoid zombies.
	Start(ctx context.Context, dir, name string, args ...string) (ProcessHandle, error)
}

// ProcessHandle controls a process started with ProcessManager.Start.
type ProcessHandle interface {
	// Pid returns the operating system process ID.
	Pid() int

	// Kill forcefully terminates the process.
	Kill() error

	// Wait blocks until the process exits. The error reflects the exit
	// status, matching os/exec.Cmd.Wait semantics.
	Wait() error
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates the production process manager.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command synchronously and returns its stdout.
func (pm *DefaultProcessManager) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		display := name
		if len(args) > 0 {
			display = name + " " + strings.Join(args, " ")
		}
		return stdout.Bytes(), NewCommandError(display, exitCode, stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

// Start launches a background process and returns a handle to it.
func (pm *DefaultProcessManager) Start(ctx context.Context, dir, name string, args ...string) (ProcessHandle, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return &osProcessHandle{cmd: cmd}, nil
}

// osProcessHandle wraps exec.Cmd as a ProcessHandle.
type osProcessHandle struct {
	cmd *exec.Cmd
}

func (h *osProcessHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *osProcessHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *osProcessHandle) Wait() error {
	return h.cmd.Wait()
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it panics.
//
// # Examples
//
//	mock := &MockProcessManager{
//	    RunFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
//	        if name == "python3.11" {
//	            return []byte("Python 3.11.9"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockProcessManager struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// StartFunc is called when Start is invoked
	StartFunc func(ctx context.Context, dir, name string, args ...string) (ProcessHandle, error)

	// Calls records all method invocations for verification
	Calls []ProcessCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ProcessCall records a single method invocation.
type ProcessCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.record("Run", dir, name, args)
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, dir, name, args...)
}

// Start delegates to StartFunc and records the call.
func (m *MockProcessManager) Start(ctx context.Context, dir, name string, args ...string) (ProcessHandle, error) {
	m.record("Start", dir, name, args)
	if m.StartFunc == nil {
		panic("MockProcessManager.StartFunc not set")
	}
	return m.StartFunc(ctx, dir, name, args...)
}

func (m *MockProcessManager) record(method, dir, name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ProcessCall{Method: method, Dir: dir, Name: name, Args: args})
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []ProcessCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Reset clears all recorded calls.
func (m *MockProcessManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// MockProcessHandle is a scriptable ProcessHandle for tests.
type MockProcessHandle struct {
	PidValue int
	KillFunc func() error
	WaitFunc func() error
}

func (h *MockProcessHandle) Pid() int { return h.PidValue }

func (h *MockProcessHandle) Kill() error {
	if h.KillFunc == nil {
		return nil
	}
	return h.KillFunc()
}

func (h *MockProcessHandle) Wait() error {
	if h.WaitFunc == nil {
		return nil
	}
	return h.WaitFunc()
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
	_ ProcessHandle  = (*osProcessHandle)(nil)
	_ ProcessHandle  = (*MockProcessHandle)(nil)
)
