// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// UnixPortInspector implements PortInspector via lsof and kill(2).
//
// # Description
//
// Uses `lsof -t -iTCP:<port> -sTCP:LISTEN` to enumerate listeners and
// SIGKILL for termination. lsof exits 1 when nothing matches, which is a
// normal "port free" outcome, not an error.
type UnixPortInspector struct {
	proc ProcessManager
}

// NewPortInspector returns the platform inspector for Unix-like systems.
func NewPortInspector(proc ProcessManager) PortInspector {
	return &UnixPortInspector{proc: proc}
}

// ListOwners returns PIDs of processes listening on the TCP port.
func (i *UnixPortInspector) ListOwners(ctx context.Context, port int) ([]int, error) {
	output, err := i.proc.Run(ctx, "", "lsof", "-t", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN")
	if err != nil {
		// Exit code 1 with no stderr means no process matched.
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 && !cmdErr.HasStderr() {
			return nil, nil
		}
		return nil, fmt.Errorf("lsof failed: %w", err)
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("unexpected lsof output %q: %w", line, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Terminate sends SIGKILL to the process.
func (i *UnixPortInspector) Terminate(_ context.Context, pid int) error {
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		// Already gone counts as success for a last-writer-wins kill.
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("kill -9 %d: %w", pid, err)
	}
	return nil
}

var _ PortInspector = (*UnixPortInspector)(nil)
