// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// WindowsPortInspector implements PortInspector via netstat and taskkill.
//
// # Description
//
// Parses `netstat -ano` for LISTENING entries on the port and terminates
// owners with `taskkill /F /PID`. The same PID can appear once per bound
// address (IPv4 and IPv6); callers deduplicate.
type WindowsPortInspector struct {
	proc ProcessManager
}

// NewPortInspector returns the platform inspector for Windows.
func NewPortInspector(proc ProcessManager) PortInspector {
	return &WindowsPortInspector{proc: proc}
}

// ListOwners returns PIDs of processes listening on the TCP port.
func (i *WindowsPortInspector) ListOwners(ctx context.Context, port int) ([]int, error) {
	output, err := i.proc.Run(ctx, "", "netstat", "-ano")
	if err != nil {
		return nil, fmt.Errorf("netstat failed: %w", err)
	}
	return parseNetstatListeners(string(output), port)
}

// parseNetstatListeners extracts listener PIDs for a port from netstat -ano
// output. Expected row shape:
//
//	TCP    0.0.0.0:8000    0.0.0.0:0    LISTENING    12345
func parseNetstatListeners(output string, port int) ([]int, error) {
	suffix := ":" + strconv.Itoa(port)
	var pids []int
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "TCP" {
			continue
		}
		if !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		if !strings.EqualFold(fields[3], "LISTENING") {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, fmt.Errorf("unexpected netstat PID column %q: %w", fields[4], err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Terminate kills the process with taskkill /F.
func (i *WindowsPortInspector) Terminate(ctx context.Context, pid int) error {
	if _, err := i.proc.Run(ctx, "", "taskkill", "/F", "/PID", strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("taskkill /F /PID %d: %w", pid, err)
	}
	return nil
}

var _ PortInspector = (*WindowsPortInspector)(nil)
