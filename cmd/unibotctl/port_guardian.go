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
	"sort"
	"time"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// PortInspector abstracts the OS-specific process table operations the
// guardian needs: who owns a listening port, and forceful termination.
//
// One implementation exists per target operating system; see
// port_inspector_unix.go and port_inspector_windows.go.
type PortInspector interface {
	// ListOwners returns the PIDs of processes listening on the TCP
	// port. An unoccupied port yields an empty slice, not an error.
	ListOwners(ctx context.Context, port int) ([]int, error)

	// Terminate forcefully kills the process. No graceful shutdown
	// signal is attempted; this is a local-development redeploy tool.
	Terminate(ctx context.Context, pid int) error
}

// DefaultGracePeriod is how long the guardian waits after killing port
// owners for the OS to release the socket. A fixed sleep, not a polling
// loop: acceptable for a local, low-latency environment.
const DefaultGracePeriod = 1500 * time.Millisecond

// PortGuardian frees a fixed port before the service launcher binds it.
//
// # Description
//
// Enumerates every process bound to the port, terminates each one
// (last-writer-wins, no negotiation), then sleeps a short grace period so
// the OS can release the socket. Bindings are recomputed on every
// invocation and never cached.
//
// Appropriate only for a local redeploy loop, never for production.
type PortGuardian struct {
	inspector PortInspector
	grace     time.Duration
	log       *logging.Logger
}

// NewPortGuardian creates a guardian over the given inspector.
// A non-positive grace duration selects DefaultGracePeriod.
func NewPortGuardian(inspector PortInspector, grace time.Duration, log *logging.Logger) *PortGuardian {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if log == nil {
		log = logging.Default()
	}
	return &PortGuardian{inspector: inspector, grace: grace, log: log}
}

// Free terminates every process bound to the port.
//
// # Outputs
//
//   - []int: PIDs that were terminated, deduplicated and sorted
//   - error: enumeration failure, or the first termination failure
//
// With no bound process, Free returns immediately with no side effects
// and no grace sleep. Multiple processes may share the port during a
// transition; all are terminated, deduplicated by PID.
func (g *PortGuardian) Free(ctx context.Context, port int) ([]int, error) {
	owners, err := g.inspector.ListOwners(ctx, port)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate port %d owners: %w", port, err)
	}
	if len(owners) == 0 {
		g.log.Debug("port already free", "port", port)
		return nil, nil
	}

	pids := dedupePids(owners)
	for _, pid := range pids {
		g.log.Info("terminating port owner", "port", port, "pid", pid)
		if err := g.inspector.Terminate(ctx, pid); err != nil {
			return nil, fmt.Errorf("failed to terminate pid %d on port %d: %w", pid, port, err)
		}
	}

	// Give the OS time to release the socket before the launcher binds.
	select {
	case <-time.After(g.grace):
	case <-ctx.Done():
		return pids, ctx.Err()
	}
	return pids, nil
}

// dedupePids returns the unique PIDs in ascending order.
func dedupePids(pids []int) []int {
	seen := make(map[int]struct{}, len(pids))
	out := make([]int, 0, len(pids))
	for _, pid := range pids {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

// MockPortInspector is a test double for PortInspector.
type MockPortInspector struct {
	ListOwnersFunc func(ctx context.Context, port int) ([]int, error)
	TerminateFunc  func(ctx context.Context, pid int) error

	// Terminated records every PID passed to Terminate.
	Terminated []int
}

func (m *MockPortInspector) ListOwners(ctx context.Context, port int) ([]int, error) {
	if m.ListOwnersFunc == nil {
		panic("MockPortInspector.ListOwnersFunc not set")
	}
	return m.ListOwnersFunc(ctx, port)
}

func (m *MockPortInspector) Terminate(ctx context.Context, pid int) error {
	m.Terminated = append(m.Terminated, pid)
	if m.TerminateFunc == nil {
		return nil
	}
	return m.TerminateFunc(ctx, pid)
}

var _ PortInspector = (*MockPortInspector)(nil)
