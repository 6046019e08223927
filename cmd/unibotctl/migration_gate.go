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

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// MigrationGate invokes the external schema-migration tool.
//
// # Description
//
// Runs `python -m alembic upgrade head` inside the environment. Migration
// state lives entirely in alembic and the target database; this component
// only inspects the exit code.
//
// Unlike the rest of the pipeline, a migration failure is non-fatal. An
// absent or not-yet-created database is an expected first-run condition,
// so the pipeline warns and continues instead of aborting.
type MigrationGate struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewMigrationGate creates a gate using the given process manager.
func NewMigrationGate(proc ProcessManager, log *logging.Logger) *MigrationGate {
	if log == nil {
		log = logging.Default()
	}
	return &MigrationGate{proc: proc, log: log}
}

// UpgradeHead applies all pending migrations.
//
// The returned error is a RecoverableWarning by pipeline policy: callers
// record it and continue.
func (g *MigrationGate) UpgradeHead(ctx context.Context, desc EnvironmentDescriptor) error {
	python := VenvPython(desc.Root)
	g.log.Info("applying database migrations")
	if _, err := g.proc.Run(ctx, desc.ProjectRoot, python, "-m", "alembic", "upgrade", "head"); err != nil {
		return fmt.Errorf("alembic upgrade head failed: %w", err)
	}
	return nil
}
