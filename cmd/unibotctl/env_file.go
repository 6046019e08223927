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
	"fmt"
	"os"
	"path/filepath"
)

// EnvFileExists reports whether the operator-edited env file is present.
func EnvFileExists(projectRoot, envFile string) bool {
	_, err := os.Stat(resolveProjectPath(projectRoot, envFile))
	return err == nil
}

// CopyEnvTemplate creates the env file from its committed template.
//
// # Description
//
// The env file holds operator-edited configuration (bot token, API keys).
// unibotctl copies the template byte-for-byte and never parses either
// file; editing is the operator's job.
//
// A missing template is a recoverable condition: the operator can create
// the env file by hand. An existing env file is never overwritten.
func CopyEnvTemplate(projectRoot, template, envFile string) error {
	dst := resolveProjectPath(projectRoot, envFile)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	src := resolveProjectPath(projectRoot, template)
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("env template %s not found: %w", template, err)
	}

	// 0600: the copy is about to receive secrets.
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envFile, err)
	}
	return nil
}

// resolveProjectPath joins a possibly-relative path with the project root.
func resolveProjectPath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}
