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
	"os"
	"path/filepath"
	"testing"
)

func TestCopyEnvTemplate_CreatesFromTemplate(t *testing.T) {
	dir := t.TempDir()
	template := "BOT_TOKEN=\nDATABASE_URL=sqlite:///unibot.db\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.example"), []byte(template), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CopyEnvTemplate(dir, ".env.example", ".env"); err != nil {
		t.Fatalf("CopyEnvTemplate() returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("env file not created: %v", err)
	}
	if string(data) != template {
		t.Error("env file should be a byte-for-byte copy of the template")
	}
}

func TestCopyEnvTemplate_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.example"), []byte("BOT_TOKEN=\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Operator already filled in their token.
	existing := "BOT_TOKEN=123456:real-token\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	if err := CopyEnvTemplate(dir, ".env.example", ".env"); err != nil {
		t.Fatalf("CopyEnvTemplate() returned error: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, ".env"))
	if string(data) != existing {
		t.Error("an existing env file must never be overwritten")
	}
}

func TestCopyEnvTemplate_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	err := CopyEnvTemplate(dir, ".env.example", ".env")
	if err == nil {
		t.Fatal("CopyEnvTemplate() should fail when the template is missing")
	}
	if _, statErr := os.Stat(filepath.Join(dir, ".env")); !os.IsNotExist(statErr) {
		t.Error("no env file should be created when the template is missing")
	}
}

func TestEnvFileExists(t *testing.T) {
	dir := t.TempDir()
	if EnvFileExists(dir, ".env") {
		t.Error("EnvFileExists() = true for a missing file")
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("X=1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !EnvFileExists(dir, ".env") {
		t.Error("EnvFileExists() = false for a present file")
	}
}

func TestResolveProjectPath(t *testing.T) {
	abs := filepath.FromSlash("/etc/unibot/.env")
	if got := resolveProjectPath("/proj", abs); got != abs {
		t.Errorf("absolute paths must pass through, got %q", got)
	}
	want := filepath.Join("/proj", ".env")
	if got := resolveProjectPath("/proj", ".env"); got != want {
		t.Errorf("resolveProjectPath = %q, want %q", got, want)
	}
}
