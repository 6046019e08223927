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

	"github.com/AleutianAI/unibotctl/cmd/unibotctl/config"
	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// SanitizeStage identifies where in the sanitizer state machine a failure
// occurred. Stages advance strictly in order within a mode:
//
//	shallow: fetch → clean-index → amend → push
//	deep:    fetch → rewrite-range → push
type SanitizeStage string

const (
	StageFetch      SanitizeStage = "fetch"
	StageCleanIndex SanitizeStage = "clean-index"
	StageAmend      SanitizeStage = "amend"
	StageRewrite    SanitizeStage = "rewrite-range"
	StagePush       SanitizeStage = "push"
)

// SanitizeError reports a sanitizer failure with the stage it occurred in.
//
// Any git failure halts the sanitizer immediately; no partial retry is
// attempted because retrying a half-rewritten history automatically is
// unsafe. The operator must re-verify repository state before retrying.
type SanitizeError struct {
	Stage SanitizeStage
	Err   error
}

func (e *SanitizeError) Error() string {
	return fmt.Sprintf("history sanitizer failed at stage %s: %v", e.Stage, e.Err)
}

func (e *SanitizeError) Unwrap() error {
	return e.Err
}

// ErrConfirmationDeclined is returned when the operator refuses the
// force-push confirmation gate in deep mode.
var ErrConfirmationDeclined = fmt.Errorf("destructive rewrite declined by operator")

// SanitizeResult summarizes a completed sanitizer run.
type SanitizeResult struct {
	// NothingToClean is set in shallow mode when the last commit already
	// lacked the target path, and in deep mode when the range contained
	// no commits to rewrite.
	NothingToClean bool

	// CommitsBefore and CommitsAfter count the upstream..HEAD range
	// around a deep rewrite. After can be lower: commits left empty by
	// the removal are pruned.
	CommitsBefore int
	CommitsAfter  int

	// Pushed reports whether a push was performed.
	Pushed bool

	// NewHead is the post-run HEAD hash.
	NewHead string
}

// HistorySanitizer removes an accidentally committed secrets file from
// version-control history.
//
// # Description
//
// Two modes, both requiring a fresh fetch of the upstream ref as a hard
// precondition: the rewrite range is computed relative to the upstream,
// and operating on a stale ref risks rewriting commits that are no longer
// the actual delta to push.
//
//   - Shallow: the path is removed from the index and the last commit is
//     amended (message preserved); everything older stays untouched. The
//     push is a normal, non-forced push.
//   - Deep: every commit in upstream..HEAD is rewritten with the path
//     removed from its tree, then the range is force-pushed. Force-pushing
//     is destructive to collaborators who already fetched the old history,
//     so it sits behind an explicit confirmation gate.
//
// The sanitizer never runs as part of provisioning; it is a standalone
// operator-invoked flow.
type HistorySanitizer struct {
	git GitClient
	cfg config.GitConfig
	log *logging.Logger
}

// NewHistorySanitizer creates a sanitizer for the configured repository.
func NewHistorySanitizer(git GitClient, cfg config.GitConfig, log *logging.Logger) *HistorySanitizer {
	if log == nil {
		log = logging.Default()
	}
	return &HistorySanitizer{git: git, cfg: cfg, log: log}
}

// upstream returns the remote tracking ref the range is computed against.
func (s *HistorySanitizer) upstream() string {
	return s.cfg.Remote + "/" + s.cfg.Branch
}

// Shallow removes the secrets path from the most recent commit only.
//
// # Description
//
// State machine: fetch → clean-index → amend → push. When HEAD's tree
// already lacks the path the clean and amend stages are skipped and the
// result reports NothingToClean; the push still proceeds so any local
// commits reach the remote. The sanitizer stages nothing beyond removing
// the target path; anything the operator had already staged is amended
// as git leaves it.
func (s *HistorySanitizer) Shallow(ctx context.Context) (*SanitizeResult, error) {
	result := &SanitizeResult{}

	s.log.Info("fetching upstream", "remote", s.cfg.Remote)
	if err := s.git.Fetch(ctx, s.cfg.Remote); err != nil {
		return nil, &SanitizeError{Stage: StageFetch, Err: err}
	}

	tracked, err := s.git.HeadContains(ctx, s.cfg.SecretsPath)
	if err != nil {
		return nil, &SanitizeError{Stage: StageCleanIndex, Err: err}
	}

	if !tracked {
		s.log.Info("last commit does not contain the path, nothing to clean",
			"path", s.cfg.SecretsPath)
		result.NothingToClean = true
	} else {
		s.log.Info("removing path from index", "path", s.cfg.SecretsPath)
		if err := s.git.RemoveFromIndex(ctx, s.cfg.SecretsPath); err != nil {
			return nil, &SanitizeError{Stage: StageCleanIndex, Err: err}
		}
		if err := s.git.AmendLastCommit(ctx); err != nil {
			return nil, &SanitizeError{Stage: StageAmend, Err: err}
		}
	}

	if err := s.git.Push(ctx, s.cfg.Remote, s.cfg.Branch, false); err != nil {
		return nil, &SanitizeError{Stage: StagePush, Err: err}
	}
	result.Pushed = true

	if head, err := s.git.RevParse(ctx, "HEAD"); err == nil {
		result.NewHead = head
	}
	return result, nil
}

// Deep rewrites every commit between the upstream ref and HEAD with the
// secrets path removed, then force-pushes.
//
// # Inputs
//
//   - confirm: called once after a successful fetch with the number of
//     commits about to be rewritten; returning false aborts with
//     ErrConfirmationDeclined before any history is touched.
//
// # Description
//
// State machine: fetch → rewrite-range → push. The force push is never
// attempted when the fetch or the rewrite failed. Commit authorship and
// timestamps are preserved through the rewrite; commits that become empty
// relative to their parent are dropped rather than kept as no-ops.
func (s *HistorySanitizer) Deep(ctx context.Context, confirm func(commits int) bool) (*SanitizeResult, error) {
	result := &SanitizeResult{}

	s.log.Info("fetching upstream", "remote", s.cfg.Remote)
	if err := s.git.Fetch(ctx, s.cfg.Remote); err != nil {
		return nil, &SanitizeError{Stage: StageFetch, Err: err}
	}

	before, err := s.git.CountRange(ctx, s.upstream(), "HEAD")
	if err != nil {
		return nil, &SanitizeError{Stage: StageRewrite, Err: err}
	}
	result.CommitsBefore = before

	if before == 0 {
		s.log.Info("no local commits ahead of upstream, nothing to rewrite",
			"upstream", s.upstream())
		result.NothingToClean = true
		return result, nil
	}

	if confirm != nil && !confirm(before) {
		return nil, ErrConfirmationDeclined
	}

	s.log.Info("rewriting commit range",
		"upstream", s.upstream(),
		"commits", before,
		"path", s.cfg.SecretsPath)
	if err := s.git.RewriteRange(ctx, s.upstream(), s.cfg.SecretsPath); err != nil {
		return nil, &SanitizeError{Stage: StageRewrite, Err: err}
	}

	after, err := s.git.CountRange(ctx, s.upstream(), "HEAD")
	if err != nil {
		return nil, &SanitizeError{Stage: StageRewrite, Err: err}
	}
	result.CommitsAfter = after

	s.log.Warn("force pushing rewritten history",
		"remote", s.cfg.Remote,
		"branch", s.cfg.Branch)
	if err := s.git.Push(ctx, s.cfg.Remote, s.cfg.Branch, true); err != nil {
		return nil, &SanitizeError{Stage: StagePush, Err: err}
	}
	result.Pushed = true

	if head, err := s.git.RevParse(ctx, "HEAD"); err == nil {
		result.NewHead = head
	}
	return result, nil
}
