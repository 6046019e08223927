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
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/unibotctl/pkg/logging"
)

// LaunchSpec describes the long-running service to supervise.
type LaunchSpec struct {
	// ProjectRoot is the checkout the service runs from.
	ProjectRoot string

	// VenvRoot is the virtual environment providing the interpreter.
	VenvRoot string

	// Module is the ASGI application path, e.g. "src.main:app".
	Module string

	Host string
	Port int

	// WatchDirs are source directories (relative to ProjectRoot unless
	// absolute) whose changes trigger a restart.
	WatchDirs []string
}

// restartDebounce coalesces bursts of file events (editors write several
// times per save) into one restart.
const restartDebounce = 500 * time.Millisecond

// ServiceLauncher starts the service and restarts it on source changes.
//
// # Description
//
// Before every (re)start the port guardian clears the service port: the
// port is effectively a mutex the guardian must hold open for the
// launcher. The watch supervisor then monitors the configured source
// directories with fsnotify and relaunches the service when a Python file
// changes.
//
// The supervisor blocks until the context is cancelled (Ctrl-C) or the
// service exits on its own.
type ServiceLauncher struct {
	proc     ProcessManager
	guardian *PortGuardian
	log      *logging.Logger
	debounce time.Duration
}

// NewServiceLauncher creates a launcher over the given guardian.
func NewServiceLauncher(proc ProcessManager, guardian *PortGuardian, log *logging.Logger) *ServiceLauncher {
	if log == nil {
		log = logging.Default()
	}
	return &ServiceLauncher{
		proc:     proc,
		guardian: guardian,
		log:      log,
		debounce: restartDebounce,
	}
}

// Serve runs the service under the watch supervisor.
//
// # Outputs
//
//   - error: nil on clean shutdown via context cancellation; otherwise a
//     port-guardian failure, a launch failure, or the service's own
//     unexpected exit status
func (l *ServiceLauncher) Serve(ctx context.Context, spec LaunchSpec) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range spec.WatchDirs {
		root := resolveProjectPath(spec.ProjectRoot, dir)
		if err := addWatchRecursive(watcher, root); err != nil {
			l.log.Warn("failed to watch source directory", "dir", root, "error", err)
		}
	}

	restart := make(chan string, 1)
	go l.watchLoop(ctx, watcher, restart)

	for {
		if _, err := l.guardian.Free(ctx, spec.Port); err != nil {
			return err
		}

		handle, err := l.launch(ctx, spec)
		if err != nil {
			return err
		}
		l.log.Info("service started",
			"module", spec.Module,
			"addr", spec.Host+":"+strconv.Itoa(spec.Port),
			"pid", handle.Pid())

		exited := make(chan error, 1)
		go func() { exited <- handle.Wait() }()

		select {
		case <-ctx.Done():
			l.log.Info("stopping service", "pid", handle.Pid())
			_ = handle.Kill()
			<-exited
			return nil

		case err := <-exited:
			if err != nil {
				return fmt.Errorf("service exited unexpectedly: %w", err)
			}
			return fmt.Errorf("service exited unexpectedly with status 0")

		case path := <-restart:
			l.log.Info("source change detected, restarting", "path", path)
			_ = handle.Kill()
			<-exited
		}
	}
}

// launch starts one service process.
func (l *ServiceLauncher) launch(ctx context.Context, spec LaunchSpec) (ProcessHandle, error) {
	python := VenvPython(spec.VenvRoot)
	handle, err := l.proc.Start(ctx, spec.ProjectRoot, python,
		"-m", "uvicorn", spec.Module,
		"--host", spec.Host,
		"--port", strconv.Itoa(spec.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to launch service: %w", err)
	}
	return handle, nil
}

// watchLoop forwards debounced source-change events to the restart channel.
func (l *ServiceLauncher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, restart chan<- string) {
	var timer *time.Timer
	var timerC <-chan time.Time
	var lastPath string

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Newly created directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						l.log.Debug("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !isSourceChange(event) {
				continue
			}
			lastPath = event.Name
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				timerC = timer.C
			} else {
				// Drain a fired-but-unread timer so Reset cannot leave
				// a stale tick that would double the restart.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case restart <- lastPath:
			default:
				// A restart is already pending.
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn("file watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

// isSourceChange reports whether the event should trigger a restart.
func isSourceChange(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".py" {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// addWatchRecursive adds dir and every subdirectory to the watcher.
func addWatchRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		// Virtualenvs and caches churn constantly and are never sources.
		name := d.Name()
		if name == "__pycache__" || name == ".git" || name == ".venv" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
