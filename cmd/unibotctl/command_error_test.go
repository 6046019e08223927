package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestCommandError_Error(t *testing.T) {
	err := NewCommandError("pip install -r requirements.txt", 1, "  disk full \n", nil)
	want := "pip install -r requirements.txt (exit 1): disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandError_Error_NoStderr(t *testing.T) {
	wrapped := errors.New("signal: killed")
	err := NewCommandError("uvicorn", -1, "", wrapped)
	if got := err.Error(); got != "uvicorn (exit -1): signal: killed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := fmt.Errorf("install failed: %w", NewCommandError("pip", 1, "boom", inner))

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("errors.As should find the CommandError in the chain")
	}
	if cmdErr.ExitCode != 1 || cmdErr.Stderr != "boom" {
		t.Errorf("cmdErr = %+v", cmdErr)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped error")
	}
}

func TestExtractStderr(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewCommandError("git push", 128, "remote rejected", nil))
	if got := ExtractStderr(err); got != "remote rejected" {
		t.Errorf("ExtractStderr() = %q", got)
	}
	if got := ExtractStderr(errors.New("plain")); got != "" {
		t.Errorf("ExtractStderr() = %q for a plain error", got)
	}
}
