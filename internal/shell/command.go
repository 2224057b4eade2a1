package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Output caps applied to captured stdout/stderr.
const (
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes = 1 << 20 // 1 MiB
	// DefaultTimeout applies when CommandInput.TimeoutMS is zero.
	DefaultTimeout = 2 * time.Minute
)

// CommandInput describes one command execution request.
type CommandInput struct {
	Command     string `json:"command"`
	TimeoutMS   int    `json:"timeout_ms,omitempty"`
	WorkingDir  string `json:"working_dir,omitempty"`
	Description string `json:"description,omitempty"`
	// RunInBackground requests registration as a background task instead
	// of a synchronous wait; handled by the calling tool.
	RunInBackground bool `json:"run_in_background,omitempty"`
}

// CommandResult is the outcome of a synchronous execution.
type CommandResult struct {
	ExitCode   int      `json:"exit_code"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	DurationMS int64    `json:"duration_ms"`
	Truncated  bool     `json:"truncated,omitempty"`
	NewCwd     string   `json:"new_cwd,omitempty"`
	// ExtractedPaths are files the path extractor found in stdout.
	ExtractedPaths []string `json:"extracted_paths,omitempty"`
}

// Executor runs commands under a resolved shell with an optional
// environment snapshot and path extractor.
type Executor struct {
	shell     *Shell
	extractor PathExtractor
	login     bool
}

// NewExecutor creates an executor. A nil extractor defaults to the no-op.
func NewExecutor(sh *Shell, extractor PathExtractor) *Executor {
	if extractor == nil {
		extractor = NoOpExtractor{}
	}
	return &Executor{shell: sh, extractor: extractor}
}

// Shell returns the resolved shell.
func (e *Executor) Shell() *Shell { return e.shell }

// Run executes one command synchronously, honoring the timeout and output
// caps. Timeouts kill the shell process itself (not its process group) and
// report exit code -1.
func (e *Executor) Run(ctx context.Context, input CommandInput) (*CommandResult, error) {
	timeout := DefaultTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := e.shell.Snapshot.WrapCommand(input.Command)
	argv := e.shell.DeriveExecArgs(command, e.login)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if input.WorkingDir != "" {
		cmd.Dir = input.WorkingDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &capWriter{buf: &stdout}
	cmd.Stderr = &capWriter{buf: &stderr}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &CommandResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: duration.Milliseconds(),
		Truncated:  stdout.Len() >= MaxOutputBytes || stderr.Len() >= MaxOutputBytes,
	}
	switch {
	case err == nil:
		result.ExitCode = 0
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.Stderr = strings.TrimSpace(result.Stderr + "\ncommand timed out after " + timeout.String())
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, err
		}
	}

	if e.extractor.IsEnabled() {
		cwd := input.WorkingDir
		if cwd == "" {
			cwd = "."
		}
		if extraction, xerr := e.extractor.ExtractPaths(ctx, input.Command, TruncateForExtraction(result.Stdout), cwd); xerr == nil {
			result.ExtractedPaths = extraction.Paths
		}
	}

	return result, nil
}

// capWriter caps a buffer at MaxOutputBytes, silently discarding overflow.
type capWriter struct {
	buf *bytes.Buffer
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := MaxOutputBytes - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
