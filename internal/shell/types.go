// Package shell resolves the user's shell, materializes environment
// snapshots, and executes commands with timeouts and output caps.
package shell

import (
	"os"
	"path/filepath"
	"strings"
)

// Type identifies a supported shell.
type Type string

const (
	Bash       Type = "bash"
	Zsh        Type = "zsh"
	Sh         Type = "sh"
	PowerShell Type = "powershell"
	Cmd        Type = "cmd"
)

// DetectType resolves a shell type from a path by basename and extension.
// Unsupported shells return ok=false.
func DetectType(path string) (Type, bool) {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, ".exe")
	switch base {
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "sh":
		return Sh, true
	case "pwsh", "powershell":
		return PowerShell, true
	case "cmd":
		return Cmd, true
	default:
		return "", false
	}
}

// Shell is a resolved user shell plus its optional environment snapshot.
type Shell struct {
	Type Type
	Path string

	// Snapshot is the materialized environment snapshot, nil when none
	// was captured.
	Snapshot *Snapshot
}

// Resolve detects the user shell from $SHELL, falling back to /bin/bash on
// unix. The snapshot is not captured here; see CaptureSnapshot.
func Resolve() *Shell {
	path := os.Getenv("SHELL")
	if path == "" {
		path = "/bin/bash"
	}
	shellType, ok := DetectType(path)
	if !ok {
		shellType = Sh
	}
	return &Shell{Type: shellType, Path: path}
}

// Name returns the shell's display name.
func (s *Shell) Name() string { return string(s.Type) }

// DeriveExecArgs builds the argv for running a command string under this
// shell. Login mode sources the user's profile where the shell supports it.
func (s *Shell) DeriveExecArgs(command string, login bool) []string {
	switch s.Type {
	case Bash, Zsh, Sh:
		flag := "-c"
		if login {
			flag = "-lc"
		}
		return []string{s.Path, flag, command}
	case PowerShell:
		if login {
			return []string{s.Path, "-Command", command}
		}
		return []string{s.Path, "-NoProfile", "-Command", command}
	case Cmd:
		return []string{s.Path, "/c", command}
	default:
		return []string{s.Path, "-c", command}
	}
}
