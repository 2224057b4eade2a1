package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotSentinel is the first line of every snapshot file; sourcing a
// file without it is refused.
const SnapshotSentinel = "# Snapshot file"

// snapshotTimeout bounds how long capturing the interactive environment may
// take.
const snapshotTimeout = 10 * time.Second

// Snapshot is a captured interactive-shell environment (exports plus shell
// options) written to a temporary file. The file is sourced ahead of every
// command so user aliases and PATH edits apply, and deleted when the
// snapshot is closed.
type Snapshot struct {
	Path string
}

// CaptureSnapshot materializes the user's interactive environment for the
// given shell. Only POSIX-family shells are snapshotted; others return nil
// without error.
func CaptureSnapshot(ctx context.Context, sh *Shell) (*Snapshot, error) {
	switch sh.Type {
	case Bash, Zsh, Sh:
	default:
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	// Ask the interactive shell to dump exports and options.
	script := "export -p; set +o 2>/dev/null || true"
	out, err := exec.CommandContext(ctx, sh.Path, "-ic", script).Output()
	if err != nil {
		return nil, fmt.Errorf("capture shell snapshot: %w", err)
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("cocode-snapshot-%s.sh", uuid.NewString()[:8]))
	content := SnapshotSentinel + "\n" + string(out)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("write shell snapshot: %w", err)
	}

	snap := &Snapshot{Path: path}
	if err := snap.Validate(ctx, sh); err != nil {
		snap.Close()
		return nil, err
	}
	return snap, nil
}

// Validate sources the snapshot and requires exit 0.
func (s *Snapshot) Validate(ctx context.Context, sh *Shell) error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if !strings.HasPrefix(string(data), SnapshotSentinel) {
		return fmt.Errorf("snapshot file %s missing sentinel", s.Path)
	}
	cmd := exec.CommandContext(ctx, sh.Path, "-c", fmt.Sprintf("source %q", s.Path))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("snapshot failed validation: %w", err)
	}
	return nil
}

// Close deletes the snapshot file. Safe to call more than once.
func (s *Snapshot) Close() {
	if s == nil || s.Path == "" {
		return
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove shell snapshot", "path", s.Path, "error", err)
	}
	s.Path = ""
}

// WrapCommand prefixes a command so the snapshot is sourced first.
func (s *Snapshot) WrapCommand(command string) string {
	if s == nil || s.Path == "" {
		return command
	}
	return fmt.Sprintf("source %q >/dev/null 2>&1; %s", s.Path, command)
}
