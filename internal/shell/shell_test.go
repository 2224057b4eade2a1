package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		path string
		want Type
		ok   bool
	}{
		{"zsh", Zsh, true},
		{"bash", Bash, true},
		{"/bin/zsh", Zsh, true},
		{"/bin/bash", Bash, true},
		{"/bin/sh", Sh, true},
		{"pwsh", PowerShell, true},
		{"powershell", PowerShell, true},
		{"/usr/local/bin/pwsh", PowerShell, true},
		{"powershell.exe", PowerShell, true},
		{"pwsh.exe", PowerShell, true},
		{"cmd", Cmd, true},
		{"cmd.exe", Cmd, true},
		{"fish", "", false},
		{"other", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectType(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("DetectType(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDeriveExecArgs(t *testing.T) {
	tests := []struct {
		shell   Shell
		login   bool
		want    []string
	}{
		{Shell{Type: Bash, Path: "/bin/bash"}, false, []string{"/bin/bash", "-c", "echo hello"}},
		{Shell{Type: Bash, Path: "/bin/bash"}, true, []string{"/bin/bash", "-lc", "echo hello"}},
		{Shell{Type: Zsh, Path: "/bin/zsh"}, false, []string{"/bin/zsh", "-c", "echo hello"}},
		{Shell{Type: Zsh, Path: "/bin/zsh"}, true, []string{"/bin/zsh", "-lc", "echo hello"}},
		{Shell{Type: PowerShell, Path: "pwsh.exe"}, false, []string{"pwsh.exe", "-NoProfile", "-Command", "echo hello"}},
		{Shell{Type: PowerShell, Path: "pwsh.exe"}, true, []string{"pwsh.exe", "-Command", "echo hello"}},
		{Shell{Type: Cmd, Path: "cmd.exe"}, false, []string{"cmd.exe", "/c", "echo hello"}},
	}
	for _, tt := range tests {
		got := tt.shell.DeriveExecArgs("echo hello", tt.login)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("DeriveExecArgs(%s, login=%v) = %v, want %v", tt.shell.Type, tt.login, got, tt.want)
		}
	}
}

func TestShellName(t *testing.T) {
	for _, tt := range []struct {
		shellType Type
		want      string
	}{
		{Zsh, "zsh"}, {Bash, "bash"}, {Sh, "sh"}, {PowerShell, "powershell"}, {Cmd, "cmd"},
	} {
		sh := Shell{Type: tt.shellType, Path: "/bin/test"}
		if sh.Name() != tt.want {
			t.Errorf("name = %q, want %q", sh.Name(), tt.want)
		}
	}
}

func TestTruncateForExtraction(t *testing.T) {
	short := "hello"
	if TruncateForExtraction(short) != short {
		t.Error("short output should pass through")
	}

	long := strings.Repeat("x", 3000)
	if got := TruncateForExtraction(long); len(got) != MaxExtractionOutputChars {
		t.Errorf("len = %d, want %d", len(got), MaxExtractionOutputChars)
	}

	// Multi-byte boundary safety: é is 2 bytes.
	multibyte := strings.Repeat("é", 1500)
	got := TruncateForExtraction(multibyte)
	if len(got) > MaxExtractionOutputChars {
		t.Errorf("len = %d exceeds cap", len(got))
	}
	if !strings.HasSuffix(got, "é") {
		t.Error("truncation split a UTF-8 rune")
	}
}

func TestFilterExistingFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exists.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got := FilterExistingFiles([]string{"exists.txt", "missing.txt", dir}, dir)
	if len(got) != 1 || got[0] != file {
		t.Errorf("filtered = %v, want [%s]", got, file)
	}
}

func TestExecutor_Run(t *testing.T) {
	sh := &Shell{Type: Bash, Path: "/bin/bash"}
	exec := NewExecutor(sh, nil)

	result, err := exec.Run(context.Background(), CommandInput{Command: "echo hello"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit = %d, want 0", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestExecutor_RunNonZeroExit(t *testing.T) {
	sh := &Shell{Type: Bash, Path: "/bin/bash"}
	exec := NewExecutor(sh, nil)

	result, err := exec.Run(context.Background(), CommandInput{Command: "exit 3"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit = %d, want 3", result.ExitCode)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	sh := &Shell{Type: Bash, Path: "/bin/bash"}
	exec := NewExecutor(sh, nil)

	result, err := exec.Run(context.Background(), CommandInput{Command: "sleep 5", TimeoutMS: 100})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != -1 {
		t.Errorf("exit = %d, want -1 on timeout", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "timed out") {
		t.Errorf("stderr should note the timeout, got %q", result.Stderr)
	}
}

func TestSnapshot_WrapCommand(t *testing.T) {
	var nilSnap *Snapshot
	if nilSnap.WrapCommand("echo hi") != "echo hi" {
		t.Error("nil snapshot should pass command through")
	}

	snap := &Snapshot{Path: "/tmp/snap.sh"}
	wrapped := snap.WrapCommand("echo hi")
	if !strings.Contains(wrapped, "/tmp/snap.sh") || !strings.HasSuffix(wrapped, "echo hi") {
		t.Errorf("wrapped = %q", wrapped)
	}
}

func TestSnapshot_ValidateRequiresSentinel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.sh")
	if err := os.WriteFile(path, []byte("export FOO=bar\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	snap := &Snapshot{Path: path}
	sh := &Shell{Type: Bash, Path: "/bin/bash"}
	if err := snap.Validate(context.Background(), sh); err == nil {
		t.Error("snapshot without sentinel should fail validation")
	}
}

func TestCaptureSnapshot_Lifecycle(t *testing.T) {
	sh := &Shell{Type: Bash, Path: "/bin/bash"}
	snap, err := CaptureSnapshot(context.Background(), sh)
	if err != nil {
		t.Skipf("interactive shell unavailable: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot for bash")
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.HasPrefix(string(data), SnapshotSentinel) {
		t.Error("snapshot should start with sentinel")
	}

	path := snap.Path
	snap.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("close should delete the snapshot file")
	}
}
