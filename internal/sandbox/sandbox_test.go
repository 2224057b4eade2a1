package sandbox

import "testing"

func strictConfig() Config {
	return Config{
		Mode:         ModeStrict,
		AllowedPaths: []string{"/home/user/project"},
		DeniedPaths:  []string{"/home/user/project/.env"},
	}
}

func TestNoneModeAllowsEverything(t *testing.T) {
	checker := NewChecker(DefaultConfig())
	if err := checker.CheckPath("/any/path", false); err != nil {
		t.Errorf("read: %v", err)
	}
	if err := checker.CheckPath("/any/path", true); err != nil {
		t.Errorf("write: %v", err)
	}
	if err := checker.CheckNetwork(); err != nil {
		t.Errorf("network: %v", err)
	}
}

func TestReadOnlyMode(t *testing.T) {
	checker := NewChecker(Config{Mode: ModeReadOnly})
	if err := checker.CheckPath("/any/path", false); err != nil {
		t.Errorf("read should pass: %v", err)
	}
	for _, p := range []string{"/any/path", "/tmp/x", "/home/user/file"} {
		if err := checker.CheckPath(p, true); err == nil {
			t.Errorf("write to %s should be denied", p)
		}
	}
	if err := checker.CheckNetwork(); err == nil {
		t.Error("network should be denied")
	}
}

func TestStrictMode(t *testing.T) {
	checker := NewChecker(strictConfig())

	if err := checker.CheckPath("/home/user/project/src/main.rs", false); err != nil {
		t.Errorf("allowed path read: %v", err)
	}
	if err := checker.CheckPath("/home/user/project/src/main.rs", true); err != nil {
		t.Errorf("allowed path write: %v", err)
	}
	if err := checker.CheckPath("/etc/passwd", false); err == nil {
		t.Error("non-allowed path should be denied")
	}
	// Denied takes precedence over allowed.
	if err := checker.CheckPath("/home/user/project/.env", false); err == nil {
		t.Error("denied path should be denied despite allowed parent")
	}
	if err := checker.CheckPath("/home/user/project/.env", true); err == nil {
		t.Error("denied path write should be denied")
	}
}

func TestStrictNetwork(t *testing.T) {
	checker := NewChecker(strictConfig())
	if err := checker.CheckNetwork(); err == nil {
		t.Error("strict mode denies network by default")
	}

	config := strictConfig()
	config.AllowNetwork = true
	checker = NewChecker(config)
	if err := checker.CheckNetwork(); err != nil {
		t.Errorf("network should pass when allowed: %v", err)
	}
}

func TestIsAllowedPath(t *testing.T) {
	checker := NewChecker(strictConfig())
	allowed := []string{
		"/home/user/project",
		"/home/user/project/src",
		"/home/user/project/src/lib.rs",
	}
	for _, p := range allowed {
		if !checker.IsAllowedPath(p) {
			t.Errorf("%s should be allowed", p)
		}
	}
	if checker.IsAllowedPath("/home/user/other") {
		t.Error("/home/user/other should not be allowed")
	}
	// Similar prefix but different component must not match.
	if checker.IsAllowedPath("/home/user/project2/file") {
		t.Error("/home/user/project2 should not match prefix /home/user/project")
	}
}

func TestStrictModeEmptyAllowedDeniesAll(t *testing.T) {
	checker := NewChecker(Config{Mode: ModeStrict})
	if checker.IsAllowedPath("/anything") {
		t.Error("strict with no allowed paths should deny everything")
	}
}

func TestSettings_IsSandboxed(t *testing.T) {
	settings := DefaultSettings()
	if settings.IsSandboxed("echo hi", false) {
		t.Error("disabled settings never sandbox")
	}

	settings.Enabled = true
	if !settings.IsSandboxed("echo hi", false) {
		t.Error("enabled settings should sandbox")
	}
	if settings.IsSandboxed("echo hi", true) {
		t.Error("bypass should be honored when allowed")
	}
	if settings.IsSandboxed("   ", false) {
		t.Error("empty command is not sandboxed")
	}

	settings.AllowUnsandboxedCommands = false
	if !settings.IsSandboxed("echo hi", true) {
		t.Error("bypass should be ignored when not allowed")
	}
}
