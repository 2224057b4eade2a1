package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cocodehq/cocode/internal/sandbox"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.MaxToolConcurrency != 10 {
		t.Errorf("max tool concurrency = %d, want 10", c.MaxToolConcurrency)
	}
	if c.MaxResultSize != 400_000 {
		t.Errorf("max result size = %d, want 400000", c.MaxResultSize)
	}
	if c.ResultPreviewSize != 2_000 {
		t.Errorf("preview size = %d, want 2000", c.ResultPreviewSize)
	}
	if c.AutoCompactPct != 0.8 {
		t.Errorf("auto compact pct = %v, want 0.8", c.AutoCompactPct)
	}
	if !c.ResultPersistenceEnabled() {
		t.Error("persistence defaults on")
	}
	if c.AttachmentsDisabled() {
		t.Error("attachments default enabled")
	}
}

func TestAttachmentsDisabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"TRUE", true}, {"yes", true}, {"Yes", true},
		{"0", false}, {"false", false}, {"no", false}, {"", false}, {"maybe", false},
	}
	for _, tt := range tests {
		c := Config{DisableAttachments: tt.value}
		if got := c.AttachmentsDisabled(); got != tt.want {
			t.Errorf("AttachmentsDisabled(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestApplyDefaults_ClampsAgentCount(t *testing.T) {
	c := Config{AgentCount: 99, ExploreAgentCount: -5}
	c.ApplyDefaults()
	if c.AgentCount != MaxAgentCount {
		t.Errorf("agent count = %d, want clamped to %d", c.AgentCount, MaxAgentCount)
	}
	if c.ExploreAgentCount != MinAgentCount {
		t.Errorf("explore count = %d, want clamped to %d", c.ExploreAgentCount, MinAgentCount)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.MaxToolConcurrency != 10 {
		t.Errorf("missing file should give defaults, got %+v", c)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
max_tool_concurrency: 4
auto_compact_pct: 0.9
disable_attachments: "yes"
sandbox:
  mode: strict
  allowed_paths:
    - /home/user/project
  allow_network: true
providers:
  - name: myhost
    env_key: MYHOST_API_KEY
    base_url: https://myhost.example/v1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.MaxToolConcurrency != 4 {
		t.Errorf("max tool concurrency = %d", c.MaxToolConcurrency)
	}
	if c.AutoCompactPct != 0.9 {
		t.Errorf("auto compact pct = %v", c.AutoCompactPct)
	}
	if !c.AttachmentsDisabled() {
		t.Error("attachments should be disabled")
	}
	if c.Sandbox.Mode != sandbox.ModeStrict || !c.Sandbox.AllowNetwork {
		t.Errorf("sandbox = %+v", c.Sandbox)
	}
	if len(c.Providers) != 1 || c.Providers[0].Name != "myhost" {
		t.Errorf("providers = %+v", c.Providers)
	}
	// Unset fields still default.
	if c.MaxResultSize != 400_000 {
		t.Errorf("max result size = %d, want default", c.MaxResultSize)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("COCODE_TEST_VAR=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("env_file: "+envPath+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("COCODE_TEST_VAR", "")
	os.Unsetenv("COCODE_TEST_VAR")
	if _, err := Load(configPath); err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("COCODE_TEST_VAR") != "loaded" {
		t.Error("env file should populate the environment")
	}
}
