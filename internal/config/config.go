// Package config loads and validates the agent core's configuration: tool
// execution limits, compaction thresholds, sandbox policy, attachment
// toggles, provider records, and hook settings.
package config

import (
	"strings"

	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/internal/sandbox"
)

// Plan agent count bounds.
const (
	MinAgentCount = 1
	MaxAgentCount = 10
)

// Config is the full configuration surface the core consumes.
type Config struct {
	// Tool execution.
	MaxToolConcurrency int `yaml:"max_tool_concurrency"`
	McpToolTimeout     int `yaml:"mcp_tool_timeout"` // milliseconds

	// Result persistence.
	MaxResultSize           int  `yaml:"max_result_size"`
	ResultPreviewSize       int  `yaml:"result_preview_size"`
	EnableResultPersistence *bool `yaml:"enable_result_persistence"`

	// Compaction.
	DisableCompact         bool    `yaml:"disable_compact"`
	AutoCompactPct         float64 `yaml:"auto_compact_pct"`
	SessionMemoryMinTokens int     `yaml:"session_memory_min_tokens"`
	MinTokensToPreserve    int     `yaml:"min_tokens_to_preserve"`
	MicroCompactMinSavings int     `yaml:"micro_compact_min_savings"`
	MaxSummaryRetries      int     `yaml:"max_summary_retries"`
	TokenSafetyMargin      float64 `yaml:"token_safety_margin"`
	RecentToolResultsToKeep int    `yaml:"recent_tool_results_to_keep"`

	// Plan.
	AgentCount        int `yaml:"agent_count"`
	ExploreAgentCount int `yaml:"explore_agent_count"`

	// Attachments.
	DisableAttachments         string `yaml:"disable_attachments"`
	EnableTokenUsageAttachment *bool  `yaml:"enable_token_usage_attachment"`

	// Paths.
	ProjectDir string `yaml:"project_dir"`
	PluginRoot string `yaml:"plugin_root"`
	EnvFile    string `yaml:"env_file"`

	// Sandbox.
	Sandbox         sandbox.Config   `yaml:"sandbox"`
	SandboxSettings sandbox.Settings `yaml:"sandbox_settings"`

	// Hooks.
	Hooks hooks.Settings `yaml:"hooks"`

	// Providers are extra provider records merged over the builtins.
	Providers []providers.Record `yaml:"providers"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		MaxToolConcurrency:      10,
		MaxResultSize:           400_000,
		ResultPreviewSize:       2_000,
		AutoCompactPct:          0.8,
		SessionMemoryMinTokens:  10_000,
		MicroCompactMinSavings:  2_000,
		MaxSummaryRetries:       2,
		TokenSafetyMargin:       1.2,
		RecentToolResultsToKeep: 3,
		AgentCount:              3,
		ExploreAgentCount:       3,
		Sandbox:                 sandbox.DefaultConfig(),
		SandboxSettings:         sandbox.DefaultSettings(),
	}
}

// ApplyDefaults fills zero fields and clamps bounded values.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.MaxToolConcurrency <= 0 {
		c.MaxToolConcurrency = d.MaxToolConcurrency
	}
	if c.MaxResultSize <= 0 {
		c.MaxResultSize = d.MaxResultSize
	}
	if c.ResultPreviewSize <= 0 {
		c.ResultPreviewSize = d.ResultPreviewSize
	}
	if c.AutoCompactPct <= 0 || c.AutoCompactPct > 1 {
		c.AutoCompactPct = d.AutoCompactPct
	}
	if c.SessionMemoryMinTokens <= 0 {
		c.SessionMemoryMinTokens = d.SessionMemoryMinTokens
	}
	if c.MicroCompactMinSavings <= 0 {
		c.MicroCompactMinSavings = d.MicroCompactMinSavings
	}
	if c.MaxSummaryRetries <= 0 {
		c.MaxSummaryRetries = d.MaxSummaryRetries
	}
	if c.TokenSafetyMargin <= 0 {
		c.TokenSafetyMargin = d.TokenSafetyMargin
	}
	if c.RecentToolResultsToKeep <= 0 {
		c.RecentToolResultsToKeep = d.RecentToolResultsToKeep
	}
	c.AgentCount = clampAgents(c.AgentCount, d.AgentCount)
	c.ExploreAgentCount = clampAgents(c.ExploreAgentCount, d.ExploreAgentCount)
	if c.Sandbox.Mode == "" {
		c.Sandbox.Mode = sandbox.ModeNone
	}
}

func clampAgents(n, fallback int) int {
	if n == 0 {
		return fallback
	}
	if n < MinAgentCount {
		return MinAgentCount
	}
	if n > MaxAgentCount {
		return MaxAgentCount
	}
	return n
}

// ResultPersistenceEnabled reports the effective persistence flag
// (default true).
func (c *Config) ResultPersistenceEnabled() bool {
	if c.EnableResultPersistence == nil {
		return true
	}
	return *c.EnableResultPersistence
}

// AttachmentsDisabled interprets the disable_attachments value: "1",
// "true", and "yes" (case-insensitive) disable attachments.
func (c *Config) AttachmentsDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.DisableAttachments)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// TokenUsageAttachmentEnabled reports the token-usage attachment flag
// (default true).
func (c *Config) TokenUsageAttachmentEnabled() bool {
	if c.EnableTokenUsageAttachment == nil {
		return true
	}
	return *c.EnableTokenUsageAttachment
}
