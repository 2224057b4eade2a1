// Package sandbox enforces filesystem and network policy for tool
// execution. Three modes exist: none (no enforcement), read-only (writes
// denied everywhere, network denied), and strict (access only under allowed
// paths minus denied paths, network opt-in).
package sandbox

import (
	"path/filepath"
	"strings"

	"github.com/cocodehq/cocode/internal/status"
)

// Mode is the sandbox enforcement mode.
type Mode string

const (
	ModeNone     Mode = "none"
	ModeReadOnly Mode = "read-only"
	ModeStrict   Mode = "strict"
)

// Config is the enforcement policy.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`
	// AllowedPaths are prefixes permitted in strict mode.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`
	// DeniedPaths take precedence over allowed.
	DeniedPaths []string `json:"denied_paths,omitempty" yaml:"denied_paths,omitempty"`
	// AllowNetwork permits network access in strict mode.
	AllowNetwork bool `json:"allow_network,omitempty" yaml:"allow_network,omitempty"`
}

// DefaultConfig returns an unenforced sandbox.
func DefaultConfig() Config {
	return Config{Mode: ModeNone}
}

// Settings govern whether commands receive sandbox wrapping at all.
// Sandbox is disabled by default; enabling it makes bash auto-approval and
// per-command bypass available.
type Settings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// AutoAllowBashIfSandboxed auto-approves bash when sandboxed.
	AutoAllowBashIfSandboxed bool `json:"auto_allow_bash_if_sandboxed" yaml:"auto_allow_bash_if_sandboxed"`
	// AllowUnsandboxedCommands honors per-command bypass requests.
	AllowUnsandboxedCommands bool `json:"allow_unsandboxed_commands" yaml:"allow_unsandboxed_commands"`
}

// DefaultSettings returns the defaults: disabled, with both escape hatches
// available once enabled.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                  false,
		AutoAllowBashIfSandboxed: true,
		AllowUnsandboxedCommands: true,
	}
}

// IsSandboxed reports whether a command should run under the sandbox.
func (s Settings) IsSandboxed(command string, disableSandbox bool) bool {
	if !s.Enabled {
		return false
	}
	if disableSandbox && s.AllowUnsandboxedCommands {
		return false
	}
	if strings.TrimSpace(command) == "" {
		return false
	}
	return true
}

// Checker validates path and network access against a Config.
type Checker struct {
	config Config
}

// NewChecker creates a checker for the config.
func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

// Config returns the policy being enforced.
func (c *Checker) Config() Config { return c.config }

// CheckPath validates access to a path. Write access is the stricter bit:
// read-only mode denies all writes, strict mode denies anything outside the
// allowed prefixes or under a denied prefix.
func (c *Checker) CheckPath(path string, write bool) error {
	switch c.config.Mode {
	case ModeNone:
		return nil
	case ModeReadOnly:
		if write {
			return status.Errorf(status.PathDenied, "write to %s denied: sandbox is read-only", path)
		}
		return nil
	case ModeStrict:
		for _, denied := range c.config.DeniedPaths {
			if hasPathPrefix(path, denied) {
				return status.Errorf(status.PathDenied, "access to %s denied by sandbox policy", path)
			}
		}
		if !c.IsAllowedPath(path) {
			return status.Errorf(status.PathDenied, "access to %s denied: outside allowed paths", path)
		}
		return nil
	default:
		return status.Errorf(status.InvalidConfig, "unknown sandbox mode %q", c.config.Mode)
	}
}

// IsAllowedPath reports whether the path falls under some allowed prefix.
// With no allowed paths, strict mode allows nothing.
func (c *Checker) IsAllowedPath(path string) bool {
	if c.config.Mode == ModeNone {
		return true
	}
	for _, allowed := range c.config.AllowedPaths {
		if hasPathPrefix(path, allowed) {
			return true
		}
	}
	return false
}

// CheckNetwork validates network access: permitted in mode none, and in
// strict mode only when AllowNetwork is set.
func (c *Checker) CheckNetwork() error {
	switch c.config.Mode {
	case ModeNone:
		return nil
	case ModeStrict:
		if c.config.AllowNetwork {
			return nil
		}
	}
	return status.Errorf(status.PermissionDenied, "network access denied by sandbox policy")
}

// hasPathPrefix reports whether path is prefix or lives under it, matching
// on path components rather than raw strings.
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}
