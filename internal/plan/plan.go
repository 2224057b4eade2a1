// Package plan manages plan files: markdown documents under
// $COCODE_HOME/plans that persist a session's implementation plan, with
// per-subagent variants.
package plan

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the plans directory: $COCODE_HOME/plans, defaulting to
// $HOME/.cocode/plans.
func Dir() string {
	if home := os.Getenv("COCODE_HOME"); home != "" {
		return filepath.Join(home, "plans")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cocode", "plans")
}

// Slugify converts a title to a file slug: lowercase, non-alphanumerics
// collapsed to single hyphens, trimmed.
func Slugify(title string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// FilePath returns the plan file path for a session slug.
func FilePath(slug string) string {
	return filepath.Join(Dir(), slug+".md")
}

// AgentFilePath returns the plan file path for a subagent.
func AgentFilePath(slug, agentID string) string {
	return filepath.Join(Dir(), slug+"-agent-"+agentID+".md")
}

// Write persists plan content, creating the directory as needed.
func Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Read loads plan content; missing files return "".
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
