package tools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/cocodehq/cocode/pkg/models"
)

// Persisted-output wrapper tags.
const (
	persistedOutputStart = "<persisted-output>"
	persistedOutputEnd   = "</persisted-output>"
)

// PersistenceConfig controls large-result persistence.
type PersistenceConfig struct {
	// MaxResultSize is the global threshold in characters; per-tool
	// overrides via ResultSizer win.
	MaxResultSize int
	// ResultPreviewSize is how many leading characters stay inline.
	ResultPreviewSize int
	// Enabled turns persistence off entirely when false.
	Enabled bool
}

// DefaultPersistenceConfig returns the defaults: 400K threshold, 2K
// preview, enabled.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		MaxResultSize:     400_000,
		ResultPreviewSize: 2_000,
		Enabled:           true,
	}
}

// PersistIfNeeded writes an oversized tool result to
// {sessionDir}/tool-results/{toolUseID}.txt and substitutes a wrapped
// preview. Small results, disabled persistence, and write failures all
// return the original output unchanged (failures log a warning).
func PersistIfNeeded(output models.ToolOutput, toolUseID, sessionDir string, config PersistenceConfig) models.ToolOutput {
	if !config.Enabled {
		return output
	}

	content := output.Content.ToText()
	if len(content) <= config.MaxResultSize {
		return output
	}

	resultsDir := filepath.Join(sessionDir, "tool-results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		slog.Warn("failed to create tool-results directory, returning original output",
			"tool_use_id", toolUseID, "error", err)
		return output
	}

	filePath := filepath.Join(resultsDir, toolUseID+".txt")
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		slog.Warn("failed to persist large result, returning original output",
			"tool_use_id", toolUseID, "path", filePath, "error", err)
		return output
	}

	preview := truncateUTF8(content, config.ResultPreviewSize)
	if len(preview) < len(content) {
		preview += "..."
	}

	wrapped := fmt.Sprintf("%s\nOutput too large (%d characters). Full output saved to: %s\n\nPreview (first %d chars):\n%s\n%s",
		persistedOutputStart, len(content), filePath, config.ResultPreviewSize, preview, persistedOutputEnd)

	slog.Debug("persisted large tool result",
		"tool_use_id", toolUseID, "original_size", len(content), "path", filePath)

	return models.ToolOutput{
		Content:   models.TextResult(wrapped),
		IsError:   output.IsError,
		Modifiers: output.Modifiers,
	}
}

// truncateUTF8 cuts at most n bytes on a rune boundary.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
