// Package builtin provides the core file and shell tools: Read, Write,
// Bash, and TaskOutput. All path access goes through the sandbox checker.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// readMaxResultChars is Read's persistence threshold, smaller than the
// global default.
const readMaxResultChars = 100_000

// ReadTool reads a file, optionally a line range.
type ReadTool struct{}

func (t *ReadTool) Name() string { return "Read" }

func (t *ReadTool) Description() string {
	return "Read a file from the filesystem. Optionally pass offset (1-based start line) " +
		"and limit (line count) to read a range."
}

func (t *ReadTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_path": {"type": "string", "description": "Absolute or cwd-relative path"},
			"offset": {"type": "integer", "description": "1-based first line to read"},
			"limit": {"type": "integer", "description": "Number of lines to read"}
		},
		"required": ["file_path"]
	}`)
}

func (t *ReadTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencySafe }
func (t *ReadTool) IsReadOnly() bool                            { return true }
func (t *ReadTool) MaxResultSizeChars() int                     { return readMaxResultChars }

func (t *ReadTool) Execute(_ context.Context, input json.RawMessage, tctx *tools.Context) (models.ToolOutput, error) {
	var params struct {
		FilePath string `json:"file_path"`
		Offset   int    `json:"offset"`
		Limit    int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}

	path := params.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(tctx.Cwd, path)
	}
	if tctx.Sandbox != nil {
		if err := tctx.Sandbox.CheckPath(path, false); err != nil {
			return models.ErrorOutput(err.Error()), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.ErrorOutput(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	content := string(data)

	fullRead := params.Offset == 0 && params.Limit == 0
	if !fullRead {
		lines := strings.Split(content, "\n")
		start := params.Offset
		if start < 1 {
			start = 1
		}
		if start > len(lines) {
			return models.TextOutput(""), nil
		}
		end := len(lines)
		if params.Limit > 0 && start-1+params.Limit < end {
			end = start - 1 + params.Limit
		}
		content = strings.Join(lines[start-1:end], "\n")
	}

	output := models.TextOutput(content)
	output.Modifiers = []models.ContextModifier{
		models.FileReadModifier(path, chooseTrackedContent(content, fullRead)),
	}
	return output, nil
}

// chooseTrackedContent records full content only for full reads; partial
// reads track the path without content so change detection skips them.
func chooseTrackedContent(content string, fullRead bool) string {
	if fullRead {
		return content
	}
	return ""
}
