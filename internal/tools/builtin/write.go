package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// WriteTool writes a file, creating parent directories.
type WriteTool struct{}

func (t *WriteTool) Name() string { return "Write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, overwriting it if it exists. Parent directories are created."
}

func (t *WriteTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"file_path": {"type": "string", "description": "Absolute or cwd-relative path"},
			"content": {"type": "string", "description": "Content to write"}
		},
		"required": ["file_path", "content"]
	}`)
}

func (t *WriteTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencyUnsafe }
func (t *WriteTool) IsReadOnly() bool                            { return false }

func (t *WriteTool) Execute(_ context.Context, input json.RawMessage, tctx *tools.Context) (models.ToolOutput, error) {
	var params struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}

	path := params.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(tctx.Cwd, path)
	}
	if tctx.Sandbox != nil {
		if err := tctx.Sandbox.CheckPath(path, true); err != nil {
			return models.ErrorOutput(err.Error()), nil
		}
	}

	// Writes are irreversible; a speculative call must wait for its group
	// to commit.
	if tctx.Speculative() {
		return models.ErrorOutput(fmt.Sprintf(
			"write to %s deferred: call is speculative and not yet committed", path)), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.ErrorOutput(fmt.Sprintf("create directories for %s: %v", path, err)), nil
	}
	if err := os.WriteFile(path, []byte(params.Content), 0o644); err != nil {
		return models.ErrorOutput(fmt.Sprintf("write %s: %v", path, err)), nil
	}

	output := models.TextOutput(fmt.Sprintf("Wrote %d bytes to %s", len(params.Content), path))
	output.Modifiers = []models.ContextModifier{
		models.FileReadModifier(path, params.Content),
	}
	return output, nil
}
