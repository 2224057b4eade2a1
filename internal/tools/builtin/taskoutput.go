package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// TaskOutputTool drains fresh output from a background task.
type TaskOutputTool struct{}

func (t *TaskOutputTool) Name() string { return "TaskOutput" }

func (t *TaskOutputTool) Description() string {
	return "Collect accumulated output from a background task started with run_in_background."
}

func (t *TaskOutputTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task_id": {"type": "string", "description": "The task id to drain"}
		},
		"required": ["task_id"]
	}`)
}

func (t *TaskOutputTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencySafe }
func (t *TaskOutputTool) IsReadOnly() bool                            { return true }

func (t *TaskOutputTool) Execute(_ context.Context, input json.RawMessage, tctx *tools.Context) (models.ToolOutput, error) {
	var params struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}
	if tctx.Tasks == nil {
		return models.ErrorOutput("no task registry available"), nil
	}

	task, ok := tctx.Tasks.Get(params.TaskID)
	if !ok {
		return models.ErrorOutput(fmt.Sprintf("unknown task %q", params.TaskID)), nil
	}
	output, _ := tctx.Tasks.DrainOutput(params.TaskID)

	header := fmt.Sprintf("Task %s [%s] status: %s", task.ID, task.Type, task.Status)
	if task.ExitCode != nil {
		header += fmt.Sprintf(" (exit %d)", *task.ExitCode)
	}
	if output == "" {
		return models.TextOutput(header + "\n(no new output)"), nil
	}
	return models.TextOutput(header + "\n\n" + output), nil
}
