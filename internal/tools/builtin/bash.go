package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cocodehq/cocode/internal/sandbox"
	"github.com/cocodehq/cocode/internal/shell"
	"github.com/cocodehq/cocode/internal/tasks"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// bashMaxResultChars is Bash's persistence threshold.
const bashMaxResultChars = 30_000

// BashTool runs shell commands through the resolved user shell, supporting
// background execution via the task registry. The sandbox settings are
// stored on the tool but not consulted: commands always run unwrapped.
type BashTool struct {
	executor *shell.Executor
	settings sandbox.Settings
}

// NewBashTool creates the tool over an executor and sandbox settings.
func NewBashTool(executor *shell.Executor, settings sandbox.Settings) *BashTool {
	return &BashTool{executor: executor, settings: settings}
}

func (t *BashTool) Name() string { return "Bash" }

func (t *BashTool) Description() string {
	return "Execute a shell command. Use run_in_background for long-running commands " +
		"and the TaskOutput tool to collect their output later."
}

func (t *BashTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "The command to execute"},
			"timeout_ms": {"type": "integer", "description": "Timeout in milliseconds"},
			"working_dir": {"type": "string", "description": "Working directory override"},
			"description": {"type": "string", "description": "What the command does"},
			"run_in_background": {"type": "boolean", "description": "Return immediately with a task id"}
		},
		"required": ["command"]
	}`)
}

func (t *BashTool) ConcurrencySafety() models.ConcurrencySafety { return models.ConcurrencyUnsafe }
func (t *BashTool) IsReadOnly() bool                            { return false }
func (t *BashTool) MaxResultSizeChars() int                     { return bashMaxResultChars }

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, tctx *tools.Context) (models.ToolOutput, error) {
	var params shell.CommandInput
	if err := json.Unmarshal(input, &params); err != nil {
		return models.ErrorOutput("invalid input: " + err.Error()), nil
	}
	if params.WorkingDir == "" {
		params.WorkingDir = tctx.Cwd
	}

	// Command execution is irreversible; speculative calls wait.
	if tctx.Speculative() {
		return models.ErrorOutput("command deferred: call is speculative and not yet committed"), nil
	}

	if params.RunInBackground {
		return t.runBackground(params, tctx)
	}

	result, err := t.executor.Run(ctx, params)
	if err != nil {
		return models.ErrorOutput(fmt.Sprintf("execute command: %v", err)), nil
	}
	return commandOutput(result), nil
}

// runBackground registers the command as a task and returns immediately.
func (t *BashTool) runBackground(params shell.CommandInput, tctx *tools.Context) (models.ToolOutput, error) {
	if tctx.Tasks == nil {
		return models.ErrorOutput("background execution unavailable: no task registry"), nil
	}
	taskID := tctx.Tasks.Register(tasks.TypeShell, params.Command)

	go func() {
		// Background commands own their lifetime; the per-call context
		// ends when the tool returns.
		result, err := t.executor.Run(context.Background(), params)
		if err != nil {
			tctx.Tasks.Fail(taskID)
			return
		}
		if result.Stdout != "" {
			tctx.Tasks.AppendOutput(taskID, result.Stdout)
		}
		if result.Stderr != "" {
			tctx.Tasks.AppendOutput(taskID, result.Stderr)
		}
		tctx.Tasks.Complete(taskID, result.ExitCode)
	}()

	return models.TextOutput(fmt.Sprintf(
		"Command started in background with task id %s. Use TaskOutput to collect output.", taskID)), nil
}

func commandOutput(result *shell.CommandResult) models.ToolOutput {
	var sb strings.Builder
	if result.Stdout != "" {
		sb.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(result.Stderr)
	}
	if result.Truncated {
		sb.WriteString("\n[output truncated]")
	}
	if result.ExitCode != 0 {
		fmt.Fprintf(&sb, "\n[exit code: %d]", result.ExitCode)
	}

	output := models.TextOutput(sb.String())
	output.IsError = result.ExitCode != 0
	for _, path := range result.ExtractedPaths {
		output.Modifiers = append(output.Modifiers, models.FileReadModifier(path, ""))
	}
	if result.NewCwd != "" {
		output.Modifiers = append(output.Modifiers, models.ContextModifier{
			Kind: models.ModifierCwdChanged, NewCwd: result.NewCwd,
		})
	}
	return output
}
