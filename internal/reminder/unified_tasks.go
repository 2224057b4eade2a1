package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/cocodehq/cocode/internal/tasks"
)

// UnifiedTasksGenerator surfaces background task status each turn so the
// model can decide whether to poll or wait. Main-agent only: subagents do
// not see the parent's background work.
type UnifiedTasksGenerator struct{}

func (g *UnifiedTasksGenerator) Name() string                 { return "UnifiedTasksGenerator" }
func (g *UnifiedTasksGenerator) AttachmentType() AttachmentType { return AttachmentBackgroundTask }
func (g *UnifiedTasksGenerator) Tier() Tier                   { return TierMainAgentOnly }
func (g *UnifiedTasksGenerator) Throttle() ThrottleConfig     { return NoThrottle() }

func (g *UnifiedTasksGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.BackgroundTask
}

func (g *UnifiedTasksGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	if len(gctx.Tasks) == 0 {
		return nil, nil
	}
	return NewTextReminder(AttachmentBackgroundTask, formatTasks(gctx.Tasks)), nil
}

func formatTasks(all []tasks.Task) string {
	var running, completed, failed []tasks.Task
	for _, task := range all {
		switch task.Status {
		case tasks.StatusRunning:
			running = append(running, task)
		case tasks.StatusCompleted:
			completed = append(completed, task)
		case tasks.StatusFailed:
			failed = append(failed, task)
		}
	}

	var sb strings.Builder
	sb.WriteString("## Background Tasks\n\n")
	writeGroup(&sb, "Running", running)
	writeGroup(&sb, "Completed", completed)
	writeGroup(&sb, "Failed", failed)

	fmt.Fprintf(&sb, "Total: %d running, %d completed, %d failed\n",
		len(running), len(completed), len(failed))
	if len(running) > 0 {
		sb.WriteString("\nUse `TaskOutput` tool to check on running tasks.")
	}
	return sb.String()
}

func writeGroup(sb *strings.Builder, title string, group []tasks.Task) {
	if len(group) == 0 {
		return
	}
	sb.WriteString("### " + title + "\n")
	for _, task := range group {
		marker := ""
		if task.HasNewOutput {
			marker = " (new output)"
		}
		exitInfo := ""
		if task.ExitCode != nil {
			exitInfo = fmt.Sprintf(" [exit: %d]", *task.ExitCode)
		}
		fmt.Fprintf(sb, "- [%s] `%s`: %s%s%s\n", task.Type, task.ID, task.Command, exitInfo, marker)
	}
	sb.WriteString("\n")
}
