package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cocodehq/cocode/pkg/models"
)

// maxAlreadyReadFiles caps how many synthetic pairs one reminder emits.
const maxAlreadyReadFiles = 10

// AlreadyReadFilesGenerator re-presents previously read files as synthetic
// Read tool-use/result pairs so the model retains their content after the
// originals were compacted away. Fires every 5 turns.
type AlreadyReadFilesGenerator struct{}

func (g *AlreadyReadFilesGenerator) Name() string                 { return "AlreadyReadFilesGenerator" }
func (g *AlreadyReadFilesGenerator) AttachmentType() AttachmentType { return AttachmentAlreadyReadFile }
func (g *AlreadyReadFilesGenerator) Tier() Tier                   { return TierMainAgentOnly }

func (g *AlreadyReadFilesGenerator) Throttle() ThrottleConfig {
	return ThrottleConfig{MinTurnsBetween: 5}
}

func (g *AlreadyReadFilesGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.AlreadyReadFiles
}

func (g *AlreadyReadFilesGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	if gctx.Files == nil {
		return nil, nil
	}
	tracked := gctx.Files.Tracked()
	if len(tracked) == 0 {
		return nil, nil
	}

	truncated := 0
	if len(tracked) > maxAlreadyReadFiles {
		truncated = len(tracked) - maxAlreadyReadFiles
		tracked = tracked[:maxAlreadyReadFiles]
	}

	var messages []models.Message
	for _, f := range tracked {
		if f.Content == "" {
			continue
		}
		callID := "read-" + uuid.NewString()[:8]
		inputJSON, _ := json.Marshal(map[string]any{"file_path": f.Path})
		use := models.AssistantMessage(models.ToolUseContentBlock(callID, "Read", inputJSON))
		use.IsMeta = true
		result := models.UserMessage(models.ToolResultContentBlock(callID, models.TextResult(f.Content), false))
		result.IsMeta = true
		messages = append(messages, use, result)
	}
	if truncated > 0 {
		note := models.UserText(fmt.Sprintf("... and %d more previously read files omitted.", truncated))
		note.IsMeta = true
		messages = append(messages, note)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return NewMessagesReminder(AttachmentAlreadyReadFile, messages), nil
}
