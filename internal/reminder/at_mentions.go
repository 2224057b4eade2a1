package reminder

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cocodehq/cocode/pkg/models"
)

// atMentionPattern matches @path with an optional :N or :N-M line range.
var atMentionPattern = regexp.MustCompile(`@([\w./~-]+)(?::(\d+)(?:-(\d+))?)?`)

// FileMention is one parsed @path[:range] reference.
type FileMention struct {
	Path string
	// StartLine and EndLine are 1-based inclusive; zero means unset.
	// StartLine without EndLine means "to end of file".
	StartLine int
	EndLine   int
}

// ParseFileMentions extracts @path mentions from a prompt. Agent mentions
// (@agent-*) are excluded.
func ParseFileMentions(prompt string) []FileMention {
	var out []FileMention
	for _, m := range atMentionPattern.FindAllStringSubmatch(prompt, -1) {
		path := m[1]
		if strings.HasPrefix(path, "agent-") {
			continue
		}
		mention := FileMention{Path: path}
		if m[2] != "" {
			mention.StartLine, _ = strconv.Atoi(m[2])
		}
		if m[3] != "" {
			mention.EndLine, _ = strconv.Atoi(m[3])
		}
		out = append(out, mention)
	}
	return out
}

// AtMentionedFilesGenerator turns @path mentions in the user prompt into
// synthetic Read tool-use/result pairs so the model sees the file content
// as if it had called Read itself.
type AtMentionedFilesGenerator struct{}

func (g *AtMentionedFilesGenerator) Name() string                 { return "AtMentionedFilesGenerator" }
func (g *AtMentionedFilesGenerator) AttachmentType() AttachmentType { return AttachmentAtMentionedFiles }
func (g *AtMentionedFilesGenerator) Tier() Tier                   { return TierUserPrompt }
func (g *AtMentionedFilesGenerator) Throttle() ThrottleConfig     { return NoThrottle() }

func (g *AtMentionedFilesGenerator) IsEnabled(config *Config) bool {
	return config.Attachments.AtMentionedFiles
}

func (g *AtMentionedFilesGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	mentions := ParseFileMentions(gctx.UserPrompt)
	if len(mentions) == 0 {
		return nil, nil
	}

	var messages []models.Message
	for _, mention := range mentions {
		path := mention.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(gctx.Cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := sliceLines(string(data), mention.StartLine, mention.EndLine)

		callID := "read-" + uuid.NewString()[:8]
		input := map[string]any{"file_path": path}
		if mention.StartLine > 0 {
			input["offset"] = mention.StartLine
			if mention.EndLine > 0 {
				input["limit"] = mention.EndLine - mention.StartLine + 1
			}
		}
		inputJSON, _ := json.Marshal(input)

		use := models.AssistantMessage(models.ToolUseContentBlock(callID, "Read", inputJSON))
		use.IsMeta = true
		result := models.UserMessage(models.ToolResultContentBlock(callID, models.TextResult(content), false))
		result.IsMeta = true
		messages = append(messages, use, result)

		if gctx.Files != nil {
			fullRead := mention.StartLine == 0 && mention.EndLine == 0
			tracked := ""
			if fullRead {
				tracked = string(data)
			}
			gctx.Files.Track(path, tracked, fullRead)
		}
	}
	if len(messages) == 0 {
		return nil, nil
	}
	// The mention pairs mimic the Read tool so later real reads dedupe.
	return NewMessagesReminder(AttachmentAtMentionedFiles, messages), nil
}

// sliceLines extracts a 1-based inclusive line range. start==0 means the
// whole file; end==0 means to EOF.
func sliceLines(content string, start, end int) string {
	if start <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if start > len(lines) {
		return ""
	}
	last := len(lines)
	if end > 0 && end < last {
		last = end
	}
	return strings.Join(lines[start-1:last], "\n")
}

// EscapeJSONString escapes a string for embedding in hand-built JSON.
func EscapeJSONString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(out[1 : len(out)-1])
}
