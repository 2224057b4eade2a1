package providers

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cocodehq/cocode/internal/status"
	"github.com/cocodehq/cocode/pkg/models"
)

func TestConvertOpenAIMessages(t *testing.T) {
	history := []models.Message{
		models.UserText("read the file"),
		models.AssistantMessage(
			models.TextBlock("reading now"),
			models.ToolUseContentBlock("call-1", "Read", json.RawMessage(`{"path":"x"}`)),
		),
		models.UserMessage(
			models.ToolResultContentBlock("call-1", models.TextResult("contents"), false),
		),
	}

	converted := convertOpenAIMessages(history, "be helpful")

	if converted[0].Role != openai.ChatMessageRoleSystem || converted[0].Content != "be helpful" {
		t.Errorf("system message = %+v", converted[0])
	}
	if converted[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("user message = %+v", converted[1])
	}
	assistant := converted[2]
	if assistant.Role != openai.ChatMessageRoleAssistant || len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant message = %+v", assistant)
	}
	if assistant.ToolCalls[0].Function.Name != "Read" {
		t.Errorf("tool call = %+v", assistant.ToolCalls[0])
	}
	toolMsg := converted[3]
	if toolMsg.Role != openai.ChatMessageRoleTool || toolMsg.ToolCallID != "call-1" {
		t.Errorf("tool message = %+v", toolMsg)
	}
	if toolMsg.Content != "contents" {
		t.Errorf("tool content = %q", toolMsg.Content)
	}
}

func TestConvertOpenAITools(t *testing.T) {
	defs := []models.ToolDefinition{{
		Name:        "Bash",
		Description: "run a command",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}}
	converted := convertOpenAITools(defs)
	if len(converted) != 1 || converted[0].Function.Name != "Bash" {
		t.Errorf("converted = %+v", converted)
	}
}

func TestThinkingBudgetFromOptions(t *testing.T) {
	if got := thinkingBudgetFromOptions(nil); got != 0 {
		t.Errorf("nil options = %d", got)
	}
	opts := map[string]any{"thinking": map[string]any{"type": "enabled", "budget_tokens": 8192}}
	if got := thinkingBudgetFromOptions(opts); got != 8192 {
		t.Errorf("budget = %d, want 8192", got)
	}
	// JSON round-tripped options arrive as float64.
	opts = map[string]any{"thinking": map[string]any{"type": "enabled", "budget_tokens": float64(4096)}}
	if got := thinkingBudgetFromOptions(opts); got != 4096 {
		t.Errorf("budget = %d, want 4096", got)
	}
	disabled := map[string]any{"thinking": map[string]any{"type": "disabled", "budget_tokens": 100}}
	if got := thinkingBudgetFromOptions(disabled); got != 0 {
		t.Errorf("disabled = %d, want 0", got)
	}
}

func TestNormalizeError_Classification(t *testing.T) {
	tests := []struct {
		message string
		want    status.Code
	}{
		{"429 too many requests", status.RateLimited},
		{"quota exceeded for project", status.QuotaExceeded},
		{"401 invalid api key", status.AuthenticationFailed},
		{"request timeout", status.Timeout},
		{"503 service unavailable", status.ServiceUnavailable},
		{"connection refused", status.NetworkError},
		{"previous response resp-1 not found", status.PreviousResponseNotFound},
		{"something odd", status.ProviderError},
	}
	for _, tt := range tests {
		err := normalizeError("test", errors.New(tt.message))
		if got := status.CodeOf(err); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
	if normalizeError("test", nil) != nil {
		t.Error("nil error passes through")
	}
}

func TestRetryAfterFromMessage(t *testing.T) {
	if got := retryAfterFromMessage("rate limited, retry after 7 seconds"); got != 7*time.Second {
		t.Errorf("retry after = %v, want 7s", got)
	}
	if got := retryAfterFromMessage("no hint here"); got != 0 {
		t.Errorf("retry after = %v, want 0", got)
	}
}
