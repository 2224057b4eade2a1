package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/cocodehq/cocode/pkg/models"
)

// maxEmptyStreamEvents bounds consecutive empty SSE events before the stream
// is treated as malformed.
const maxEmptyStreamEvents = 300

// AnthropicProvider adapts the Anthropic Messages API to the Provider
// contract. Safe for concurrent use; each Stream call owns its goroutine.
type AnthropicProvider struct {
	client anthropic.Client
	name   string
}

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	// APIKey is required.
	APIKey string
	// BaseURL overrides the default API endpoint.
	BaseURL string
	// Name overrides the provider name used in ModelSpec strings.
	Name string
}

// NewAnthropicProvider creates an Anthropic adapter.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	name := config.Name
	if name == "" {
		name = "anthropic"
	}
	return &AnthropicProvider{client: anthropic.NewClient(options...), name: name}, nil
}

func (p *AnthropicProvider) Name() string                    { return p.name }
func (p *AnthropicProvider) Kind() models.ProviderType       { return models.ProviderAnthropic }
func (p *AnthropicProvider) SupportsPreviousResponseID() bool { return false }

// Stream issues the request and normalizes Anthropic SSE events.
func (p *AnthropicProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error) {
	stream, err := p.createStream(ctx, req)
	if err != nil {
		return nil, normalizeError(p.name, err)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		p.processStream(stream, events)
	}()
	return events, nil
}

func (p *AnthropicProvider) createStream(ctx context.Context, req *GenerateRequest) (*ssestream.Stream[anthropic.MessageStreamEventUnion], error) {
	messages, err := convertAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}

	if len(req.Tools) > 0 {
		tools, err := convertAnthropicTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	if budget := thinkingBudgetFromOptions(req.ProviderOptions); budget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	return p.client.Messages.NewStreaming(ctx, params), nil
}

// thinkingBudgetFromOptions reads the converted thinking config out of
// provider options. Zero means thinking disabled.
func thinkingBudgetFromOptions(opts map[string]any) int64 {
	thinking, ok := opts["thinking"].(map[string]any)
	if !ok {
		return 0
	}
	if enabled, ok := thinking["type"].(string); ok && enabled != "enabled" {
		return 0
	}
	switch v := thinking["budget_tokens"].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], events chan<- StreamEvent) {
	var (
		toolOpen      bool
		thinkingOpen  bool
		sawToolUse    bool
		responseID    string
		usage         models.TokenUsage
		emptyEvents   int
		thinkingSig   strings.Builder
	)

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			responseID = start.Message.ID
			usage.InputTokens = start.Message.Usage.InputTokens
			usage.CacheReadTokens = start.Message.Usage.CacheReadInputTokens
			usage.CacheCreationTokens = start.Message.Usage.CacheCreationInputTokens
			processed = true

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			switch block.Type {
			case "thinking":
				thinkingOpen = true
				thinkingSig.Reset()
				processed = true
			case "tool_use":
				toolUse := block.AsToolUse()
				toolOpen = true
				sawToolUse = true
				events <- StreamEvent{Type: EventToolCallStart, ToolID: toolUse.ID, ToolName: toolUse.Name}
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					events <- StreamEvent{Type: EventTextDelta, Delta: delta.Text}
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					events <- StreamEvent{Type: EventThinkingDelta, Delta: delta.Thinking}
					processed = true
				}
			case "signature_delta":
				if delta.Signature != "" {
					thinkingSig.WriteString(delta.Signature)
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					events <- StreamEvent{Type: EventToolInputDelta, Delta: delta.PartialJSON}
					processed = true
				}
			}

		case "content_block_stop":
			if thinkingOpen {
				events <- StreamEvent{Type: EventThinkingDone, Signature: thinkingSig.String()}
				thinkingOpen = false
				processed = true
			} else if toolOpen {
				events <- StreamEvent{Type: EventToolCallStop}
				toolOpen = false
				processed = true
			}

		case "message_delta":
			delta := event.AsMessageDelta()
			if delta.Usage.OutputTokens > 0 {
				usage.OutputTokens = delta.Usage.OutputTokens
			}
			processed = true

		case "message_stop":
			finish := models.FinishStop
			if sawToolUse {
				finish = models.FinishToolCalls
			}
			u := usage
			events <- StreamEvent{Type: EventResponseDone, Usage: &u, FinishReason: finish, ResponseID: responseID}
			return

		case "error":
			events <- StreamEvent{Type: EventError, Err: normalizeError(p.name, errors.New("anthropic stream error"))}
			return
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				events <- StreamEvent{Type: EventError, Err: normalizeError(p.name,
					fmt.Errorf("stream appears malformed: %d consecutive empty events", emptyEvents))}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		events <- StreamEvent{Type: EventError, Err: normalizeError(p.name, err)}
		return
	}
	// Stream ended without message_stop; synthesize completion.
	finish := models.FinishStop
	if sawToolUse {
		finish = models.FinishToolCalls
	}
	u := usage
	events <- StreamEvent{Type: EventResponseDone, Usage: &u, FinishReason: finish, ResponseID: responseID}
}

func convertAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		// System messages travel separately in params.System.
		if msg.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch block.Type {
			case models.BlockText:
				if block.Text != "" {
					content = append(content, anthropic.NewTextBlock(block.Text))
				}
			case models.BlockThinking:
				// Replay signed thinking blocks only; unsigned blocks are
				// rejected by the API.
				if block.Thinking != nil && block.Thinking.Signature != "" {
					content = append(content, anthropic.NewThinkingBlock(block.Thinking.Signature, block.Thinking.Content))
				}
			case models.BlockToolUse:
				var input map[string]any
				if err := json.Unmarshal(block.ToolUse.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %s: %w", block.ToolUse.Name, err)
				}
				content = append(content, anthropic.NewToolUseBlock(block.ToolUse.ID, input, block.ToolUse.Name))
			case models.BlockToolResult:
				content = append(content, anthropic.NewToolResultBlock(
					block.ToolResult.ToolUseID,
					block.ToolResult.Content.ToText(),
					block.ToolResult.IsError,
				))
			case models.BlockImage:
				content = append(content, anthropic.NewImageBlockBase64(block.Image.MediaType, block.Image.Data))
			}
		}
		if len(content) == 0 {
			continue
		}

		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			// User and tool roles both map to user messages.
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, nil
}

func convertAnthropicTools(tools []models.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		param.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, param)
	}
	return result, nil
}
