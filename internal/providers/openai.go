package providers

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cocodehq/cocode/pkg/models"
)

// OpenAIProvider adapts the OpenAI chat-completions dialect to the Provider
// contract. It also serves every OpenAI-compatible provider (Volcengine,
// Zai, unknown providers) by pointing the client at a different base URL.
type OpenAIProvider struct {
	client *openai.Client
	name   string
	kind   models.ProviderType
}

// OpenAICompatConfig configures an OpenAI-dialect adapter.
type OpenAICompatConfig struct {
	// APIKey is required.
	APIKey string
	// BaseURL overrides the endpoint for compatible providers.
	BaseURL string
	// Name is the provider name used in ModelSpec strings.
	Name string
	// Kind is the resolved provider type (openai, volcengine, zai,
	// openai_compat).
	Kind models.ProviderType
}

// NewOpenAIProvider creates an adapter for OpenAI or any compatible dialect.
func NewOpenAIProvider(config OpenAICompatConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if strings.TrimSpace(config.BaseURL) != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	name := config.Name
	if name == "" {
		name = "openai"
	}
	kind := config.Kind
	if kind == "" {
		kind = models.ProviderOpenAI
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		name:   name,
		kind:   kind,
	}, nil
}

func (p *OpenAIProvider) Name() string                    { return p.name }
func (p *OpenAIProvider) Kind() models.ProviderType       { return p.kind }
func (p *OpenAIProvider) SupportsPreviousResponseID() bool { return false }

// Stream issues the request and normalizes chat-completion chunks.
func (p *OpenAIProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertOpenAIMessages(req.Messages, req.System),
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		chatReq.TopP = float32(*req.TopP)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertOpenAITools(req.Tools)
	}
	if req.ToolChoice != nil {
		chatReq.ToolChoice = convertOpenAIToolChoice(req.ToolChoice)
	}
	if effort, ok := req.ProviderOptions["reasoning_effort"].(string); ok && effort != "" {
		chatReq.ReasoningEffort = effort
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, normalizeError(p.name, err)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()
		p.processStream(ctx, stream, events)
	}()
	return events, nil
}

// openAIToolState accumulates one tool call across delta chunks.
type openAIToolState struct {
	index   int
	started bool
	closed  bool
}

func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, events chan<- StreamEvent) {
	// Tool-call fragments are keyed by the provider's per-choice index.
	calls := make(map[int]*openAIToolState)
	var openCall *openAIToolState
	var usage models.TokenUsage
	sawToolCalls := false
	finish := models.FinishStop

	closeOpen := func() {
		if openCall != nil && !openCall.closed {
			events <- StreamEvent{Type: EventToolCallStop}
			openCall.closed = true
		}
		openCall = nil
	}

	for {
		select {
		case <-ctx.Done():
			events <- StreamEvent{Type: EventError, Err: normalizeError(p.name, ctx.Err())}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				closeOpen()
				if sawToolCalls {
					finish = models.FinishToolCalls
				}
				u := usage
				events <- StreamEvent{Type: EventResponseDone, Usage: &u, FinishReason: finish, ResponseID: ""}
				return
			}
			events <- StreamEvent{Type: EventError, Err: normalizeError(p.name, err)}
			return
		}

		if response.Usage != nil {
			usage.InputTokens = int64(response.Usage.PromptTokens)
			usage.OutputTokens = int64(response.Usage.CompletionTokens)
		}
		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]

		if choice.Delta.Content != "" {
			events <- StreamEvent{Type: EventTextDelta, Delta: choice.Delta.Content}
		}

		for _, tc := range sortedToolDeltas(choice.Delta.ToolCalls) {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			state := calls[index]
			if state == nil {
				state = &openAIToolState{index: index}
				calls[index] = state
			}
			if tc.ID != "" && tc.Function.Name != "" && !state.started {
				// A new call begins; close any call still open.
				closeOpen()
				state.started = true
				openCall = state
				events <- StreamEvent{Type: EventToolCallStart, ToolID: tc.ID, ToolName: tc.Function.Name}
			}
			if tc.Function.Arguments != "" && state.started && !state.closed {
				events <- StreamEvent{Type: EventToolInputDelta, Delta: tc.Function.Arguments}
			}
		}

		switch choice.FinishReason {
		case openai.FinishReasonToolCalls:
			sawToolCalls = true
			closeOpen()
		case openai.FinishReasonLength:
			finish = models.FinishMaxTokens
		}
	}
}

// sortedToolDeltas orders deltas by index so interleaved parallel calls
// stream deterministically.
func sortedToolDeltas(deltas []openai.ToolCall) []openai.ToolCall {
	if len(deltas) <= 1 {
		return deltas
	}
	out := make([]openai.ToolCall, len(deltas))
	copy(out, deltas)
	sort.SliceStable(out, func(i, j int) bool {
		var a, b int
		if out[i].Index != nil {
			a = *out[i].Index
		}
		if out[j].Index != nil {
			b = *out[j].Index
		}
		return a < b
	})
	return out
}

func convertOpenAIMessages(messages []models.Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})

		case models.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, use := range msg.ToolUses() {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   use.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      use.Name,
						Arguments: string(use.Input),
					},
				})
			}
			result = append(result, oaiMsg)

		default:
			// Tool results become one tool message each; remaining user
			// content follows as a user message.
			for _, tr := range msg.ToolResults() {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.Content.ToText(),
					ToolCallID: tr.ToolUseID,
				})
			}
			if parts := convertOpenAIUserParts(msg); len(parts) > 0 {
				result = append(result, openai.ChatCompletionMessage{
					Role:         openai.ChatMessageRoleUser,
					MultiContent: parts,
				})
			} else if text := msg.Text(); text != "" {
				result = append(result, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				})
			}
		}
	}
	return result
}

// convertOpenAIUserParts returns multi-content parts when the message mixes
// text and images; nil for text-only messages.
func convertOpenAIUserParts(msg models.Message) []openai.ChatMessagePart {
	hasImage := false
	for _, block := range msg.Content {
		if block.Type == models.BlockImage {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return nil
	}
	var parts []openai.ChatMessagePart
	for _, block := range msg.Content {
		switch block.Type {
		case models.BlockText:
			if block.Text != "" {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: block.Text,
				})
			}
		case models.BlockImage:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + block.Image.MediaType + ";base64," + block.Image.Data,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}
	return parts
}

func convertOpenAITools(tools []models.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		}
	}
	return result
}

func convertOpenAIToolChoice(choice *ToolChoice) any {
	switch choice.Mode {
	case ToolChoiceNone:
		return "none"
	case ToolChoiceRequired:
		return "required"
	case ToolChoiceNamed:
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: choice.Name},
		}
	default:
		return "auto"
	}
}
