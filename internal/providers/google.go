package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cocodehq/cocode/pkg/models"
)

// GoogleProvider adapts the Gemini API to the Provider contract using the
// Google Gen AI SDK. Gemini delivers function calls whole rather than as
// JSON fragments; the adapter emits a start/delta/stop triple per call so
// the unified stream decodes every dialect the same way.
type GoogleProvider struct {
	client *genai.Client
	name   string
}

// GoogleConfig configures the Gemini adapter.
type GoogleConfig struct {
	// APIKey is required.
	APIKey string
	// Name overrides the provider name used in ModelSpec strings.
	Name string
}

// NewGoogleProvider creates a Gemini adapter.
func NewGoogleProvider(config GoogleConfig) (*GoogleProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("google: API key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}
	name := config.Name
	if name == "" {
		name = "gemini"
	}
	return &GoogleProvider{client: client, name: name}, nil
}

func (p *GoogleProvider) Name() string                    { return p.name }
func (p *GoogleProvider) Kind() models.ProviderType       { return models.ProviderGemini }
func (p *GoogleProvider) SupportsPreviousResponseID() bool { return false }

// Stream issues the request and normalizes Gemini stream responses.
func (p *GoogleProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error) {
	contents, err := convertGeminiMessages(req.Messages)
	if err != nil {
		return nil, normalizeError(p.name, err)
	}
	config := p.buildConfig(req)

	events := make(chan StreamEvent)
	go func() {
		defer close(events)

		var usage models.TokenUsage
		sawToolCall := false
		callSeq := 0

		for resp, err := range p.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				events <- StreamEvent{Type: EventError, Err: normalizeError(p.name, err)}
				return
			}
			if resp == nil {
				continue
			}
			if resp.UsageMetadata != nil {
				usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
				usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
				usage.ReasoningTokens = int64(resp.UsageMetadata.ThoughtsTokenCount)
			}
			for _, candidate := range resp.Candidates {
				if candidate == nil || candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part == nil {
						continue
					}
					if part.Text != "" {
						eventType := EventTextDelta
						if part.Thought {
							eventType = EventThinkingDelta
						}
						events <- StreamEvent{Type: eventType, Delta: part.Text}
					}
					if part.FunctionCall != nil {
						argsJSON, jerr := json.Marshal(part.FunctionCall.Args)
						if jerr != nil {
							argsJSON = []byte("{}")
						}
						callSeq++
						sawToolCall = true
						id := part.FunctionCall.ID
						if id == "" {
							id = fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, callSeq)
						}
						events <- StreamEvent{Type: EventToolCallStart, ToolID: id, ToolName: part.FunctionCall.Name}
						events <- StreamEvent{Type: EventToolInputDelta, Delta: string(argsJSON)}
						events <- StreamEvent{Type: EventToolCallStop}
					}
				}
			}
		}

		finish := models.FinishStop
		if sawToolCall {
			finish = models.FinishToolCalls
		}
		u := usage
		events <- StreamEvent{Type: EventResponseDone, Usage: &u, FinishReason: finish}
	}()
	return events, nil
}

func (p *GoogleProvider) buildConfig(req *GenerateRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(req.MaxTokens, 1<<31-1))
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.TopP != nil {
		tp := float32(*req.TopP)
		config.TopP = &tp
	}
	if len(req.Tools) > 0 {
		config.Tools = convertGeminiTools(req.Tools)
	}
	if budget := thinkingBudgetFromOptions(req.ProviderOptions); budget > 0 {
		b := int32(min(budget, 1<<31-1))
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  &b,
		}
	}
	return config
}

func convertGeminiMessages(messages []models.Message) ([]*genai.Content, error) {
	var result []*genai.Content
	for _, msg := range messages {
		// System messages travel via SystemInstruction.
		if msg.Role == models.RoleSystem {
			continue
		}
		content := &genai.Content{}
		if msg.Role == models.RoleAssistant {
			content.Role = genai.RoleModel
		} else {
			content.Role = genai.RoleUser
		}

		for _, block := range msg.Content {
			switch block.Type {
			case models.BlockText:
				if block.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: block.Text})
				}
			case models.BlockToolUse:
				var args map[string]any
				if err := json.Unmarshal(block.ToolUse.Input, &args); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %s: %w", block.ToolUse.Name, err)
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   block.ToolUse.ID,
						Name: block.ToolUse.Name,
						Args: args,
					},
				})
			case models.BlockToolResult:
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:   block.ToolResult.ToolUseID,
						Name: block.ToolResult.ToolUseID,
						Response: map[string]any{
							"result": block.ToolResult.Content.ToText(),
						},
					},
				})
			case models.BlockImage:
				content.Parts = append(content.Parts, &genai.Part{
					InlineData: &genai.Blob{
						MIMEType: block.Image.MediaType,
						Data:     []byte(block.Image.Data),
					},
				})
			}
		}
		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result, nil
}

func convertGeminiTools(tools []models.ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.InputSchema, &schemaMap); err != nil {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGeminiSchema(schemaMap),
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a JSON Schema map to Gemini's Schema type.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}
	schema := &genai.Schema{}
	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}
