package agent

import (
	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/pkg/models"
)

// InferenceContext is the resolved input to the request builder: which
// model, its metadata, the effective thinking level, and any raw request
// options supplied by configuration.
type InferenceContext struct {
	Selection models.RoleSelection
	ModelInfo providers.ModelInfo

	// RequestOptions is deep-merged into the converted provider options.
	RequestOptions map[string]any
}

// EffectiveThinking returns the thinking level to apply, nil when the model
// does not support the requested effort.
func (c *InferenceContext) EffectiveThinking() *models.ThinkingLevel {
	t := c.Selection.Thinking
	if t == nil || t.Effort == models.ThinkingNone {
		return nil
	}
	if len(c.Selection.SupportedEfforts) > 0 && !c.Selection.SupportsEffort(t.Effort) {
		return nil
	}
	return t
}

// RequestBuilder assembles a provider-agnostic GenerateRequest from an
// inference context, message history, and tool definitions. Explicit
// overrides take precedence over context fields, which take precedence over
// model defaults.
type RequestBuilder struct {
	context InferenceContext

	system   string
	messages []models.Message
	tools    []models.ToolDefinition
	choice   *providers.ToolChoice

	temperatureOverride *float64
	topPOverride        *float64
	maxTokensOverride   int

	previousResponseID string
}

// NewRequestBuilder creates a builder for the given context.
func NewRequestBuilder(ctx InferenceContext) *RequestBuilder {
	return &RequestBuilder{context: ctx}
}

// System sets the system prompt.
func (b *RequestBuilder) System(system string) *RequestBuilder {
	b.system = system
	return b
}

// Messages sets the conversation input.
func (b *RequestBuilder) Messages(messages []models.Message) *RequestBuilder {
	b.messages = messages
	return b
}

// Tools sets the tool definitions.
func (b *RequestBuilder) Tools(tools []models.ToolDefinition) *RequestBuilder {
	b.tools = tools
	return b
}

// ToolChoice sets the tool-choice constraint.
func (b *RequestBuilder) ToolChoice(choice providers.ToolChoice) *RequestBuilder {
	b.choice = &choice
	return b
}

// Temperature overrides the context temperature.
func (b *RequestBuilder) Temperature(t float64) *RequestBuilder {
	b.temperatureOverride = &t
	return b
}

// TopP overrides the context top_p.
func (b *RequestBuilder) TopP(p float64) *RequestBuilder {
	b.topPOverride = &p
	return b
}

// MaxTokens overrides the model's max output tokens.
func (b *RequestBuilder) MaxTokens(tokens int) *RequestBuilder {
	b.maxTokensOverride = tokens
	return b
}

// PreviousResponseID requests incremental resume.
func (b *RequestBuilder) PreviousResponseID(id string) *RequestBuilder {
	b.previousResponseID = id
	return b
}

// Build assembles the final request: sampling parameters by precedence,
// thinking config converted per provider kind, then request options
// deep-merged on top.
func (b *RequestBuilder) Build() *providers.GenerateRequest {
	req := &providers.GenerateRequest{
		Model:              b.context.Selection.Spec.Model,
		System:             b.system,
		Messages:           b.messages,
		Tools:              b.tools,
		ToolChoice:         b.choice,
		PreviousResponseID: b.previousResponseID,
	}

	// Override > context/model default > unset.
	if b.temperatureOverride != nil {
		req.Temperature = b.temperatureOverride
	} else {
		req.Temperature = b.context.ModelInfo.Temperature
	}
	if b.topPOverride != nil {
		req.TopP = b.topPOverride
	} else {
		req.TopP = b.context.ModelInfo.TopP
	}
	if b.maxTokensOverride > 0 {
		req.MaxTokens = b.maxTokensOverride
	} else {
		req.MaxTokens = b.context.ModelInfo.MaxOutputTokens
	}

	var opts map[string]any
	if level := b.context.EffectiveThinking(); level != nil {
		opts = thinkingToProviderOptions(*level, b.context.Selection.Spec.ProviderType)
	}
	if len(b.context.RequestOptions) > 0 {
		opts = deepMerge(opts, b.context.RequestOptions)
	}
	req.ProviderOptions = opts

	return req
}

// thinkingBudgets maps efforts to token budgets for budget-based providers.
var thinkingBudgets = map[models.ThinkingEffort]int{
	models.ThinkingLow:    2048,
	models.ThinkingMedium: 8192,
	models.ThinkingHigh:   16384,
	models.ThinkingXHigh:  32768,
}

// thinkingToProviderOptions converts a thinking level into the option shape
// each provider dialect expects.
func thinkingToProviderOptions(level models.ThinkingLevel, kind models.ProviderType) map[string]any {
	switch kind {
	case models.ProviderAnthropic, models.ProviderGemini:
		budget := level.BudgetTokens
		if budget <= 0 {
			budget = thinkingBudgets[level.Effort]
		}
		if budget <= 0 {
			return nil
		}
		return map[string]any{
			"thinking": map[string]any{
				"type":          "enabled",
				"budget_tokens": budget,
			},
		}
	default:
		// OpenAI dialects take a reasoning effort string; xhigh clamps
		// to high.
		effort := string(level.Effort)
		if level.Effort == models.ThinkingXHigh {
			effort = "high"
		}
		return map[string]any{"reasoning_effort": effort}
	}
}

// deepMerge merges src into dst recursively; src wins on conflicts. Both
// maps are left unmodified.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(dstMap, srcMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}
