package agent

import (
	"testing"

	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/pkg/models"
)

func anthropicContext() InferenceContext {
	sel := models.NewRoleSelection(models.NewModelSpec("anthropic", "claude-opus-4"))
	sel.SupportedEfforts = []models.ThinkingEffort{
		models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh,
	}
	temp := 0.7
	return InferenceContext{
		Selection: sel,
		ModelInfo: providers.ModelInfo{
			ID: "claude-opus-4", ContextWindow: 200000, MaxOutputTokens: 8192, Temperature: &temp,
		},
	}
}

func TestRequestBuilder_ContextDefaults(t *testing.T) {
	req := NewRequestBuilder(anthropicContext()).
		Messages([]models.Message{models.UserText("hi")}).
		Build()

	if req.Model != "claude-opus-4" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("temperature = %v, want model default 0.7", req.Temperature)
	}
	if req.MaxTokens != 8192 {
		t.Errorf("max tokens = %d, want model default", req.MaxTokens)
	}
	if req.TopP != nil {
		t.Error("top_p should stay unset")
	}
}

func TestRequestBuilder_OverridesWin(t *testing.T) {
	req := NewRequestBuilder(anthropicContext()).
		Temperature(0.1).
		TopP(0.9).
		MaxTokens(1024).
		Build()

	if *req.Temperature != 0.1 {
		t.Errorf("temperature = %v, want override", *req.Temperature)
	}
	if *req.TopP != 0.9 {
		t.Errorf("top_p = %v", *req.TopP)
	}
	if req.MaxTokens != 1024 {
		t.Errorf("max tokens = %d", req.MaxTokens)
	}
}

func TestRequestBuilder_ThinkingConversion_Anthropic(t *testing.T) {
	ctx := anthropicContext()
	ctx.Selection.Thinking = &models.ThinkingLevel{Effort: models.ThinkingMedium}

	req := NewRequestBuilder(ctx).Build()
	thinking, ok := req.ProviderOptions["thinking"].(map[string]any)
	if !ok {
		t.Fatalf("provider options = %+v", req.ProviderOptions)
	}
	if thinking["type"] != "enabled" {
		t.Errorf("type = %v", thinking["type"])
	}
	if thinking["budget_tokens"] != 8192 {
		t.Errorf("budget = %v, want 8192 for medium", thinking["budget_tokens"])
	}
}

func TestRequestBuilder_ThinkingBudgetOverride(t *testing.T) {
	ctx := anthropicContext()
	ctx.Selection.Thinking = &models.ThinkingLevel{Effort: models.ThinkingLow, BudgetTokens: 5000}

	req := NewRequestBuilder(ctx).Build()
	thinking := req.ProviderOptions["thinking"].(map[string]any)
	if thinking["budget_tokens"] != 5000 {
		t.Errorf("budget = %v, want explicit 5000", thinking["budget_tokens"])
	}
}

func TestRequestBuilder_ThinkingConversion_OpenAI(t *testing.T) {
	sel := models.NewRoleSelection(models.NewModelSpec("openai", "o3-mini"))
	sel.SupportedEfforts = []models.ThinkingEffort{models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh}
	sel.Thinking = &models.ThinkingLevel{Effort: models.ThinkingHigh}
	ctx := InferenceContext{Selection: sel, ModelInfo: providers.ModelInfo{MaxOutputTokens: 4096}}

	req := NewRequestBuilder(ctx).Build()
	if req.ProviderOptions["reasoning_effort"] != "high" {
		t.Errorf("options = %+v", req.ProviderOptions)
	}
}

func TestRequestBuilder_XHighClampsForOpenAI(t *testing.T) {
	sel := models.NewRoleSelection(models.NewModelSpec("openai", "o3-mini"))
	sel.SupportedEfforts = []models.ThinkingEffort{models.ThinkingXHigh}
	sel.Thinking = &models.ThinkingLevel{Effort: models.ThinkingXHigh}
	ctx := InferenceContext{Selection: sel, ModelInfo: providers.ModelInfo{MaxOutputTokens: 4096}}

	req := NewRequestBuilder(ctx).Build()
	if req.ProviderOptions["reasoning_effort"] != "high" {
		t.Errorf("xhigh should clamp to high, got %+v", req.ProviderOptions)
	}
}

func TestRequestBuilder_UnsupportedEffortDropped(t *testing.T) {
	ctx := anthropicContext()
	// XHigh is not in the supported set.
	ctx.Selection.Thinking = &models.ThinkingLevel{Effort: models.ThinkingXHigh}

	req := NewRequestBuilder(ctx).Build()
	if req.ProviderOptions != nil {
		t.Errorf("unsupported effort should produce no thinking options, got %+v", req.ProviderOptions)
	}
}

func TestRequestBuilder_RequestOptionsDeepMerge(t *testing.T) {
	ctx := anthropicContext()
	ctx.Selection.Thinking = &models.ThinkingLevel{Effort: models.ThinkingLow}
	ctx.RequestOptions = map[string]any{
		"thinking": map[string]any{"budget_tokens": 999},
		"beta":     "interleaved",
	}

	req := NewRequestBuilder(ctx).Build()
	thinking := req.ProviderOptions["thinking"].(map[string]any)
	// Raw request options win over the converted value...
	if thinking["budget_tokens"] != 999 {
		t.Errorf("budget = %v, want raw option 999", thinking["budget_tokens"])
	}
	// ...while sibling keys from the conversion survive.
	if thinking["type"] != "enabled" {
		t.Errorf("type = %v, want preserved", thinking["type"])
	}
	if req.ProviderOptions["beta"] != "interleaved" {
		t.Error("top-level raw option missing")
	}
}
