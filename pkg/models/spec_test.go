package models

import (
	"encoding/json"
	"testing"
)

func TestResolveProviderType(t *testing.T) {
	tests := []struct {
		provider string
		want     ProviderType
	}{
		{"anthropic", ProviderAnthropic},
		{"Anthropic", ProviderAnthropic},
		{"openai", ProviderOpenAI},
		{"gemini", ProviderGemini},
		{"genai", ProviderGemini},
		{"google", ProviderGemini},
		{"volcengine", ProviderVolcengine},
		{"ark", ProviderVolcengine},
		{"zai", ProviderZai},
		{"zhipu", ProviderZai},
		{"zhipuai", ProviderZai},
		{"openai_compat", ProviderOpenAICompat},
		{"openai-compat", ProviderOpenAICompat},
		{"unknown", ProviderOpenAICompat},
		{"", ProviderOpenAICompat},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			if got := ResolveProviderType(tt.provider); got != tt.want {
				t.Errorf("ResolveProviderType(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestParseModelSpec(t *testing.T) {
	spec, err := ParseModelSpec("anthropic/claude-opus-4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", spec.Provider)
	}
	if spec.Model != "claude-opus-4" {
		t.Errorf("model = %q, want claude-opus-4", spec.Model)
	}
	if spec.ProviderType != ProviderAnthropic {
		t.Errorf("provider type = %q, want anthropic", spec.ProviderType)
	}
}

func TestParseModelSpec_ModelWithSlashes(t *testing.T) {
	spec, err := ParseModelSpec("openrouter/anthropic/claude-sonnet")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Provider != "openrouter" {
		t.Errorf("provider = %q, want openrouter", spec.Provider)
	}
	if spec.Model != "anthropic/claude-sonnet" {
		t.Errorf("model = %q, want anthropic/claude-sonnet", spec.Model)
	}
}

func TestParseModelSpec_Malformed(t *testing.T) {
	for _, input := range []string{"claude-opus-4", "/x", "x/", "", "/"} {
		if _, err := ParseModelSpec(input); err == nil {
			t.Errorf("ParseModelSpec(%q) succeeded, want error", input)
		}
	}
}

func TestModelSpec_RoundTrip(t *testing.T) {
	specs := []ModelSpec{
		NewModelSpec("anthropic", "claude-opus-4"),
		NewModelSpec("openai", "gpt-5"),
		NewModelSpec("myprovider", "some/model/id"),
	}
	for _, spec := range specs {
		parsed, err := ParseModelSpec(spec.String())
		if err != nil {
			t.Fatalf("parse(format(%v)): %v", spec, err)
		}
		if parsed != spec {
			t.Errorf("round trip = %+v, want %+v", parsed, spec)
		}
	}
}

func TestModelSpec_JSON(t *testing.T) {
	spec := NewModelSpec("openai", "gpt-5")
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"openai/gpt-5"` {
		t.Errorf("marshal = %s, want \"openai/gpt-5\"", data)
	}

	var back ModelSpec
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != spec {
		t.Errorf("unmarshal = %+v, want %+v", back, spec)
	}
}

func TestModelSpec_WithType(t *testing.T) {
	spec := NewModelSpecWithType("my-custom-openai", ProviderOpenAI, "gpt-5")
	if spec.Provider != "my-custom-openai" {
		t.Errorf("provider = %q", spec.Provider)
	}
	if spec.ProviderType != ProviderOpenAI {
		t.Errorf("provider type = %q, want openai", spec.ProviderType)
	}
}

func TestParseModelRole(t *testing.T) {
	for _, name := range []string{"main", "MAIN", "Main"} {
		role, ok := ParseModelRole(name)
		if !ok || role != RoleModelMain {
			t.Errorf("ParseModelRole(%q) = %q, %v", name, role, ok)
		}
	}
	if _, ok := ParseModelRole("nonsense"); ok {
		t.Error("ParseModelRole(nonsense) should fail")
	}
}

func TestThinkingEffort_Next(t *testing.T) {
	tests := []struct {
		from, want ThinkingEffort
	}{
		{ThinkingNone, ThinkingLow},
		{ThinkingLow, ThinkingMedium},
		{ThinkingMedium, ThinkingHigh},
		{ThinkingHigh, ThinkingXHigh},
		{ThinkingXHigh, ThinkingNone},
	}
	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("%q.Next() = %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestExecutionIdentity_Resolve(t *testing.T) {
	selections := NewRoleSelections()
	selections.Set(RoleModelMain, NewRoleSelection(NewModelSpec("openai", "gpt-5")))

	// Role with fallback to main.
	sel, err := RoleIdentity(RoleModelFast).Resolve(selections, nil)
	if err != nil {
		t.Fatalf("resolve role: %v", err)
	}
	if sel.ModelName() != "gpt-5" {
		t.Errorf("fast fallback = %q, want gpt-5", sel.ModelName())
	}

	// Explicit spec.
	sel, err = SpecIdentity(NewModelSpec("anthropic", "claude-haiku")).Resolve(selections, nil)
	if err != nil {
		t.Fatalf("resolve spec: %v", err)
	}
	if sel.ModelName() != "claude-haiku" {
		t.Errorf("spec = %q, want claude-haiku", sel.ModelName())
	}

	// Inherit without a parent fails.
	if _, err := InheritIdentity().Resolve(selections, nil); err == nil {
		t.Error("inherit without parent should fail")
	}

	// Inherit with a parent.
	parent := NewRoleSelection(NewModelSpec("anthropic", "claude-opus-4"))
	sel, err = InheritIdentity().Resolve(selections, &parent)
	if err != nil {
		t.Fatalf("resolve inherit: %v", err)
	}
	if sel.ModelName() != "claude-opus-4" {
		t.Errorf("inherit = %q, want claude-opus-4", sel.ModelName())
	}
}

func TestRoleSelections_GetOrMain(t *testing.T) {
	selections := NewRoleSelections()
	selections.Set(RoleModelMain, NewRoleSelection(NewModelSpec("openai", "gpt-5")))

	sel, ok := selections.GetOrMain(RoleModelFast)
	if !ok {
		t.Fatal("expected fallback to main")
	}
	if sel.ModelName() != "gpt-5" {
		t.Errorf("model = %q, want gpt-5", sel.ModelName())
	}

	selections.Set(RoleModelFast, NewRoleSelection(NewModelSpec("openai", "gpt-4o-mini")))
	sel, _ = selections.GetOrMain(RoleModelFast)
	if sel.ModelName() != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", sel.ModelName())
	}
}
