// Package models provides the protocol vocabulary for the cocode agent core:
// model specifications, roles, messages, content blocks, tool types, and
// sessions. Types here are plain data with no I/O; every subsystem in
// internal/ speaks in terms of this package.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderType identifies the API dialect used to talk to a provider.
type ProviderType string

const (
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderOpenAI      ProviderType = "openai"
	ProviderGemini      ProviderType = "gemini"
	ProviderVolcengine  ProviderType = "volcengine"
	ProviderZai         ProviderType = "zai"
	ProviderOpenAICompat ProviderType = "openai_compat"
)

// ResolveProviderType maps a provider name to its ProviderType.
// Unknown providers resolve to ProviderOpenAICompat for maximum compatibility.
func ResolveProviderType(provider string) ProviderType {
	switch strings.ToLower(provider) {
	case "anthropic":
		return ProviderAnthropic
	case "openai":
		return ProviderOpenAI
	case "gemini", "genai", "google":
		return ProviderGemini
	case "volcengine", "ark":
		return ProviderVolcengine
	case "zai", "zhipu", "zhipuai":
		return ProviderZai
	case "openai_compat", "openai-compat":
		return ProviderOpenAICompat
	default:
		return ProviderOpenAICompat
	}
}

// ModelSpec is the unified model specification: "{provider}/{model}" plus the
// resolved ProviderType for API dispatch. The model part may itself contain
// slashes (e.g. "openrouter/anthropic/claude-sonnet").
type ModelSpec struct {
	// Provider name (e.g. "anthropic", "openai", "genai").
	Provider string `json:"provider"`
	// Resolved provider type for API dispatch.
	ProviderType ProviderType `json:"provider_type"`
	// Model ID (e.g. "claude-opus-4", "gpt-5").
	Model string `json:"model"`
}

// NewModelSpec creates a spec with the provider type auto-resolved from the
// provider name.
func NewModelSpec(provider, model string) ModelSpec {
	return ModelSpec{
		Provider:     provider,
		ProviderType: ResolveProviderType(provider),
		Model:        model,
	}
}

// NewModelSpecWithType creates a spec with an explicit provider type,
// bypassing string-based resolution.
func NewModelSpecWithType(provider string, pt ProviderType, model string) ModelSpec {
	return ModelSpec{Provider: provider, ProviderType: pt, Model: model}
}

// ParseModelSpec parses the canonical "provider/model" form. Both parts must
// be non-empty; only the first slash separates provider from model.
func ParseModelSpec(s string) (ModelSpec, error) {
	provider, model, ok := strings.Cut(s, "/")
	if !ok || provider == "" || model == "" {
		return ModelSpec{}, fmt.Errorf("invalid model spec: expected 'provider/model', got %q", s)
	}
	return NewModelSpec(provider, model), nil
}

// String returns the canonical "provider/model" form.
func (s ModelSpec) String() string {
	return s.Provider + "/" + s.Model
}

// IsZero reports whether the spec is unset.
func (s ModelSpec) IsZero() bool {
	return s.Provider == "" && s.Model == ""
}

// MarshalJSON encodes the spec as its canonical string form.
func (s ModelSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes either the canonical string form or the expanded
// object form (for forward compatibility with older session files).
func (s *ModelSpec) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, perr := ParseModelSpec(str)
		if perr != nil {
			return perr
		}
		*s = parsed
		return nil
	}
	type alias ModelSpec
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.ProviderType == "" {
		obj.ProviderType = ResolveProviderType(obj.Provider)
	}
	*s = ModelSpec(obj)
	return nil
}

// MarshalYAML encodes the spec as its canonical string form.
func (s ModelSpec) MarshalYAML() (any, error) {
	return s.String(), nil
}

// UnmarshalYAML decodes the canonical string form.
func (s *ModelSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	parsed, err := ParseModelSpec(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
