package providers

import (
	"fmt"
	"os"
	"sync"

	"github.com/cocodehq/cocode/internal/status"
	"github.com/cocodehq/cocode/pkg/models"
)

// ModelInfo describes one model within a provider record. Unset fields fall
// back to the provider-level defaults during merge.
type ModelInfo struct {
	ID              string                  `json:"id" yaml:"id"`
	ContextWindow   int                     `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	MaxOutputTokens int                     `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
	SupportsVision  bool                    `json:"supports_vision,omitempty" yaml:"supports_vision,omitempty"`
	Temperature     *float64                `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP            *float64                `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	ThinkingEfforts []models.ThinkingEffort `json:"thinking_efforts,omitempty" yaml:"thinking_efforts,omitempty"`
	BaseURL         string                  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	EnvKey          string                  `json:"env_key,omitempty" yaml:"env_key,omitempty"`
}

// Record is a provider module: the name, API dialect, endpoint, credential
// source, and model list.
type Record struct {
	Name    string              `json:"name" yaml:"name"`
	Type    models.ProviderType `json:"type" yaml:"type"`
	BaseURL string              `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	EnvKey  string              `json:"env_key" yaml:"env_key"`
	Models  []ModelInfo         `json:"models,omitempty" yaml:"models,omitempty"`

	// Provider-level defaults merged into each model.
	ContextWindow   int `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	MaxOutputTokens int `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
}

// ResolveModel returns the merged ModelInfo for a model id. Model-level
// overrides win only for fields they set; everything else inherits the
// provider defaults. Unknown models inherit the defaults wholesale.
func (r *Record) ResolveModel(modelID string) ModelInfo {
	merged := ModelInfo{
		ID:            modelID,
		ContextWindow: r.ContextWindow,
		MaxOutputTokens: r.MaxOutputTokens,
		BaseURL:       r.BaseURL,
		EnvKey:        r.EnvKey,
	}
	for _, m := range r.Models {
		if m.ID != modelID {
			continue
		}
		if m.ContextWindow > 0 {
			merged.ContextWindow = m.ContextWindow
		}
		if m.MaxOutputTokens > 0 {
			merged.MaxOutputTokens = m.MaxOutputTokens
		}
		if m.SupportsVision {
			merged.SupportsVision = true
		}
		if m.Temperature != nil {
			merged.Temperature = m.Temperature
		}
		if m.TopP != nil {
			merged.TopP = m.TopP
		}
		if len(m.ThinkingEfforts) > 0 {
			merged.ThinkingEfforts = m.ThinkingEfforts
		}
		if m.BaseURL != "" {
			merged.BaseURL = m.BaseURL
		}
		if m.EnvKey != "" {
			merged.EnvKey = m.EnvKey
		}
		break
	}
	if merged.ContextWindow <= 0 {
		merged.ContextWindow = defaultContextWindow
	}
	if merged.MaxOutputTokens <= 0 {
		merged.MaxOutputTokens = defaultMaxOutputTokens
	}
	return merged
}

const (
	defaultContextWindow   = 128000
	defaultMaxOutputTokens = 8192
)

// builtinRecords covers the providers the core knows without configuration.
func builtinRecords() []Record {
	return []Record{
		{
			Name:          "anthropic",
			Type:          models.ProviderAnthropic,
			EnvKey:        "ANTHROPIC_API_KEY",
			ContextWindow: 200000,
			Models: []ModelInfo{
				{ID: "claude-sonnet-4-20250514", SupportsVision: true,
					ThinkingEfforts: []models.ThinkingEffort{models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh}},
				{ID: "claude-opus-4-20250514", SupportsVision: true,
					ThinkingEfforts: []models.ThinkingEffort{models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh, models.ThinkingXHigh}},
				{ID: "claude-3-5-haiku-20241022", SupportsVision: true},
			},
		},
		{
			Name:          "openai",
			Type:          models.ProviderOpenAI,
			EnvKey:        "OPENAI_API_KEY",
			ContextWindow: 128000,
			Models: []ModelInfo{
				{ID: "gpt-4o", SupportsVision: true},
				{ID: "gpt-4o-mini", SupportsVision: true},
				{ID: "o3-mini", ContextWindow: 200000,
					ThinkingEfforts: []models.ThinkingEffort{models.ThinkingLow, models.ThinkingMedium, models.ThinkingHigh}},
			},
		},
		{
			Name:          "gemini",
			Type:          models.ProviderGemini,
			EnvKey:        "GEMINI_API_KEY",
			ContextWindow: 1000000,
			Models: []ModelInfo{
				{ID: "gemini-2.0-flash", SupportsVision: true},
				{ID: "gemini-1.5-pro", ContextWindow: 2000000, SupportsVision: true},
			},
		},
		{
			Name:    "volcengine",
			Type:    models.ProviderVolcengine,
			BaseURL: "https://ark.cn-beijing.volces.com/api/v3",
			EnvKey:  "ARK_API_KEY",
		},
		{
			Name:    "zai",
			Type:    models.ProviderZai,
			BaseURL: "https://open.bigmodel.cn/api/paas/v4",
			EnvKey:  "ZAI_API_KEY",
		},
	}
}

// Registry resolves ModelSpecs to Provider adapters. Records are loaded at
// session start; adapters are constructed lazily and cached per provider
// name. Reads after initialization are lock-cheap.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
	cache   map[string]Provider
}

// NewRegistry creates a registry seeded with the builtin records plus any
// configured extras. Extra records override builtins by name.
func NewRegistry(extra ...Record) *Registry {
	records := make(map[string]Record)
	for _, r := range builtinRecords() {
		records[r.Name] = r
	}
	for _, r := range extra {
		if r.Type == "" {
			r.Type = models.ResolveProviderType(r.Name)
		}
		records[r.Name] = r
	}
	return &Registry{records: records, cache: make(map[string]Provider)}
}

// Record returns the record for a provider name. Unknown names get a
// synthetic OpenAI-compatible record with a conventional env key.
func (r *Registry) Record(name string) Record {
	r.mu.RLock()
	rec, ok := r.records[name]
	r.mu.RUnlock()
	if ok {
		return rec
	}
	return Record{
		Name:   name,
		Type:   models.ResolveProviderType(name),
		EnvKey: "OPENAI_API_KEY",
	}
}

// ModelInfoFor returns the merged model info for a spec.
func (r *Registry) ModelInfoFor(spec models.ModelSpec) ModelInfo {
	rec := r.Record(spec.Provider)
	return rec.ResolveModel(spec.Model)
}

// For resolves the adapter for a spec, constructing and caching it on first
// use.
func (r *Registry) For(spec models.ModelSpec) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.cache[spec.Provider]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	rec := r.Record(spec.Provider)
	apiKey := os.Getenv(rec.EnvKey)
	if apiKey == "" {
		return nil, status.Errorf(status.AuthenticationFailed,
			"no API key for provider %q: set %s", spec.Provider, rec.EnvKey)
	}

	var (
		p   Provider
		err error
	)
	switch rec.Type {
	case models.ProviderAnthropic:
		p, err = NewAnthropicProvider(AnthropicConfig{APIKey: apiKey, BaseURL: rec.BaseURL, Name: rec.Name})
	case models.ProviderGemini:
		p, err = NewGoogleProvider(GoogleConfig{APIKey: apiKey, Name: rec.Name})
	default:
		// OpenAI itself and every compatible dialect.
		p, err = NewOpenAIProvider(OpenAICompatConfig{
			APIKey:  apiKey,
			BaseURL: rec.BaseURL,
			Name:    rec.Name,
			Kind:    rec.Type,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create provider %q: %w", spec.Provider, err)
	}

	r.mu.Lock()
	r.cache[spec.Provider] = p
	r.mu.Unlock()
	return p, nil
}
