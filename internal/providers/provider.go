// Package providers implements the LLM provider adapters for the cocode
// agent core. Each adapter converts a generic GenerateRequest plus message
// history into a provider-specific streaming call and normalizes the events
// back into a uniform StreamEvent channel.
//
// Adapters exist for Anthropic (anthropic-sdk-go), OpenAI and every
// OpenAI-compatible dialect including Volcengine and Zai (sashabaranov/
// go-openai with a per-provider base URL), and Gemini (google.golang.org/
// genai). Unknown providers dispatch through the OpenAI-compatible adapter.
package providers

import (
	"context"

	"github.com/cocodehq/cocode/pkg/models"
)

// EventType identifies a normalized stream event.
type EventType string

const (
	// EventTextDelta carries incremental assistant text.
	EventTextDelta EventType = "text_delta"
	// EventThinkingDelta carries incremental reasoning text.
	EventThinkingDelta EventType = "thinking_delta"
	// EventThinkingDone closes a thinking block, optionally with a
	// provider signature.
	EventThinkingDone EventType = "thinking_done"
	// EventToolCallStart opens a tool call; ID and Name are set.
	EventToolCallStart EventType = "tool_call_start"
	// EventToolInputDelta carries a partial JSON fragment of the current
	// tool call's arguments.
	EventToolInputDelta EventType = "tool_input_delta"
	// EventToolCallStop closes the current tool call.
	EventToolCallStop EventType = "tool_call_stop"
	// EventResponseDone terminates the stream with usage and a finish
	// reason.
	EventResponseDone EventType = "response_done"
	// EventError terminates the stream with an error.
	EventError EventType = "error"
)

// StreamEvent is one normalized event from a provider stream.
type StreamEvent struct {
	Type EventType

	// Delta is text for EventTextDelta / EventThinkingDelta, or a JSON
	// fragment for EventToolInputDelta.
	Delta string

	// Signature accompanies EventThinkingDone when the provider signs
	// reasoning blocks.
	Signature string

	// ToolID and ToolName accompany EventToolCallStart.
	ToolID   string
	ToolName string

	// Usage and FinishReason accompany EventResponseDone.
	Usage        *models.TokenUsage
	FinishReason models.FinishReason

	// ResponseID is the server-issued response id, when the adapter
	// supports incremental resume.
	ResponseID string

	// Err accompanies EventError.
	Err error
}

// ToolChoiceMode constrains how the model may use tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice selects a tool-choice mode, with Name set for ToolChoiceNamed.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Name string         `json:"name,omitempty"`
}

// GenerateRequest is the provider-agnostic request assembled by the request
// builder.
type GenerateRequest struct {
	Model    string
	System   string
	Messages []models.Message

	Tools      []models.ToolDefinition
	ToolChoice *ToolChoice

	Temperature *float64
	TopP        *float64
	MaxTokens   int

	// ProviderOptions carries provider-specific options such as thinking
	// config, deep-merged by the request builder.
	ProviderOptions map[string]any

	// PreviousResponseID requests incremental resume on adapters that
	// support it; Messages then contains only new user-input items.
	PreviousResponseID string
}

// Provider is the adapter contract. Implementations are safe for concurrent
// use; each Stream call owns an independent goroutine and channel.
type Provider interface {
	// Name returns the provider name used in ModelSpec strings.
	Name() string

	// Kind returns the API dialect this adapter speaks.
	Kind() models.ProviderType

	// Stream issues the request and returns a channel of normalized
	// events. The channel is closed after a terminal event
	// (EventResponseDone or EventError).
	Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// SupportsPreviousResponseID reports whether the adapter honors
	// GenerateRequest.PreviousResponseID.
	SupportsPreviousResponseID() bool
}
