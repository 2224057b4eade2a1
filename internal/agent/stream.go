// Package agent implements the session driver for the cocode core: the
// unified stream decoder, the request builder, the tool dispatcher, and the
// turn loop that ties providers, tools, reminders, compaction, and hooks
// together.
package agent

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/internal/status"
	"github.com/cocodehq/cocode/pkg/models"
)

// UpdateType identifies a decoded stream update.
type UpdateType string

const (
	UpdateTextDelta     UpdateType = "text_delta"
	UpdateThinkingDelta UpdateType = "thinking_delta"
	UpdateThinkingDone  UpdateType = "thinking_done"
	UpdateToolCallStart UpdateType = "tool_call_start"
	UpdateToolCallDone  UpdateType = "tool_call_done"
	UpdateResponseDone  UpdateType = "response_done"
	UpdateError         UpdateType = "error"
)

// StreamUpdate is one decoded event from the unified stream.
type StreamUpdate struct {
	Type  UpdateType
	Index int

	// Delta is set for text and thinking deltas.
	Delta string

	// Thinking is set for UpdateThinkingDone.
	Thinking *models.ThinkingBlock

	// ToolID/ToolName are set for UpdateToolCallStart; ToolCall for
	// UpdateToolCallDone.
	ToolID   string
	ToolName string
	ToolCall *models.ToolCall

	// Usage and FinishReason are set for UpdateResponseDone.
	Usage        *models.TokenUsage
	FinishReason models.FinishReason

	// Err is set for UpdateError.
	Err error
}

// CollectedResponse is the fully drained result of one stream.
type CollectedResponse struct {
	Content      []models.ContentBlock
	Usage        *models.TokenUsage
	FinishReason models.FinishReason
	ResponseID   string
}

// Text concatenates the text blocks of the collected content.
func (r *CollectedResponse) Text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == models.BlockText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool calls in content order.
func (r *CollectedResponse) ToolCalls() []models.ToolCall {
	var calls []models.ToolCall
	for _, block := range r.Content {
		if block.Type == models.BlockToolUse {
			calls = append(calls, models.ToolCall{
				ID:    block.ToolUse.ID,
				Name:  block.ToolUse.Name,
				Input: block.ToolUse.Input,
			})
		}
	}
	return calls
}

// IntoMessage converts the collected response into an assistant message,
// stamping source provider and model.
func (r *CollectedResponse) IntoMessage(provider, model string) models.Message {
	return models.Message{
		Role:           models.RoleAssistant,
		Content:        r.Content,
		SourceProvider: provider,
		SourceModel:    model,
		ResponseID:     r.ResponseID,
	}
}

// UnifiedStream decodes provider-normalized events into StreamUpdates while
// accumulating the final content blocks. Partial tool-argument JSON
// fragments are buffered until the provider signals completion.
type UnifiedStream struct {
	events <-chan providers.StreamEvent

	content    []models.ContentBlock
	textOpen   bool
	blockIndex int

	thinkingBuf strings.Builder
	thinkingOpen bool

	toolID   string
	toolName string
	toolArgs strings.Builder
	toolOpen bool

	usage        *models.TokenUsage
	finishReason models.FinishReason
	responseID   string

	done bool
	err  error
}

// NewUnifiedStream creates a decoder over a provider event channel.
func NewUnifiedStream(events <-chan providers.StreamEvent) *UnifiedStream {
	return &UnifiedStream{events: events, finishReason: models.FinishStop}
}

// StreamFromResponse converts an already-complete response into a stream
// that yields a single synthesized UpdateResponseDone. Used for providers
// or call paths that do not stream.
func StreamFromResponse(resp CollectedResponse) *UnifiedStream {
	events := make(chan providers.StreamEvent, 1)
	events <- providers.StreamEvent{
		Type:         providers.EventResponseDone,
		Usage:        resp.Usage,
		FinishReason: resp.FinishReason,
		ResponseID:   resp.ResponseID,
	}
	close(events)
	s := NewUnifiedStream(events)
	s.content = resp.Content
	return s
}

// Next returns the next decoded update, or nil when the stream is finished.
// A terminal error update is returned once, after which Next returns nil.
func (s *UnifiedStream) Next() *StreamUpdate {
	if s.done {
		return nil
	}
	for event := range s.events {
		if update := s.decode(event); update != nil {
			return update
		}
	}
	// Channel closed without a terminal event: synthesize completion.
	s.done = true
	s.closeTextBlock()
	u := s.usage
	return &StreamUpdate{Type: UpdateResponseDone, Usage: u, FinishReason: s.finishReason}
}

func (s *UnifiedStream) decode(event providers.StreamEvent) *StreamUpdate {
	switch event.Type {
	case providers.EventTextDelta:
		s.appendText(event.Delta)
		return &StreamUpdate{Type: UpdateTextDelta, Index: s.currentIndex(), Delta: event.Delta}

	case providers.EventThinkingDelta:
		s.closeTextBlock()
		s.thinkingOpen = true
		s.thinkingBuf.WriteString(event.Delta)
		return &StreamUpdate{Type: UpdateThinkingDelta, Index: s.blockIndex, Delta: event.Delta}

	case providers.EventThinkingDone:
		block := &models.ThinkingBlock{Content: s.thinkingBuf.String(), Signature: event.Signature}
		s.content = append(s.content, models.ContentBlock{Type: models.BlockThinking, Thinking: block})
		index := s.blockIndex
		s.blockIndex++
		s.thinkingBuf.Reset()
		s.thinkingOpen = false
		return &StreamUpdate{Type: UpdateThinkingDone, Index: index, Thinking: block}

	case providers.EventToolCallStart:
		s.closeTextBlock()
		s.toolOpen = true
		s.toolID = event.ToolID
		s.toolName = event.ToolName
		s.toolArgs.Reset()
		return &StreamUpdate{Type: UpdateToolCallStart, Index: s.blockIndex, ToolID: event.ToolID, ToolName: event.ToolName}

	case providers.EventToolInputDelta:
		if s.toolOpen {
			s.toolArgs.WriteString(event.Delta)
		}
		return nil

	case providers.EventToolCallStop:
		if !s.toolOpen {
			return nil
		}
		input := normalizeToolInput(s.toolArgs.String())
		call := &models.ToolCall{ID: s.toolID, Name: s.toolName, Input: input}
		s.content = append(s.content, models.ToolUseContentBlock(call.ID, call.Name, call.Input))
		index := s.blockIndex
		s.blockIndex++
		s.toolOpen = false
		return &StreamUpdate{Type: UpdateToolCallDone, Index: index, ToolCall: call}

	case providers.EventResponseDone:
		s.done = true
		s.closeTextBlock()
		s.usage = event.Usage
		s.finishReason = event.FinishReason
		s.responseID = event.ResponseID
		return &StreamUpdate{Type: UpdateResponseDone, Usage: event.Usage, FinishReason: event.FinishReason}

	case providers.EventError:
		s.done = true
		s.err = event.Err
		return &StreamUpdate{Type: UpdateError, Err: event.Err}
	}
	return nil
}

// normalizeToolInput validates accumulated argument JSON, substituting an
// empty object for blank or malformed fragments so handlers always receive
// parseable input.
func normalizeToolInput(raw string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return json.RawMessage("{}")
	}
	if !gjson.Valid(trimmed) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}

func (s *UnifiedStream) appendText(delta string) {
	if s.textOpen {
		last := &s.content[len(s.content)-1]
		last.Text += delta
		return
	}
	s.content = append(s.content, models.TextBlock(delta))
	s.textOpen = true
}

func (s *UnifiedStream) currentIndex() int {
	// The open text block occupies the current index until closed.
	return s.blockIndex
}

func (s *UnifiedStream) closeTextBlock() {
	if s.textOpen {
		s.textOpen = false
		s.blockIndex++
	}
}

// Err returns the terminal stream error, if any.
func (s *UnifiedStream) Err() error { return s.err }

// Collect drains the stream and returns the accumulated response.
func (s *UnifiedStream) Collect() (*CollectedResponse, error) {
	for {
		update := s.Next()
		if update == nil {
			break
		}
		if update.Type == UpdateError {
			return nil, update.Err
		}
		if update.Type == UpdateResponseDone {
			break
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &CollectedResponse{
		Content:      s.content,
		Usage:        s.usage,
		FinishReason: s.finishReason,
		ResponseID:   s.responseID,
	}, nil
}

// StreamCallbacks receives decoded events during ProcessWithCallbacks. Any
// returned error terminates the stream.
type StreamCallbacks interface {
	OnTextDelta(index int, delta string) error
	OnThinkingDelta(index int, delta string) error
	OnToolCallStart(index int, id, name string) error
	OnToolCallDone(index int, call *models.ToolCall) error
	OnResponseDone(usage *models.TokenUsage, finish models.FinishReason) error
}

// ProcessWithCallbacks dispatches each decoded event to the callbacks and
// returns the collected response.
func (s *UnifiedStream) ProcessWithCallbacks(cb StreamCallbacks) (*CollectedResponse, error) {
	for {
		update := s.Next()
		if update == nil {
			break
		}
		var err error
		switch update.Type {
		case UpdateTextDelta:
			err = cb.OnTextDelta(update.Index, update.Delta)
		case UpdateThinkingDelta:
			err = cb.OnThinkingDelta(update.Index, update.Delta)
		case UpdateToolCallStart:
			err = cb.OnToolCallStart(update.Index, update.ToolID, update.ToolName)
		case UpdateToolCallDone:
			err = cb.OnToolCallDone(update.Index, update.ToolCall)
		case UpdateResponseDone:
			err = cb.OnResponseDone(update.Usage, update.FinishReason)
		case UpdateError:
			return nil, update.Err
		}
		if err != nil {
			return nil, status.Wrap(status.Canceled, err, "stream callback aborted")
		}
		if update.Type == UpdateResponseDone {
			break
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &CollectedResponse{
		Content:      s.content,
		Usage:        s.usage,
		FinishReason: s.finishReason,
		ResponseID:   s.responseID,
	}, nil
}
