package agent

import "github.com/cocodehq/cocode/pkg/models"

// TurnEventType identifies a turn event.
type TurnEventType string

const (
	TurnTextDelta         TurnEventType = "text_delta"
	TurnThinkingDelta     TurnEventType = "thinking_delta"
	TurnToolCallStarted   TurnEventType = "tool_call_started"
	TurnToolCallCompleted TurnEventType = "tool_call_completed"
	TurnError             TurnEventType = "error"
	TurnCompleted         TurnEventType = "turn_completed"
)

// TurnEvent is one event on the stream returned by SubmitUserTurn.
type TurnEvent struct {
	Type TurnEventType

	// Delta for text/thinking deltas.
	Delta string

	// Tool call fields.
	ToolCall   *models.ToolCall
	ToolOutput *models.ToolOutput

	// Err for TurnError.
	Err error

	// Terminal fields for TurnCompleted.
	Usage        models.TokenUsage
	FinishReason models.FinishReason
}
