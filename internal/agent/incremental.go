package agent

import "github.com/cocodehq/cocode/pkg/models"

// TurnInput is what gets sent to the provider for one turn: either the full
// history, or — when the adapter supports incremental resume and a previous
// response id is tracked — only the user-input items appended since the last
// server response.
type TurnInput struct {
	Messages           []models.Message
	PreviousResponseID string
}

// BuildTurnInput applies stateless type-based filtering. An item is
// model-generated iff it is an assistant message (the server already holds
// its own outputs); user messages, tool results, and meta messages are
// user input the server still needs.
//
// The tracked state is only lastResponseID. After compaction, undo, or a
// previous-response-not-found error that id is cleared and the full history
// is sent.
func BuildTurnInput(history []models.Message, lastResponseID string, adapterSupports bool) TurnInput {
	if !adapterSupports || lastResponseID == "" {
		return TurnInput{Messages: history}
	}

	// Find the last model-generated item; everything after it is input the
	// server has not seen.
	lastModelIdx := -1
	for i := len(history) - 1; i >= 0; i-- {
		if isModelGenerated(history[i]) {
			lastModelIdx = i
			break
		}
	}
	if lastModelIdx == -1 {
		// No model output yet: first turn sends full history.
		return TurnInput{Messages: history}
	}

	var input []models.Message
	for _, msg := range history[lastModelIdx+1:] {
		// Defensive: drop any model-generated stragglers.
		if isModelGenerated(msg) {
			continue
		}
		input = append(input, msg)
	}
	if len(input) == 0 {
		// Nothing new to send incrementally; fall back to full history.
		return TurnInput{Messages: history}
	}
	return TurnInput{Messages: input, PreviousResponseID: lastResponseID}
}

// isModelGenerated classifies by type: assistant messages carry server-side
// ids; everything else is user input.
func isModelGenerated(msg models.Message) bool {
	return msg.Role == models.RoleAssistant && !msg.IsMeta
}
