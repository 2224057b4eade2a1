package context

import (
	"fmt"

	"github.com/cocodehq/cocode/pkg/models"
)

// History holds the ordered conversation plus token accounting. It is
// exclusively owned by the session driver; methods are not safe for
// concurrent use.
type History struct {
	messages  []models.Message
	usage     models.TokenUsage
	budget    *Budget
	estimator Estimator

	// lastResponseID is the incremental-resume tracking state. Cleared by
	// ReplaceAndClearTracking and ClearResponseTracking.
	lastResponseID string
}

// NewHistory creates an empty history against a budget.
func NewHistory(budget *Budget, estimator Estimator) *History {
	if estimator == nil {
		estimator = NewEstimator()
	}
	return &History{budget: budget, estimator: estimator}
}

// Record appends a message and charges its estimated tokens to the
// conversation-history category.
func (h *History) Record(msg models.Message) {
	h.messages = append(h.messages, msg)
	h.budget.RecordUsage(CategoryConversationHistory, CountMessage(h.estimator, msg))
	if msg.Role == models.RoleAssistant && msg.ResponseID != "" {
		h.lastResponseID = msg.ResponseID
	}
}

// Messages returns the backing slice. Callers must not mutate it.
func (h *History) Messages() []models.Message { return h.messages }

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// Usage returns accumulated provider-reported usage.
func (h *History) Usage() models.TokenUsage { return h.usage }

// AddUsage accumulates provider-reported usage for the session.
func (h *History) AddUsage(u models.TokenUsage) { h.usage.Add(u) }

// Budget returns the budget this history charges against.
func (h *History) Budget() *Budget { return h.budget }

// LastResponseID returns the incremental-resume id, empty when cleared.
func (h *History) LastResponseID() string { return h.lastResponseID }

// ClearResponseTracking drops the incremental-resume id; the next request
// sends full history.
func (h *History) ClearResponseTracking() { h.lastResponseID = "" }

// ReplaceAndClearTracking swaps the history wholesale and clears the
// incremental-resume id in the same step, keeping both effects atomic with
// respect to the driver. The session-memory and full compaction tiers
// rebuild the history through it; micro-compaction swaps single messages
// with ReplaceMessage instead.
func (h *History) ReplaceAndClearTracking(messages []models.Message) {
	h.messages = messages
	h.lastResponseID = ""
	total := 0
	for _, msg := range messages {
		total += CountMessage(h.estimator, msg)
	}
	h.budget.SetUsage(CategoryConversationHistory, total)
}

// ReplaceMessage swaps a single message in place, re-deriving category
// usage. Used by micro-compaction to substitute placeholders.
func (h *History) ReplaceMessage(index int, msg models.Message) error {
	if index < 0 || index >= len(h.messages) {
		return fmt.Errorf("message index %d out of range", index)
	}
	old := CountMessage(h.estimator, h.messages[index])
	h.messages[index] = msg
	h.budget.RecordUsage(CategoryConversationHistory, CountMessage(h.estimator, msg)-old)
	return nil
}

// ValidateToolPairing checks the core invariant: every tool result refers to
// exactly one earlier tool use, in linear order.
func (h *History) ValidateToolPairing() error {
	seen := make(map[string]bool)
	matched := make(map[string]bool)
	for i, msg := range h.messages {
		for _, block := range msg.Content {
			switch block.Type {
			case models.BlockToolUse:
				if seen[block.ToolUse.ID] {
					return fmt.Errorf("duplicate tool use id %q at message %d", block.ToolUse.ID, i)
				}
				seen[block.ToolUse.ID] = true
			case models.BlockToolResult:
				id := block.ToolResult.ToolUseID
				if !seen[id] {
					return fmt.Errorf("tool result %q at message %d has no earlier tool use", id, i)
				}
				if matched[id] {
					return fmt.Errorf("tool use %q matched by more than one result", id)
				}
				matched[id] = true
			}
		}
	}
	return nil
}
