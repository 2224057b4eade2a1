// Package reminder implements the system-reminder pipeline: generators
// that produce meta messages keeping the model aware of repository and
// session state, with per-generator throttling and tiered dispatch.
package reminder

import (
	"github.com/cocodehq/cocode/pkg/models"
)

// AttachmentType identifies a reminder generator's output.
type AttachmentType string

const (
	AttachmentChangedFiles    AttachmentType = "changed_files"
	AttachmentAtMentionedFiles AttachmentType = "at_mentioned_files"
	AttachmentAgentMentions   AttachmentType = "agent_mentions"
	AttachmentAlreadyReadFile AttachmentType = "already_read_file"
	AttachmentTokenUsage      AttachmentType = "token_usage"
	AttachmentOutputStyle     AttachmentType = "output_style"
	AttachmentBackgroundTask  AttachmentType = "background_task"
	AttachmentAsyncHooks      AttachmentType = "async_hooks"
	AttachmentSessionMemory   AttachmentType = "session_memory"
	AttachmentDiagnostics     AttachmentType = "diagnostics"
)

// Tier determines which agents a reminder fires for and when.
type Tier string

const (
	// TierCore fires for every agent on every turn.
	TierCore Tier = "core"
	// TierMainAgentOnly is skipped inside subagents.
	TierMainAgentOnly Tier = "main_agent_only"
	// TierUserPrompt fires only when the turn has fresh user input.
	TierUserPrompt Tier = "user_prompt"
)

// tierOrder dispatches Core first, UserPrompt last.
var tierOrder = map[Tier]int{TierCore: 0, TierMainAgentOnly: 1, TierUserPrompt: 2}

// XMLTag selects the wrapper tag for text reminders.
type XMLTag string

const (
	TagSystemReminder     XMLTag = "system-reminder"
	TagSystemNotification XMLTag = "system-notification"
	TagNewDiagnostics     XMLTag = "new-diagnostics"
	TagSessionMemory      XMLTag = "session-memory"
	// TagNone emits the content untagged (synthetic message pairs).
	TagNone XMLTag = ""
)

// Reminder is one generator's output: either wrapped text or a block of
// synthetic messages. Both forms are meta content.
type Reminder struct {
	Type AttachmentType
	Tag  XMLTag

	// Text output; empty when Messages is set.
	Text string

	// Messages output: synthetic assistant/user pairs (already-read
	// files). Each message is marked meta.
	Messages []models.Message
}

// NewTextReminder creates a text reminder with the default tag.
func NewTextReminder(attachmentType AttachmentType, text string) *Reminder {
	return &Reminder{Type: attachmentType, Tag: TagSystemReminder, Text: text}
}

// NewTaggedReminder creates a text reminder with an explicit tag.
func NewTaggedReminder(attachmentType AttachmentType, tag XMLTag, text string) *Reminder {
	return &Reminder{Type: attachmentType, Tag: tag, Text: text}
}

// NewMessagesReminder creates a synthetic-message reminder.
func NewMessagesReminder(attachmentType AttachmentType, messages []models.Message) *Reminder {
	for i := range messages {
		messages[i].IsMeta = true
	}
	return &Reminder{Type: attachmentType, Tag: TagNone, Messages: messages}
}

// IsText reports whether the reminder carries wrapped text.
func (r *Reminder) IsText() bool { return len(r.Messages) == 0 }

// Render converts the reminder to history messages, all marked meta.
func (r *Reminder) Render() []models.Message {
	if !r.IsText() {
		return r.Messages
	}
	text := r.Text
	if r.Tag != TagNone {
		text = "<" + string(r.Tag) + ">\n" + text + "\n</" + string(r.Tag) + ">"
	}
	msg := models.UserText(text)
	msg.IsMeta = true
	return []models.Message{msg}
}

// ThrottleConfig bounds how often a generator fires.
type ThrottleConfig struct {
	// MinTurnsBetween is the minimum gap between firings.
	MinTurnsBetween int
	// MinTurnsAfterTrigger delays the first firing after session start.
	MinTurnsAfterTrigger int
	// MaxPerSession caps total firings; nil means unlimited.
	MaxPerSession *int
}

// NoThrottle fires every turn.
func NoThrottle() ThrottleConfig { return ThrottleConfig{} }

// throttleState tracks one generator's firing history.
type throttleState struct {
	lastFiredTurn int
	fireCount     int
}

// allow reports whether a generator may fire on the given turn.
func (s *throttleState) allow(config ThrottleConfig, turn int) bool {
	if config.MaxPerSession != nil && s.fireCount >= *config.MaxPerSession {
		return false
	}
	if turn < config.MinTurnsAfterTrigger {
		return false
	}
	if s.fireCount > 0 && config.MinTurnsBetween > 0 && turn-s.lastFiredTurn < config.MinTurnsBetween {
		return false
	}
	return true
}

func (s *throttleState) fired(turn int) {
	s.lastFiredTurn = turn
	s.fireCount++
}
