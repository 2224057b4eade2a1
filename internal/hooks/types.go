// Package hooks implements the lifecycle hook system: definitions sourced
// from policy, plugins, the session, agents, and skills fire on lifecycle
// events and may block the triggering operation, inject context, or run
// asynchronously.
package hooks

import (
	"regexp"
	"strings"
)

// EventType is the lifecycle event a hook fires on.
type EventType string

const (
	EventPreToolUse       EventType = "pre_tool_use"
	EventPostToolUse      EventType = "post_tool_use"
	EventUserPromptSubmit EventType = "user_prompt_submit"
	EventSessionStart     EventType = "session_start"
	EventStop             EventType = "stop"
	EventNotification     EventType = "notification"
)

// MaxTimeoutSecs caps hook execution timeouts (10 minutes).
const MaxTimeoutSecs = 600

// MatcherKind discriminates matcher variants.
type MatcherKind string

const (
	MatchExact    MatcherKind = "exact"
	MatchWildcard MatcherKind = "wildcard"
	MatchRegex    MatcherKind = "regex"
	MatchAll      MatcherKind = "all"
	MatchOr       MatcherKind = "or"
)

// Matcher filters which invocations trigger a hook, matched against the
// tool name (tool events) or a caller-supplied subject.
type Matcher struct {
	Kind    MatcherKind `json:"kind" yaml:"kind"`
	Pattern string      `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Any     []Matcher   `json:"any,omitempty" yaml:"any,omitempty"`
}

// Matches reports whether the subject satisfies the matcher. A nil matcher
// matches everything.
func (m *Matcher) Matches(subject string) bool {
	if m == nil {
		return true
	}
	switch m.Kind {
	case MatchAll:
		return true
	case MatchExact:
		return subject == m.Pattern
	case MatchWildcard:
		return wildcardMatch(m.Pattern, subject)
	case MatchRegex:
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(subject)
	case MatchOr:
		for i := range m.Any {
			if m.Any[i].Matches(subject) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// wildcardMatch supports "*" as a multi-character wildcard.
func wildcardMatch(pattern, subject string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == subject
	}
	if !strings.HasPrefix(subject, parts[0]) {
		return false
	}
	subject = subject[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(subject, part)
		if idx < 0 {
			return false
		}
		subject = subject[idx+len(part):]
	}
	return strings.HasSuffix(subject, parts[len(parts)-1])
}

// SourceKind discriminates hook sources.
type SourceKind string

const (
	SourcePolicy  SourceKind = "policy"
	SourcePlugin  SourceKind = "plugin"
	SourceSession SourceKind = "session"
	SourceAgent   SourceKind = "agent"
	SourceSkill   SourceKind = "skill"
)

// Source identifies where a hook came from; plugins, agents, and skills
// carry their name.
type Source struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	Name string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// Priority orders sources for dispatch; lower fires first.
func (s Source) Priority() int {
	switch s.Kind {
	case SourcePolicy:
		return 0
	case SourcePlugin:
		return 1
	case SourceSession:
		return 2
	case SourceAgent:
		return 3
	case SourceSkill:
		return 4
	default:
		return 5
	}
}

// IsManaged reports whether the source is centrally managed (policy or
// plugin); only managed hooks survive allow_managed_hooks_only.
func (s Source) IsManaged() bool {
	return s.Kind == SourcePolicy || s.Kind == SourcePlugin
}

// HandlerKind discriminates handler variants.
type HandlerKind string

const (
	HandlerCommand HandlerKind = "command"
	HandlerPrompt  HandlerKind = "prompt"
	HandlerAgent   HandlerKind = "agent"
	HandlerWebhook HandlerKind = "webhook"
	HandlerInline  HandlerKind = "inline"
)

// Handler is the action a hook performs.
type Handler struct {
	Kind HandlerKind `json:"kind" yaml:"kind"`

	// Command fields.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Prompt fields. $ARGUMENTS in the template is replaced with the
	// event context JSON. Model is accepted but not dispatched to a
	// nested LLM; the template expands as plain context.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	// Webhook field.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Inline function, set programmatically; never serialized.
	Fn InlineFunc `json:"-" yaml:"-"`
}

// InlineFunc is a programmatic hook handler.
type InlineFunc func(event *Event) Outcome

// Definition describes a single hook.
type Definition struct {
	Name        string    `json:"name" yaml:"name"`
	EventType   EventType `json:"event_type" yaml:"event_type"`
	Matcher     *Matcher  `json:"matcher,omitempty" yaml:"matcher,omitempty"`
	Handler     Handler   `json:"handler" yaml:"handler"`
	Source      Source    `json:"source" yaml:"source"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	TimeoutSecs int       `json:"timeout_secs" yaml:"timeout_secs"`

	// Once removes the hook after one successful invocation (not on
	// timeout or failure).
	Once bool `json:"once,omitempty" yaml:"once,omitempty"`
}

// EffectiveTimeoutSecs clamps the timeout to MaxTimeoutSecs, defaulting to
// 30 when unset.
func (d *Definition) EffectiveTimeoutSecs() int {
	t := d.TimeoutSecs
	if t <= 0 {
		t = 30
	}
	if t > MaxTimeoutSecs {
		t = MaxTimeoutSecs
	}
	return t
}

// Settings govern hook aggregation.
type Settings struct {
	DisableAllHooks       bool `json:"disable_all_hooks" yaml:"disable_all_hooks"`
	AllowManagedHooksOnly bool `json:"allow_managed_hooks_only" yaml:"allow_managed_hooks_only"`
}

// Event is the payload a hook receives.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput []byte         `json:"tool_input,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Subject is the string matchers run against.
func (e *Event) Subject() string {
	if e.ToolName != "" {
		return e.ToolName
	}
	return e.Prompt
}

// OutcomeKind discriminates hook outcomes.
type OutcomeKind string

const (
	OutcomeContinue            OutcomeKind = "continue"
	OutcomeContinueWithContext OutcomeKind = "continue_with_context"
	OutcomeReject              OutcomeKind = "reject"
	OutcomeAsync               OutcomeKind = "async"
)

// Outcome is a hook's decision.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// AdditionalContext is appended to the model's view for
	// OutcomeContinueWithContext.
	AdditionalContext string `json:"additional_context,omitempty"`
	// Reason explains an OutcomeReject.
	Reason string `json:"reason,omitempty"`
	// TaskID tracks an OutcomeAsync hook.
	TaskID string `json:"task_id,omitempty"`
	// RewrittenInput, when non-nil on a pre-tool-use hook, replaces the
	// tool input.
	RewrittenInput []byte `json:"rewritten_input,omitempty"`
}

// Continue is the default pass-through outcome.
func Continue() Outcome { return Outcome{Kind: OutcomeContinue} }

// ContinueWithContext passes through while injecting context.
func ContinueWithContext(ctx string) Outcome {
	return Outcome{Kind: OutcomeContinueWithContext, AdditionalContext: ctx}
}

// Reject aborts the triggering operation.
func Reject(reason string) Outcome {
	return Outcome{Kind: OutcomeReject, Reason: reason}
}

// Async defers the decision to a background task.
func Async(taskID string) Outcome {
	return Outcome{Kind: OutcomeAsync, TaskID: taskID}
}
