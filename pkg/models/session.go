package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxTurns bounds how many model turns a session runs per user input.
const DefaultMaxTurns = 200

// Session is the durable state of one conversation: identity, working
// directory, model role selections, and UI-facing toggles. Mutated only by
// the session driver.
type Session struct {
	ID             string          `json:"id"`
	WorkingDir     string          `json:"working_dir"`
	Selections     *RoleSelections `json:"role_selections"`
	MaxTurns       int             `json:"max_turns"`
	Title          string          `json:"title,omitempty"`
	LastActivityAt time.Time       `json:"last_activity_at"`
	Ephemeral      bool            `json:"ephemeral,omitempty"`
	PlanMode       bool            `json:"plan_mode,omitempty"`
}

// NewSession creates a session with a generated id and the given main
// selection.
func NewSession(workingDir string, main RoleSelection) *Session {
	return NewSessionWithID(uuid.NewString(), workingDir, main)
}

// NewSessionWithID creates a session with an explicit id.
func NewSessionWithID(id, workingDir string, main RoleSelection) *Session {
	selections := NewRoleSelections()
	selections.Set(RoleModelMain, main)
	return NewSessionWithSelections(id, workingDir, selections)
}

// NewSessionWithSelections creates a session from a full selection map. The
// map must contain at least a Main selection.
func NewSessionWithSelections(id, workingDir string, selections *RoleSelections) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:             id,
		WorkingDir:     workingDir,
		Selections:     selections,
		MaxTurns:       DefaultMaxTurns,
		LastActivityAt: time.Now().UTC(),
	}
}

// Touch advances the last-activity timestamp.
func (s *Session) Touch() {
	s.LastActivityAt = time.Now().UTC()
}

// TogglePlanMode flips plan mode and returns the new value.
func (s *Session) TogglePlanMode() bool {
	s.PlanMode = !s.PlanMode
	return s.PlanMode
}

// Model returns the bare model id of the main selection, or "".
func (s *Session) Model() string {
	sel, ok := s.Selections.Main()
	if !ok {
		return ""
	}
	return sel.Spec.Model
}

// Provider returns the provider name of the main selection, or "".
func (s *Session) Provider() string {
	sel, ok := s.Selections.Main()
	if !ok {
		return ""
	}
	return sel.Spec.Provider
}

// ProviderKind returns the resolved provider type of the main selection.
func (s *Session) ProviderKind() ProviderType {
	sel, ok := s.Selections.Main()
	if !ok {
		return ""
	}
	return sel.Spec.ProviderType
}

// ModelForRole returns the selection for a role without fallback.
func (s *Session) ModelForRole(role ModelRole) (RoleSelection, bool) {
	return s.Selections.Get(role)
}

// ModelForRoleOrMain returns the selection for a role, falling back to Main.
func (s *Session) ModelForRoleOrMain(role ModelRole) (RoleSelection, bool) {
	return s.Selections.GetOrMain(role)
}

// SetModelForRole assigns a selection to a role and touches the session.
func (s *Session) SetModelForRole(role ModelRole, sel RoleSelection) {
	s.Selections.Set(role, sel)
	s.Touch()
}

// CycleThinkingLevel advances the main selection's thinking effort to the
// next supported level, wrapping to none. Returns the new effort.
func (s *Session) CycleThinkingLevel() ThinkingEffort {
	sel, ok := s.Selections.Main()
	if !ok {
		return ThinkingNone
	}
	current := ThinkingNone
	if sel.Thinking != nil {
		current = sel.Thinking.Effort
	}
	next := current.Next()
	// Skip efforts the model does not support; give up after a full cycle.
	for i := 0; i < len(thinkingOrder) && next != ThinkingNone && !sel.SupportsEffort(next); i++ {
		next = next.Next()
	}
	if next == ThinkingNone {
		sel.Thinking = nil
	} else {
		sel.Thinking = &ThinkingLevel{Effort: next}
	}
	s.Selections.Set(RoleModelMain, sel)
	s.Touch()
	return next
}

// Clone returns a deep copy via JSON round-trip. Used when handing session
// snapshots to subagents.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
