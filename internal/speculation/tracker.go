// Package speculation tracks groups of tool calls the model emitted while
// its stream was still open. Effects are held pending until the assistant
// message finalizes (commit) or the stream aborts (rollback). Tool handlers
// consult IsSpeculative to defer effects that cannot be undone.
package speculation

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of a speculation group.
type State string

const (
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Result is one recorded speculative tool result.
type Result struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Content  string `json:"content"`
	IsError  bool   `json:"is_error"`
}

// Stats summarizes tracker contents.
type Stats struct {
	Pending    int
	Committed  int
	RolledBack int
	Total      int
}

type group struct {
	state   State
	callIDs []string
	results []Result
	reason  string
}

// Tracker tracks speculation groups. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	groups map[string]*group
	// callIndex maps call ids to their owning group.
	callIndex map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		groups:    make(map[string]*group),
		callIndex: make(map[string]string),
	}
}

// StartSpeculation opens a pending group over the given call ids and
// returns its id.
func (t *Tracker) StartSpeculation(callIDs []string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := fmt.Sprintf("spec-%s", uuid.NewString()[:8])
	t.groups[id] = &group{state: StatePending, callIDs: callIDs}
	for _, callID := range callIDs {
		t.callIndex[callID] = id
	}
	return id
}

// RecordResult records one tool result under a pending group. Results for
// unknown or non-pending groups are dropped.
func (t *Tracker) RecordResult(specID, callID, toolName string, result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[specID]
	if !ok || g.state != StatePending {
		return
	}
	result.CallID = callID
	result.ToolName = toolName
	g.results = append(g.results, result)
}

// GetState returns the group's state.
func (t *Tracker) GetState(specID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[specID]
	if !ok {
		return "", false
	}
	return g.state, true
}

// IsSpeculative reports whether a call id belongs to a still-pending group.
// False once the owning group reaches a terminal state.
func (t *Tracker) IsSpeculative(callID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	specID, ok := t.callIndex[callID]
	if !ok {
		return false
	}
	g, ok := t.groups[specID]
	return ok && g.state == StatePending
}

// Commit finalizes a pending group and returns its accumulated results.
// Nil when the group is unknown or already terminal.
func (t *Tracker) Commit(specID string) []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[specID]
	if !ok || g.state != StatePending {
		return nil
	}
	g.state = StateCommitted
	out := make([]Result, len(g.results))
	copy(out, g.results)
	return out
}

// Rollback aborts a pending group and returns the rolled-back call ids.
func (t *Tracker) Rollback(specID, reason string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.groups[specID]
	if !ok || g.state != StatePending {
		return nil
	}
	g.state = StateRolledBack
	g.reason = reason
	out := make([]string, len(g.callIDs))
	copy(out, g.callIDs)
	return out
}

// CommitAll commits every pending group, returning how many committed.
func (t *Tracker) CommitAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, g := range t.groups {
		if g.state == StatePending {
			g.state = StateCommitted
			n++
		}
	}
	return n
}

// RollbackAll rolls back every pending group, returning how many rolled
// back.
func (t *Tracker) RollbackAll(reason string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, g := range t.groups {
		if g.state == StatePending {
			g.state = StateRolledBack
			g.reason = reason
			n++
		}
	}
	return n
}

// CleanupCompleted drops terminal groups and their call index entries.
func (t *Tracker) CleanupCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, g := range t.groups {
		if g.state == StatePending {
			continue
		}
		for _, callID := range g.callIDs {
			delete(t.callIndex, callID)
		}
		delete(t.groups, id)
	}
}

// Stats returns group counts by state.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Stats
	for _, g := range t.groups {
		switch g.state {
		case StatePending:
			s.Pending++
		case StateCommitted:
			s.Committed++
		case StateRolledBack:
			s.RolledBack++
		}
	}
	s.Total = len(t.groups)
	return s
}
