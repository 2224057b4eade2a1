package subagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cocodehq/cocode/internal/agent"
	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// Executor spawns isolated child sessions for subagent runs. The child
// gets a private history and budget, a filtered tool registry, and a turn
// cap no higher than the parent's.
type Executor struct {
	providers *providers.Registry
	agents    []Definition
}

// NewExecutor creates an executor over the given agent set.
func NewExecutor(providerRegistry *providers.Registry, agents []Definition) *Executor {
	if agents == nil {
		agents = BuiltinAgents()
	}
	return &Executor{providers: providerRegistry, agents: agents}
}

// RunInput describes one subagent invocation.
type RunInput struct {
	AgentType string
	Prompt    string

	// Parent state the child derives from.
	ParentSession  *models.Session
	ParentRegistry *tools.Registry
	ParentMaxTurns int
	SessionDir     string
}

// RunResult is the child's final output.
type RunResult struct {
	Text         string
	Usage        models.TokenUsage
	FinishReason models.FinishReason
}

// Run executes one subagent to completion and returns its final text.
func (e *Executor) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	def, ok := Find(e.agents, input.AgentType)
	if !ok {
		return nil, fmt.Errorf("unknown agent type %q", input.AgentType)
	}

	parentSel, ok := input.ParentSession.Selections.Main()
	if !ok {
		return nil, fmt.Errorf("parent session has no main selection")
	}
	selection, err := def.Identity.Resolve(input.ParentSession.Selections, &parentSel)
	if err != nil {
		return nil, fmt.Errorf("resolve agent identity: %w", err)
	}

	maxTurns := def.MaxTurns
	if input.ParentMaxTurns > 0 && maxTurns > input.ParentMaxTurns {
		maxTurns = input.ParentMaxTurns
	}

	childSession := models.NewSessionWithID(
		fmt.Sprintf("%s-agent-%s", input.ParentSession.ID, uuid.NewString()[:8]),
		input.ParentSession.WorkingDir,
		selection,
	)
	childSession.MaxTurns = maxTurns
	childSession.Ephemeral = true

	registry := input.ParentRegistry.Filtered(def.Tools, def.DisallowedTools)

	config := agent.DefaultDriverConfig()
	config.SystemPrompt = def.SystemPrompt
	config.SessionDir = input.SessionDir

	driver := agent.NewDriver(childSession, e.providers, registry, hooks.NewRegistry(nil), config)

	var sb strings.Builder
	var result RunResult
	for event := range driver.SubmitUserTurn(ctx, agent.UserInput{Text: input.Prompt}, agent.TurnOptions{IsMainAgent: false}) {
		switch event.Type {
		case agent.TurnTextDelta:
			sb.WriteString(event.Delta)
		case agent.TurnError:
			return nil, event.Err
		case agent.TurnCompleted:
			result.Usage = event.Usage
			result.FinishReason = event.FinishReason
		}
	}
	result.Text = sb.String()
	return &result, nil
}
