// Package subagent defines the built-in subagent types and spawns isolated
// child turns with restricted toolsets and inheritance-aware identities.
package subagent

import (
	"strings"

	"github.com/cocodehq/cocode/pkg/models"
)

// Definition describes one subagent type.
type Definition struct {
	Name      string
	AgentType string
	// Identity resolves against the parent when set to inherit.
	Identity models.ExecutionIdentity
	// Tools is the allowlist; empty means the parent's full set.
	Tools []string
	// DisallowedTools are removed after the allowlist applies.
	DisallowedTools []string
	// MaxTurns caps the child's turn count, further capped by the
	// parent's.
	MaxTurns int
	// SystemPrompt is the child's system prompt.
	SystemPrompt string
}

// Override is the per-agent user configuration; nil fields keep defaults.
type Override struct {
	MaxTurns        *int     `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`
	Identity        *string  `yaml:"identity,omitempty" json:"identity,omitempty"`
	Tools           []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	DisallowedTools []string `yaml:"disallowed_tools,omitempty" json:"disallowed_tools,omitempty"`
}

// BuiltinAgents returns the six built-in subagent types with defaults.
func BuiltinAgents() []Definition {
	return []Definition{
		{
			Name:      "Bash agent",
			AgentType: "bash",
			Identity:  models.RoleIdentity(models.RoleModelFast),
			Tools:     []string{"Bash", "Read"},
			MaxTurns:  10,
			SystemPrompt: "You run shell commands on behalf of the main agent. Execute the " +
				"requested commands, report their output faithfully, and stop.",
		},
		{
			Name:      "General agent",
			AgentType: "general",
			Identity:  models.InheritIdentity(),
			MaxTurns:  40,
			SystemPrompt: "You are a general-purpose agent handling a delegated task. Complete " +
				"it fully and return a concise result.",
		},
		{
			Name:            "Explore agent",
			AgentType:       "explore",
			Identity:        models.RoleIdentity(models.RoleModelExplore),
			DisallowedTools: []string{"Write", "Bash"},
			MaxTurns:        20,
			SystemPrompt: "You explore the repository to answer a question. Read whatever is " +
				"needed but modify nothing.",
		},
		{
			Name:      "Plan agent",
			AgentType: "plan",
			Identity:  models.RoleIdentity(models.RoleModelPlan),
			DisallowedTools: []string{"Write", "Bash"},
			MaxTurns:  30,
			SystemPrompt: "You produce an implementation plan. Investigate the codebase and " +
				"return a step-by-step plan without making changes.",
		},
		{
			Name:      "Guide agent",
			AgentType: "guide",
			Identity:  models.RoleIdentity(models.RoleModelFast),
			Tools:     []string{"Read"},
			MaxTurns:  5,
			SystemPrompt: "You answer usage questions about the assistant itself, briefly.",
		},
		{
			Name:      "Statusline agent",
			AgentType: "statusline",
			Identity:  models.RoleIdentity(models.RoleModelFast),
			Tools:     []string{"Read", "Bash"},
			MaxTurns:  5,
			SystemPrompt: "You configure the status line. Make the requested change and stop.",
		},
	}
}

// BuiltinAgentsWithConfig applies per-agent overrides. Unknown agent names
// in the config are ignored.
func BuiltinAgentsWithConfig(overrides map[string]Override) []Definition {
	agents := BuiltinAgents()
	for i := range agents {
		override, ok := overrides[agents[i].AgentType]
		if !ok {
			continue
		}
		if override.MaxTurns != nil {
			agents[i].MaxTurns = *override.MaxTurns
		}
		if override.Identity != nil {
			agents[i].Identity = ParseIdentity(*override.Identity)
		}
		if override.Tools != nil {
			agents[i].Tools = override.Tools
		}
		if override.DisallowedTools != nil {
			agents[i].DisallowedTools = override.DisallowedTools
		}
	}
	return agents
}

// ParseIdentity maps an identity string to an ExecutionIdentity. Role names
// parse case-insensitively; a "provider/model" string becomes a spec
// identity; anything else (including empty) inherits.
func ParseIdentity(s string) models.ExecutionIdentity {
	if role, ok := models.ParseModelRole(strings.ToLower(s)); ok {
		return models.RoleIdentity(role)
	}
	if strings.Contains(s, "/") {
		if spec, err := models.ParseModelSpec(s); err == nil {
			return models.SpecIdentity(spec)
		}
	}
	return models.InheritIdentity()
}

// Find returns the definition for an agent type.
func Find(agents []Definition, agentType string) (Definition, bool) {
	for _, agent := range agents {
		if agent.AgentType == agentType {
			return agent, true
		}
	}
	return Definition{}, false
}
