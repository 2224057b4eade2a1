package subagent

import (
	"testing"

	"github.com/cocodehq/cocode/pkg/models"
)

func TestBuiltinAgents_Count(t *testing.T) {
	agents := BuiltinAgents()
	if len(agents) != 6 {
		t.Fatalf("agents = %d, want 6", len(agents))
	}
}

func TestBuiltinAgents_UniqueTypes(t *testing.T) {
	agents := BuiltinAgents()
	seen := make(map[string]bool)
	for _, a := range agents {
		if seen[a.AgentType] {
			t.Errorf("duplicate agent type %q", a.AgentType)
		}
		seen[a.AgentType] = true
	}
	for _, want := range []string{"bash", "general", "explore", "plan", "guide", "statusline"} {
		if !seen[want] {
			t.Errorf("missing agent type %q", want)
		}
	}
}

func TestBuiltinAgentsWithConfig_Empty(t *testing.T) {
	agents := BuiltinAgentsWithConfig(nil)
	explore, _ := Find(agents, "explore")
	if explore.MaxTurns != 20 {
		t.Errorf("explore max turns = %d, want default 20", explore.MaxTurns)
	}
}

func TestBuiltinAgentsWithConfig_MaxTurnsOverride(t *testing.T) {
	fifty := 50
	agents := BuiltinAgentsWithConfig(map[string]Override{
		"explore": {MaxTurns: &fifty},
	})
	explore, _ := Find(agents, "explore")
	if explore.MaxTurns != 50 {
		t.Errorf("max turns = %d, want 50", explore.MaxTurns)
	}
}

func TestBuiltinAgentsWithConfig_IdentityOverride(t *testing.T) {
	fast := "fast"
	agents := BuiltinAgentsWithConfig(map[string]Override{
		"explore": {Identity: &fast},
	})
	explore, _ := Find(agents, "explore")
	if explore.Identity.Kind != models.IdentityRole || explore.Identity.Role != models.RoleModelFast {
		t.Errorf("identity = %+v", explore.Identity)
	}
}

func TestBuiltinAgentsWithConfig_ToolsOverride(t *testing.T) {
	agents := BuiltinAgentsWithConfig(map[string]Override{
		"explore": {Tools: []string{"Read", "Bash"}},
	})
	explore, _ := Find(agents, "explore")
	if len(explore.Tools) != 2 || explore.Tools[0] != "Read" || explore.Tools[1] != "Bash" {
		t.Errorf("tools = %v", explore.Tools)
	}
}

func TestBuiltinAgentsWithConfig_UnknownIgnored(t *testing.T) {
	turns := 999
	agents := BuiltinAgentsWithConfig(map[string]Override{
		"unknown_agent": {MaxTurns: &turns},
	})
	if len(agents) != 6 {
		t.Errorf("agents = %d, want 6 (unknown config ignored)", len(agents))
	}
}

func TestParseIdentity(t *testing.T) {
	roleTests := map[string]models.ModelRole{
		"main":    models.RoleModelMain,
		"fast":    models.RoleModelFast,
		"explore": models.RoleModelExplore,
		"plan":    models.RoleModelPlan,
		"vision":  models.RoleModelVision,
		"review":  models.RoleModelReview,
		"compact": models.RoleModelCompact,
		"MAIN":    models.RoleModelMain,
		"Fast":    models.RoleModelFast,
	}
	for input, role := range roleTests {
		got := ParseIdentity(input)
		if got.Kind != models.IdentityRole || got.Role != role {
			t.Errorf("ParseIdentity(%q) = %+v, want role %q", input, got, role)
		}
	}

	for _, input := range []string{"inherit", "unknown", ""} {
		if got := ParseIdentity(input); got.Kind != models.IdentityInherit {
			t.Errorf("ParseIdentity(%q) = %+v, want inherit", input, got)
		}
	}

	got := ParseIdentity("anthropic/claude-haiku")
	if got.Kind != models.IdentitySpec || got.Spec.Model != "claude-haiku" {
		t.Errorf("ParseIdentity(spec) = %+v", got)
	}
}
