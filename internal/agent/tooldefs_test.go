package agent

import (
	"testing"

	contextpkg "github.com/cocodehq/cocode/internal/context"
	"github.com/cocodehq/cocode/internal/tools"
)

func TestSelectToolDefinitions_WithinBudget(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "Read"})
	registry.Register(&fakeTool{name: "github__create_issue"})
	registry.Register(tools.NewMcpSearchTool(registry))

	defs := selectToolDefinitions(registry, contextpkg.HeuristicEstimator{}, 1_000_000)
	if len(defs) != 3 {
		t.Errorf("defs = %d, want all 3 within budget", len(defs))
	}
}

func TestSelectToolDefinitions_OverBudgetDropsMcpTools(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "Read"})
	registry.Register(&fakeTool{name: "github__create_issue"})
	registry.Register(&fakeTool{name: "jira__create_ticket"})
	registry.Register(tools.NewMcpSearchTool(registry))

	defs := selectToolDefinitions(registry, contextpkg.HeuristicEstimator{}, 1)

	names := make(map[string]bool)
	for _, def := range defs {
		names[def.Name] = true
	}
	if names["github__create_issue"] || names["jira__create_ticket"] {
		t.Error("MCP tools should be dropped over budget")
	}
	if !names["Read"] {
		t.Error("built-ins survive")
	}
	if !names[tools.McpSearchToolName] {
		t.Error("MCPSearch stands in for the dropped MCP tools")
	}
}

func TestSelectToolDefinitions_ZeroBudgetMeansUnlimited(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&fakeTool{name: "srv__tool"})
	defs := selectToolDefinitions(registry, contextpkg.HeuristicEstimator{}, 0)
	if len(defs) != 1 {
		t.Error("unallocated budget should not trim")
	}
}
