package agent

import (
	contextpkg "github.com/cocodehq/cocode/internal/context"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/pkg/models"
)

// selectToolDefinitions returns the definitions to send with a request.
// When the full set fits the tool-definitions allocation it goes out
// whole. When it does not, MCP-sourced definitions (server__tool names)
// are dropped and the MCPSearch tool stands in for them, letting the model
// discover schemas on demand.
func selectToolDefinitions(registry *tools.Registry, est contextpkg.Estimator, budgetTokens int) []models.ToolDefinition {
	all := registry.Tools()
	defs := make([]models.ToolDefinition, 0, len(all))
	total := 0
	for _, tool := range all {
		def := tools.Definition(tool)
		defs = append(defs, def)
		total += definitionTokens(est, def)
	}
	if budgetTokens <= 0 || total <= budgetTokens {
		return defs
	}

	// Over budget: keep built-ins, drop MCP tools, keep MCPSearch.
	trimmed := defs[:0]
	for _, def := range defs {
		if isMcpTool(def.Name) {
			continue
		}
		trimmed = append(trimmed, def)
	}
	return trimmed
}

func definitionTokens(est contextpkg.Estimator, def models.ToolDefinition) int {
	return est.Count(def.Name) + est.Count(def.Description) + est.Count(string(def.InputSchema))
}
