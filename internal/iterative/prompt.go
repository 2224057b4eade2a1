package iterative

import (
	"fmt"
	"strings"
)

// complexityTemplate opens the first iteration so the model scopes the
// work before diving in.
const complexityTemplate = `Before starting, assess the task's complexity:
- How many iterations will this likely need?
- What is the riskiest part?
- What should be done first?

Then begin the first iteration.`

// BuildPrompt assembles the enhanced prompt for one iteration. The first
// iteration carries the complexity assessment; later iterations carry
// prior summaries, the base commit, and the plan file.
func BuildPrompt(base string, itctx *IterationContext, autoCommit bool) string {
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n")

	if itctx.CurrentIteration() == 0 {
		sb.WriteString(complexityTemplate)
	} else {
		fmt.Fprintf(&sb, "This is iteration %d", itctx.CurrentIteration()+1)
		if itctx.TotalIterations > 0 {
			fmt.Fprintf(&sb, " of %d", itctx.TotalIterations)
		}
		sb.WriteString(".\n\nPrevious iterations:\n")
		for _, record := range itctx.Iterations {
			marker := "done"
			if !record.Success {
				marker = "FAILED"
			}
			summary := record.Summary
			if summary == "" {
				summary = Summarize(record.Result)
			}
			fmt.Fprintf(&sb, "- [%s] iteration %d: %s\n", marker, record.Iteration+1, summary)
		}
		if itctx.BaseCommitID != "" {
			fmt.Fprintf(&sb, "\nBase commit at task start: %s\n", itctx.BaseCommitID)
		}
		if itctx.PlanContent != "" {
			sb.WriteString("\nPlan file:\n")
			sb.WriteString(itctx.PlanContent)
			sb.WriteString("\n")
		}
	}

	if !autoCommit {
		sb.WriteString("\n\nDO NOT run git commit; the user will commit when ready.")
	}
	return sb.String()
}
