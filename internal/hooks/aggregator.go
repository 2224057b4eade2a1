package hooks

import "sort"

// Aggregator collects hooks from every source and produces the prioritized
// active set.
type Aggregator struct {
	hooks []Definition
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddPolicyHooks adds hooks from managed policy.
func (a *Aggregator) AddPolicyHooks(hooks ...Definition) {
	a.add(Source{Kind: SourcePolicy}, hooks)
}

// AddPluginHooks adds hooks from a named plugin.
func (a *Aggregator) AddPluginHooks(plugin string, hooks ...Definition) {
	a.add(Source{Kind: SourcePlugin, Name: plugin}, hooks)
}

// AddSessionHooks adds hooks configured for the current session.
func (a *Aggregator) AddSessionHooks(hooks ...Definition) {
	a.add(Source{Kind: SourceSession}, hooks)
}

// AddAgentHooks adds hooks from a named agent.
func (a *Aggregator) AddAgentHooks(agent string, hooks ...Definition) {
	a.add(Source{Kind: SourceAgent, Name: agent}, hooks)
}

// AddSkillHooks adds hooks from a named skill.
func (a *Aggregator) AddSkillHooks(skill string, hooks ...Definition) {
	a.add(Source{Kind: SourceSkill, Name: skill}, hooks)
}

func (a *Aggregator) add(source Source, hooks []Definition) {
	for _, hook := range hooks {
		hook.Source = source
		a.hooks = append(a.hooks, hook)
	}
}

// Len returns the number of aggregated hooks before filtering.
func (a *Aggregator) Len() int { return len(a.hooks) }

// Build applies settings and returns the active set sorted by source
// priority (policy first). DisableAllHooks yields the empty set;
// AllowManagedHooksOnly drops session, agent, and skill hooks.
func (a *Aggregator) Build(settings Settings) []Definition {
	if settings.DisableAllHooks {
		return nil
	}
	out := make([]Definition, 0, len(a.hooks))
	for _, hook := range a.hooks {
		if settings.AllowManagedHooksOnly && !hook.Source.IsManaged() {
			continue
		}
		out = append(out, hook)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Source.Priority() < out[j].Source.Priority()
	})
	return out
}
