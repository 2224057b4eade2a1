package reminder

import (
	"context"
	"fmt"
)

// builtinStyles are the named output styles.
var builtinStyles = map[string]string{
	"explanatory": "Provide educational insights as you work. Explain the reasoning behind " +
		"implementation choices and point out patterns worth knowing.",
	"learning": "Work collaboratively and leave deliberate gaps for the user to fill in. " +
		"Ask the user to contribute small pieces rather than doing everything yourself.",
	"concise": "Keep responses short. Lead with the outcome, skip preamble, and avoid " +
		"restating what the user already knows.",
}

// OutputStyleGenerator injects the configured style directive once per
// session. A free-text instruction overrides a builtin style name.
type OutputStyleGenerator struct{}

func (g *OutputStyleGenerator) Name() string                 { return "OutputStyleGenerator" }
func (g *OutputStyleGenerator) AttachmentType() AttachmentType { return AttachmentOutputStyle }
func (g *OutputStyleGenerator) Tier() Tier                   { return TierCore }

func (g *OutputStyleGenerator) Throttle() ThrottleConfig {
	once := 1
	return ThrottleConfig{MaxPerSession: &once}
}

func (g *OutputStyleGenerator) IsEnabled(config *Config) bool {
	if !config.Attachments.OutputStyle || !config.OutputStyle.Enabled {
		return false
	}
	return config.OutputStyle.Instruction != "" || config.OutputStyle.StyleName != ""
}

func (g *OutputStyleGenerator) Generate(_ context.Context, gctx *GeneratorContext) (*Reminder, error) {
	style := gctx.Config.OutputStyle

	instruction := style.Instruction
	if instruction == "" {
		builtin, ok := builtinStyles[style.StyleName]
		if !ok {
			return nil, fmt.Errorf("unknown output style %q", style.StyleName)
		}
		instruction = builtin
	}
	return NewTextReminder(AttachmentOutputStyle, "## Output Style\n"+instruction), nil
}
