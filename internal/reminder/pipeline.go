package reminder

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/tasks"
)

// Config enables or disables generators and carries the output-style
// directive.
type Config struct {
	Attachments AttachmentToggles `yaml:"attachments"`
	OutputStyle OutputStyleConfig `yaml:"output_style"`
}

// AttachmentToggles turns individual generators on or off.
type AttachmentToggles struct {
	ChangedFiles     bool `yaml:"changed_files"`
	AtMentionedFiles bool `yaml:"at_mentioned_files"`
	AgentMentions    bool `yaml:"agent_mentions"`
	AlreadyReadFiles bool `yaml:"already_read_files"`
	TokenUsage       bool `yaml:"token_usage"`
	OutputStyle      bool `yaml:"output_style"`
	BackgroundTask   bool `yaml:"background_task"`
	AsyncHooks       bool `yaml:"async_hooks"`
}

// OutputStyleConfig selects the style directive injected once per session.
// A free-text instruction overrides a builtin style name.
type OutputStyleConfig struct {
	Enabled     bool   `yaml:"enabled"`
	StyleName   string `yaml:"style_name"`
	Instruction string `yaml:"instruction"`
}

// DefaultConfig enables every generator except output style.
func DefaultConfig() Config {
	return Config{
		Attachments: AttachmentToggles{
			ChangedFiles:     true,
			AtMentionedFiles: true,
			AgentMentions:    true,
			AlreadyReadFiles: true,
			TokenUsage:       true,
			OutputStyle:      true,
			BackgroundTask:   true,
			AsyncHooks:       true,
		},
	}
}

// TokenUsageInfo is the usage snapshot handed to generators.
type TokenUsageInfo struct {
	ContextUsagePercent float64
	TotalSessionTokens  int64
	ContextCapacity     int64
	InputTokens         int64
	OutputTokens        int64
	CacheReadTokens     int64
	CacheWriteTokens    int64
}

// GeneratorContext is the per-turn input to generators.
type GeneratorContext struct {
	Config      *Config
	TurnNumber  int
	IsMainAgent bool
	UserPrompt  string
	Cwd         string

	TokenUsage *TokenUsageInfo
	Tasks      []tasks.Task
	Files      *FileTracker
	AsyncHooks []hooks.CompletedAsyncHook
}

// Generator produces zero or one reminder per turn.
type Generator interface {
	Name() string
	AttachmentType() AttachmentType
	Tier() Tier
	Throttle() ThrottleConfig
	IsEnabled(config *Config) bool
	Generate(ctx context.Context, gctx *GeneratorContext) (*Reminder, error)
}

// Pipeline runs the generator set in tier order with per-generator
// throttling.
type Pipeline struct {
	mu         sync.Mutex
	generators []Generator
	throttle   map[string]*throttleState
}

// NewPipeline creates a pipeline over the default generator set.
func NewPipeline() *Pipeline {
	return NewPipelineWith(
		&ChangedFilesGenerator{},
		&AtMentionedFilesGenerator{},
		&AgentMentionsGenerator{},
		&AlreadyReadFilesGenerator{},
		&TokenUsageGenerator{},
		&OutputStyleGenerator{},
		&UnifiedTasksGenerator{},
		&AsyncHooksGenerator{},
	)
}

// NewPipelineWith creates a pipeline over an explicit generator set.
func NewPipelineWith(generators ...Generator) *Pipeline {
	sorted := make([]Generator, len(generators))
	copy(sorted, generators)
	sort.SliceStable(sorted, func(i, j int) bool {
		return tierOrder[sorted[i].Tier()] < tierOrder[sorted[j].Tier()]
	})
	return &Pipeline{
		generators: sorted,
		throttle:   make(map[string]*throttleState),
	}
}

// Run produces this turn's reminders: enabled generators whose tier applies
// and whose throttle allows, in tier order. Generator failures are logged
// and skipped.
func (p *Pipeline) Run(ctx context.Context, gctx *GeneratorContext) []*Reminder {
	var out []*Reminder
	for _, gen := range p.generators {
		if !gen.IsEnabled(gctx.Config) {
			continue
		}
		switch gen.Tier() {
		case TierMainAgentOnly:
			if !gctx.IsMainAgent {
				continue
			}
		case TierUserPrompt:
			if gctx.UserPrompt == "" {
				continue
			}
		}

		p.mu.Lock()
		state, ok := p.throttle[gen.Name()]
		if !ok {
			state = &throttleState{}
			p.throttle[gen.Name()] = state
		}
		allowed := state.allow(gen.Throttle(), gctx.TurnNumber)
		p.mu.Unlock()
		if !allowed {
			continue
		}

		reminder, err := gen.Generate(ctx, gctx)
		if err != nil {
			slog.Warn("reminder generator failed", "generator", gen.Name(), "error", err)
			continue
		}
		if reminder == nil {
			continue
		}

		p.mu.Lock()
		state.fired(gctx.TurnNumber)
		p.mu.Unlock()
		out = append(out, reminder)
	}
	return out
}
