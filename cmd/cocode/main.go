// Command cocode runs the agent execution core from a terminal: it wires
// configuration, providers, tools, hooks, and the session driver, then
// drives turns from stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cocodehq/cocode/internal/agent"
	"github.com/cocodehq/cocode/internal/config"
	"github.com/cocodehq/cocode/internal/hooks"
	"github.com/cocodehq/cocode/internal/paste"
	"github.com/cocodehq/cocode/internal/providers"
	"github.com/cocodehq/cocode/internal/reminder"
	"github.com/cocodehq/cocode/internal/sandbox"
	"github.com/cocodehq/cocode/internal/sessions"
	"github.com/cocodehq/cocode/internal/shell"
	"github.com/cocodehq/cocode/internal/skills"
	"github.com/cocodehq/cocode/internal/subagent"
	"github.com/cocodehq/cocode/internal/tools"
	"github.com/cocodehq/cocode/internal/tools/builtin"
	"github.com/cocodehq/cocode/pkg/models"
)

var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath string
		modelFlag  string
		prompt     string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "cocode",
		Short: "Terminal coding assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return run(cmd.Context(), configPath, modelFlag, prompt)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.Flags().StringVarP(&modelFlag, "model", "m", "anthropic/claude-sonnet-4-20250514", "model as provider/model")
	root.Flags().StringVarP(&prompt, "prompt", "p", "", "run one prompt and exit")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cocode", version)
		},
	})
	root.AddCommand(sessionsCommand())
	return root
}

func sessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessions.NewStore("")
			list, err := store.List()
			if err != nil {
				return err
			}
			for _, s := range list {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %s  %s\n", s.ID, s.LastActivityAt.Format("2006-01-02 15:04"), title)
			}
			return nil
		},
	}
	return cmd
}

func run(ctx context.Context, configPath, modelFlag, oneShot string) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	spec, err := models.ParseModelSpec(modelFlag)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	driver, store, cleanup, err := buildDriver(ctx, cfg, spec, cwd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pasteManager := paste.NewManager(store.Dir() + "/paste-cache")

	if oneShot != "" {
		return submit(ctx, driver, pasteManager, oneShot)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	fmt.Println("cocode", version, "—", spec.String())
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			return store.Save(driver.Session())
		}
		processed := pasteManager.ProcessText(line)
		if err := submit(ctx, driver, pasteManager, processed); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if err := store.Save(driver.Session()); err != nil {
			slog.Warn("failed to persist session", "error", err)
		}
	}
}

func submit(ctx context.Context, driver *agent.Driver, pasteManager *paste.Manager, text string) error {
	input := agent.UserInput{Text: pasteManager.ResolvePills(text)}
	if pasteManager.HasPills(text) {
		blocks := pasteManager.ResolveToBlocks(text)
		// Image pills become attachment blocks; text resolves inline.
		var attachments []models.ContentBlock
		var sb strings.Builder
		for _, b := range blocks {
			if b.Type == models.BlockImage {
				attachments = append(attachments, b)
			} else {
				sb.WriteString(b.Text)
			}
		}
		input = agent.UserInput{Text: sb.String(), Attachments: attachments}
	}

	for event := range driver.SubmitUserTurn(ctx, input, agent.TurnOptions{IsMainAgent: true}) {
		switch event.Type {
		case agent.TurnTextDelta:
			fmt.Print(event.Delta)
		case agent.TurnToolCallStarted:
			fmt.Printf("\n[tool: %s]\n", event.ToolCall.Name)
		case agent.TurnError:
			return event.Err
		case agent.TurnCompleted:
			fmt.Printf("\n[%s — %d in / %d out tokens]\n",
				event.FinishReason, event.Usage.InputTokens, event.Usage.OutputTokens)
		}
	}
	return nil
}

func buildDriver(ctx context.Context, cfg config.Config, spec models.ModelSpec, cwd string) (*agent.Driver, *sessions.Store, func(), error) {
	providerRegistry := providers.NewRegistry(cfg.Providers...)

	session := models.NewSession(cwd, models.NewRoleSelection(spec))
	store := sessions.NewStore("")
	sessionDir, err := store.SessionDir(session.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	sh := shell.Resolve()
	snapshot, err := shell.CaptureSnapshot(ctx, sh)
	if err != nil {
		slog.Debug("shell snapshot unavailable", "error", err)
	}
	sh.Snapshot = snapshot
	executor := shell.NewExecutor(sh, nil)

	skillManager := skills.NewManager()
	if home, err := os.UserHomeDir(); err == nil {
		_ = skillManager.Discover(home+"/.cocode/skills", skills.SourceUser)
	}
	_ = skillManager.Discover(cwd+"/.cocode/skills", skills.SourceWorkspace)

	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(&builtin.ReadTool{})
	toolRegistry.Register(&builtin.WriteTool{})
	toolRegistry.Register(builtin.NewBashTool(executor, cfg.SandboxSettings))
	toolRegistry.Register(&builtin.TaskOutputTool{})
	toolRegistry.Register(tools.NewMcpSearchTool(toolRegistry))
	toolRegistry.Register(skills.NewSkillTool(skillManager))

	aggregator := hooks.NewAggregator()
	hookRegistry := hooks.NewRegistry(aggregator.Build(cfg.Hooks))

	// Agent-handler hooks verify through an isolated general subagent;
	// its terminal outcome reaches the model via the reminder pipeline.
	subExecutor := subagent.NewExecutor(providerRegistry, nil)
	hookRegistry.SetAgentRunner(func(ctx context.Context, def hooks.Definition, event *hooks.Event) hooks.Outcome {
		eventJSON, _ := json.Marshal(event)
		prompt := def.Handler.Template
		if prompt == "" {
			prompt = "Verify the following hook event. Reply PASS if the operation should " +
				"proceed, or FAIL with a reason if it should be blocked:\n$ARGUMENTS"
		}
		prompt = strings.ReplaceAll(prompt, "$ARGUMENTS", string(eventJSON))

		result, err := subExecutor.Run(ctx, subagent.RunInput{
			AgentType:      "general",
			Prompt:         prompt,
			ParentSession:  session,
			ParentRegistry: toolRegistry,
			ParentMaxTurns: session.MaxTurns,
			SessionDir:     sessionDir,
		})
		if err != nil {
			slog.Warn("agent hook verification failed", "hook", def.Name, "error", err)
			return hooks.Continue()
		}
		if strings.Contains(result.Text, "FAIL") {
			return hooks.Reject(strings.TrimSpace(result.Text))
		}
		return hooks.ContinueWithContext(strings.TrimSpace(result.Text))
	})

	driverConfig := agent.DefaultDriverConfig()
	driverConfig.SessionDir = sessionDir
	driverConfig.SystemPrompt = systemPrompt(cwd)
	driverConfig.Dispatcher.MaxConcurrency = cfg.MaxToolConcurrency
	driverConfig.Dispatcher.McpToolTimeout = time.Duration(cfg.McpToolTimeout) * time.Millisecond
	driverConfig.Dispatcher.Persistence = tools.PersistenceConfig{
		MaxResultSize:     cfg.MaxResultSize,
		ResultPreviewSize: cfg.ResultPreviewSize,
		Enabled:           cfg.ResultPersistenceEnabled(),
	}
	driverConfig.Compaction.Disabled = cfg.DisableCompact
	driverConfig.Compaction.AutoCompactPct = cfg.AutoCompactPct
	driverConfig.Compaction.MicroCompactMinSavings = cfg.MicroCompactMinSavings
	driverConfig.Compaction.MaxSummaryRetries = cfg.MaxSummaryRetries
	driverConfig.Compaction.SessionMemory.MinSavingsTokens = cfg.SessionMemoryMinTokens
	driverConfig.Reminders.Attachments.TokenUsage = cfg.TokenUsageAttachmentEnabled()
	if cfg.AttachmentsDisabled() {
		driverConfig.Reminders.Attachments = reminder.AttachmentToggles{}
	}
	driverConfig.Sandbox = sandbox.NewChecker(cfg.Sandbox)

	driver := agent.NewDriver(session, providerRegistry, toolRegistry, hookRegistry, driverConfig)
	cleanup := func() {
		if snapshot != nil {
			snapshot.Close()
		}
	}
	return driver, store, cleanup, nil
}

func systemPrompt(cwd string) string {
	return "You are cocode, a terminal coding assistant. You help with software " +
		"engineering tasks in the repository at " + cwd + ". Use the available tools " +
		"to read, modify, and test code. Keep answers concise."
}
