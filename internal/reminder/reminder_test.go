package reminder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cocodehq/cocode/internal/tasks"
)

func timeNowPlusSecond() time.Time { return time.Now().Add(2 * time.Second) }

func testContext(prompt string, cwd string) *GeneratorContext {
	config := DefaultConfig()
	return &GeneratorContext{
		Config:      &config,
		TurnNumber:  1,
		IsMainAgent: true,
		UserPrompt:  prompt,
		Cwd:         cwd,
	}
}

func TestReminder_RenderTextWrapsTag(t *testing.T) {
	r := NewTextReminder(AttachmentChangedFiles, "file changed")
	msgs := r.Render()
	if len(msgs) != 1 {
		t.Fatalf("len = %d", len(msgs))
	}
	if !msgs[0].IsMeta {
		t.Error("reminder messages must be meta")
	}
	text := msgs[0].Text()
	if !strings.HasPrefix(text, "<system-reminder>") || !strings.HasSuffix(text, "</system-reminder>") {
		t.Errorf("text = %q", text)
	}
}

func TestReminder_TagNames(t *testing.T) {
	tests := []struct {
		tag  XMLTag
		want string
	}{
		{TagSystemReminder, "system-reminder"},
		{TagSystemNotification, "system-notification"},
		{TagNewDiagnostics, "new-diagnostics"},
		{TagSessionMemory, "session-memory"},
	}
	for _, tt := range tests {
		if string(tt.tag) != tt.want {
			t.Errorf("tag = %q, want %q", tt.tag, tt.want)
		}
	}
}

func TestThrottleState(t *testing.T) {
	state := &throttleState{}
	config := ThrottleConfig{MinTurnsBetween: 5}

	if !state.allow(config, 1) {
		t.Error("first firing allowed")
	}
	state.fired(1)
	if state.allow(config, 3) {
		t.Error("turn 3 within min gap")
	}
	if !state.allow(config, 6) {
		t.Error("turn 6 past min gap")
	}

	once := 1
	capped := ThrottleConfig{MaxPerSession: &once}
	state = &throttleState{}
	if !state.allow(capped, 1) {
		t.Error("first firing allowed")
	}
	state.fired(1)
	if state.allow(capped, 10) {
		t.Error("max per session reached")
	}
}

func TestAgentMentions(t *testing.T) {
	gen := &AgentMentionsGenerator{}

	r, err := gen.Generate(context.Background(), testContext("Hello, how are you?", "/tmp"))
	if err != nil || r != nil {
		t.Errorf("no mentions: r=%v err=%v", r, err)
	}

	r, err = gen.Generate(context.Background(), testContext("Ask @agent-explore to scan", "/tmp"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if r == nil || !strings.Contains(r.Text, `"explore"`) {
		t.Errorf("reminder = %+v", r)
	}
}

func TestParseFileMentions(t *testing.T) {
	mentions := ParseFileMentions("Check @test.txt:3-5 and @src/main.go and @agent-plan please")
	if len(mentions) != 2 {
		t.Fatalf("mentions = %+v", mentions)
	}
	if mentions[0].Path != "test.txt" || mentions[0].StartLine != 3 || mentions[0].EndLine != 5 {
		t.Errorf("mention[0] = %+v", mentions[0])
	}
	if mentions[1].Path != "src/main.go" || mentions[1].StartLine != 0 {
		t.Errorf("mention[1] = %+v", mentions[1])
	}
}

func writeLines(t *testing.T, dir, name string, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAtMentionedFiles_Range(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "test.txt", 10)

	gen := &AtMentionedFilesGenerator{}
	r, err := gen.Generate(context.Background(), testContext("Check @test.txt:3-5 please", dir))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if r == nil {
		t.Fatal("expected reminder")
	}
	if r.IsText() {
		t.Fatal("at-mentions should emit message pairs")
	}

	// First message is the synthetic Read tool use.
	uses := r.Messages[0].ToolUses()
	if len(uses) != 1 || uses[0].Name != "Read" {
		t.Fatalf("first message should be a Read tool use, got %+v", r.Messages[0])
	}

	results := r.Messages[1].ToolResults()
	if len(results) != 1 {
		t.Fatal("second message should be the tool result")
	}
	content := results[0].Content.ToText()
	for _, want := range []string{"line 3", "line 4", "line 5"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q", want)
		}
	}
	if strings.Contains(content, "line 6") {
		t.Error("content should exclude line 6")
	}
}

func TestAtMentionedFiles_StartToEOF(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "test.txt", 10)

	gen := &AtMentionedFilesGenerator{}
	r, err := gen.Generate(context.Background(), testContext("Check @test.txt:8 please", dir))
	if err != nil || r == nil {
		t.Fatalf("generate: r=%v err=%v", r, err)
	}
	content := r.Messages[1].ToolResults()[0].Content.ToText()
	for _, want := range []string{"line 8", "line 9", "line 10"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q", want)
		}
	}
	if strings.Contains(content, "line 7") {
		t.Error("content should exclude line 7")
	}
}

func TestTokenUsage_Warnings(t *testing.T) {
	gen := &TokenUsageGenerator{}

	gctx := testContext("", "/tmp")
	gctx.TokenUsage = &TokenUsageInfo{ContextUsagePercent: 85, TotalSessionTokens: 100000, ContextCapacity: 200000}
	r, err := gen.Generate(context.Background(), gctx)
	if err != nil || r == nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(r.Text, "Warning") {
		t.Error("85% should warn")
	}

	gctx.TokenUsage.ContextUsagePercent = 96
	r, _ = gen.Generate(context.Background(), gctx)
	if !strings.Contains(r.Text, "CRITICAL") {
		t.Error("96% should be critical")
	}

	// Low usage off-cadence: silent.
	gctx.TokenUsage.ContextUsagePercent = 10
	gctx.TurnNumber = 3
	r, _ = gen.Generate(context.Background(), gctx)
	if r != nil {
		t.Error("low usage off the cadence should not report")
	}
}

func TestOutputStyle(t *testing.T) {
	gen := &OutputStyleGenerator{}

	config := DefaultConfig()
	if gen.IsEnabled(&config) {
		t.Error("disabled without style config")
	}

	config.OutputStyle = OutputStyleConfig{Enabled: true, StyleName: "explanatory"}
	if !gen.IsEnabled(&config) {
		t.Error("enabled with builtin style")
	}

	gctx := testContext("", "/tmp")
	gctx.Config = &config
	r, err := gen.Generate(context.Background(), gctx)
	if err != nil || r == nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(r.Text, "educational insights") {
		t.Errorf("text = %q", r.Text)
	}

	// Free-text instruction overrides the builtin.
	config.OutputStyle.Instruction = "Answer in haiku."
	r, _ = gen.Generate(context.Background(), gctx)
	if !strings.Contains(r.Text, "Answer in haiku.") {
		t.Error("instruction should override builtin style")
	}
}

func TestUnifiedTasks(t *testing.T) {
	gen := &UnifiedTasksGenerator{}
	registry := tasks.NewRegistry()
	runID := registry.Register(tasks.TypeShell, "npm test")
	doneID := registry.Register(tasks.TypeAsyncAgent, "explore codebase")
	registry.Complete(doneID, 0)
	registry.AppendOutput(runID, "output\n")

	gctx := testContext("", "/tmp")
	gctx.Tasks = registry.List()
	r, err := gen.Generate(context.Background(), gctx)
	if err != nil || r == nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{"### Running", "### Completed", "npm test", "TaskOutput", "(new output)", "1 running, 1 completed, 0 failed"} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("text missing %q:\n%s", want, r.Text)
		}
	}
}

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.txt")
	if err := os.WriteFile(path, []byte("original\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tracker := NewFileTracker()
	defer tracker.Close()
	tracker.Track(path, "original\n", true)

	gen := &ChangedFilesGenerator{}
	gctx := testContext("", dir)
	gctx.Files = tracker

	// Unchanged: no reminder.
	r, err := gen.Generate(context.Background(), gctx)
	if err != nil || r != nil {
		t.Fatalf("unchanged: r=%v err=%v", r, err)
	}

	// Change the file with a newer mtime.
	if err := os.WriteFile(path, []byte("modified\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	future := timeNowPlusSecond()
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	r, err = gen.Generate(context.Background(), gctx)
	if err != nil || r == nil {
		t.Fatalf("changed: r=%v err=%v", r, err)
	}
	if !strings.Contains(r.Text, "watched.txt") || !strings.Contains(r.Text, "+modified") {
		t.Errorf("text = %q", r.Text)
	}

	// Reported once: a second pass is silent.
	r, _ = gen.Generate(context.Background(), gctx)
	if r != nil {
		t.Error("change should report only once")
	}
}

func TestPipeline_TierFiltering(t *testing.T) {
	pipeline := NewPipeline()
	config := DefaultConfig()

	gctx := &GeneratorContext{
		Config:      &config,
		TurnNumber:  1,
		IsMainAgent: false,
		UserPrompt:  "ask @agent-plan",
		Cwd:         "/tmp",
		Tasks: []tasks.Task{
			{ID: "task-1", Type: tasks.TypeShell, Command: "x", Status: tasks.StatusRunning},
		},
	}
	reminders := pipeline.Run(context.Background(), gctx)

	// UnifiedTasks is main-agent-only and must not fire for a subagent;
	// agent mentions (user-prompt tier) should.
	for _, r := range reminders {
		if r.Type == AttachmentBackgroundTask {
			t.Error("main-agent-only reminder fired for subagent")
		}
	}
	found := false
	for _, r := range reminders {
		if r.Type == AttachmentAgentMentions {
			found = true
		}
	}
	if !found {
		t.Error("agent mentions should fire on user prompt")
	}
}

func TestDiffSnippet(t *testing.T) {
	if diffSnippet("same", "same") != "" {
		t.Error("identical content yields empty diff")
	}
	diff := diffSnippet("a\nb\nc\n", "a\nX\nc\n")
	if !strings.Contains(diff, "-b") || !strings.Contains(diff, "+X") {
		t.Errorf("diff = %q", diff)
	}
	if strings.Contains(diff, "-a") || strings.Contains(diff, "-c") {
		t.Error("common prefix/suffix should be trimmed")
	}
}
