package models

import (
	"encoding/json"
	"testing"
)

func TestToolResultContent_ToText(t *testing.T) {
	if got := TextResult("plain").ToText(); got != "plain" {
		t.Errorf("text = %q", got)
	}
	if got := StructuredResult(json.RawMessage(`{"a":1}`)).ToText(); got != `{"a":1}` {
		t.Errorf("structured = %q", got)
	}
	blocks := BlocksResult([]ContentBlock{
		TextBlock("first"),
		ImageContentBlock("image/png", "data"),
		TextBlock("second"),
	})
	if got := blocks.ToText(); got != "first\nsecond" {
		t.Errorf("blocks = %q", got)
	}
}

func TestMessage_ContentOrdering(t *testing.T) {
	msg := AssistantMessage(
		ThinkingContentBlock("hmm", ""),
		TextBlock("I will read the file."),
		ToolUseContentBlock("c1", "Read", json.RawMessage(`{}`)),
	)
	if msg.Content[0].Type != BlockThinking ||
		msg.Content[1].Type != BlockText ||
		msg.Content[2].Type != BlockToolUse {
		t.Errorf("order = %v %v %v", msg.Content[0].Type, msg.Content[1].Type, msg.Content[2].Type)
	}
	if !msg.HasToolUse() {
		t.Error("message has a tool use")
	}
	if msg.Text() != "I will read the file." {
		t.Errorf("text = %q", msg.Text())
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	msg := AssistantMessage(
		TextBlock("hello"),
		ToolUseContentBlock("c1", "Bash", json.RawMessage(`{"command":"ls"}`)),
	)
	msg.SourceProvider = "anthropic"
	msg.ResponseID = "resp-1"

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Text() != "hello" || len(back.ToolUses()) != 1 {
		t.Errorf("round trip = %+v", back)
	}
	if back.SourceProvider != "anthropic" || back.ResponseID != "resp-1" {
		t.Errorf("metadata lost: %+v", back)
	}
}

func TestToolOutput_Constructors(t *testing.T) {
	if out := TextOutput("ok"); out.IsError || out.Content.ToText() != "ok" {
		t.Errorf("text output = %+v", out)
	}
	if out := ErrorOutput("bad"); !out.IsError {
		t.Error("error output should set is_error")
	}
}
