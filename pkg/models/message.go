package models

import (
	"encoding/json"
	"strings"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// BlockType discriminates ContentBlock variants.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
	BlockImage      BlockType = "image"
)

// ContentBlock is one ordered element of a message's content. Exactly one
// payload is meaningful for a given Type. Assistant messages may interleave
// thinking, text, and tool-use blocks.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text payload for BlockText.
	Text string `json:"text,omitempty"`

	// ToolUse payload for BlockToolUse.
	ToolUse *ToolUseBlock `json:"tool_use,omitempty"`

	// ToolResult payload for BlockToolResult.
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`

	// Thinking payload for BlockThinking.
	Thinking *ThinkingBlock `json:"thinking,omitempty"`

	// Image payload for BlockImage.
	Image *ImageBlock `json:"image,omitempty"`
}

// ToolUseBlock is a model-emitted request to execute a tool.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock carries the output of a tool execution back to the model.
type ToolResultBlock struct {
	ToolUseID string            `json:"tool_use_id"`
	Content   ToolResultContent `json:"content"`
	IsError   bool              `json:"is_error,omitempty"`
}

// ThinkingBlock carries model reasoning content, optionally signed by the
// provider for replay.
type ThinkingBlock struct {
	Content   string `json:"content"`
	Signature string `json:"signature,omitempty"`
}

// ImageBlock references image data by source.
type ImageBlock struct {
	// MediaType is the MIME type (e.g. "image/png").
	MediaType string `json:"media_type"`
	// Data is base64-encoded image bytes.
	Data string `json:"data"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseContentBlock creates a tool-use content block.
func ToolUseContentBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolUse: &ToolUseBlock{ID: id, Name: name, Input: input}}
}

// ToolResultContentBlock creates a tool-result content block.
func ToolResultContentBlock(toolUseID string, content ToolResultContent, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolResult: &ToolResultBlock{
		ToolUseID: toolUseID, Content: content, IsError: isError,
	}}
}

// ThinkingContentBlock creates a thinking content block.
func ThinkingContentBlock(content, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Thinking: &ThinkingBlock{Content: content, Signature: signature}}
}

// ImageContentBlock creates an image content block.
func ImageContentBlock(mediaType, data string) ContentBlock {
	return ContentBlock{Type: BlockImage, Image: &ImageBlock{MediaType: mediaType, Data: data}}
}

// ResultContentKind discriminates ToolResultContent variants.
type ResultContentKind string

const (
	ResultText       ResultContentKind = "text"
	ResultStructured ResultContentKind = "structured"
	ResultBlocks     ResultContentKind = "blocks"
)

// ToolResultContent is the payload of a tool result: plain text, structured
// JSON, or a sequence of text/image blocks.
type ToolResultContent struct {
	Kind       ResultContentKind `json:"kind"`
	Text       string            `json:"text,omitempty"`
	Structured json.RawMessage   `json:"structured,omitempty"`
	Blocks     []ContentBlock    `json:"blocks,omitempty"`
}

// TextResult creates a text result content.
func TextResult(text string) ToolResultContent {
	return ToolResultContent{Kind: ResultText, Text: text}
}

// StructuredResult creates a structured JSON result content.
func StructuredResult(v json.RawMessage) ToolResultContent {
	return ToolResultContent{Kind: ResultStructured, Structured: v}
}

// BlocksResult creates a block-sequence result content. Only text and image
// blocks are meaningful here.
func BlocksResult(blocks []ContentBlock) ToolResultContent {
	return ToolResultContent{Kind: ResultBlocks, Blocks: blocks}
}

// ToText renders the canonical text form of the content.
func (c ToolResultContent) ToText() string {
	switch c.Kind {
	case ResultText:
		return c.Text
	case ResultStructured:
		return string(c.Structured)
	case ResultBlocks:
		var sb strings.Builder
		for _, b := range c.Blocks {
			if b.Type == BlockText {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(b.Text)
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// Len returns the length of the canonical text form.
func (c ToolResultContent) Len() int { return len(c.ToText()) }

// Message is one entry in the conversation history.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`

	// SourceProvider/SourceModel stamp which backend produced an
	// assistant message.
	SourceProvider string `json:"source_provider,omitempty"`
	SourceModel    string `json:"source_model,omitempty"`

	// IsMeta marks messages that never count as model output (system
	// reminders, synthetic read pairs).
	IsMeta bool `json:"is_meta,omitempty"`

	// ResponseID is the server-issued id for assistant messages from
	// adapters that support incremental resume.
	ResponseID string `json:"response_id,omitempty"`
}

// UserMessage creates a user message from content blocks.
func UserMessage(content ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: content}
}

// UserText creates a user message with a single text block.
func UserText(text string) Message {
	return UserMessage(TextBlock(text))
}

// AssistantMessage creates an assistant message from content blocks.
func AssistantMessage(content ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantText creates an assistant message with a single text block.
func AssistantText(text string) Message {
	return AssistantMessage(TextBlock(text))
}

// SystemText creates a system message with a single text block.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{TextBlock(text)}}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool-use blocks in content order.
func (m Message) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for i := range m.Content {
		if m.Content[i].Type == BlockToolUse {
			uses = append(uses, m.Content[i].ToolUse)
		}
	}
	return uses
}

// ToolResults returns the tool-result blocks in content order.
func (m Message) ToolResults() []*ToolResultBlock {
	var results []*ToolResultBlock
	for i := range m.Content {
		if m.Content[i].Type == BlockToolResult {
			results = append(results, m.Content[i].ToolResult)
		}
	}
	return results
}

// HasToolUse reports whether the message contains at least one complete
// tool-use block.
func (m Message) HasToolUse() bool {
	for i := range m.Content {
		if m.Content[i].Type == BlockToolUse {
			return true
		}
	}
	return false
}
