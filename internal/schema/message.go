// Package schema defines the canonical conversation model shared by every
// part of switchboard: messages, content parts, provider contracts, and the
// per-turn result type. Provider adapters translate this model to and from
// each backend's wire format; nothing outside the adapters ever sees a
// backend-specific shape.
package schema

import "strings"

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleTool carries tool execution results back to the model. Adapters
	// map it to whatever the backend expects (a "tool" message, a
	// tool_result block, a functionResponse part).
	RoleTool Role = "tool"
)

// PartKind tags a ContentPart.
type PartKind string

const (
	PartText       PartKind = "text"
	PartImage      PartKind = "image"
	PartToolUse    PartKind = "tool_use"
	PartToolResult PartKind = "tool_result"
)

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult is the outcome of executing one ToolUse. ToolUseID pairs it
// with the originating call and is the authoritative pairing key; ToolName
// is a convenience echo that some backends reject and adapters may strip.
type ToolResult struct {
	ToolUseID string
	ToolName  string
	Content   string
}

// ContentPart is one atomic unit of message content. Exactly one of the
// payload fields is meaningful, selected by Kind. Adapters must tolerate
// parts whose Kind they do not recognise and degrade them to placeholder
// text instead of failing the request.
type ContentPart struct {
	Kind PartKind

	Text string // PartText

	MediaType string // PartImage
	Data      []byte // PartImage, raw bytes (already base64-decoded)

	ToolUse    *ToolUse    // PartToolUse
	ToolResult *ToolResult // PartToolResult
}

// TextPart builds a text content part.
func TextPart(s string) ContentPart {
	return ContentPart{Kind: PartText, Text: s}
}

// ImagePart builds an image content part.
func ImagePart(mediaType string, data []byte) ContentPart {
	return ContentPart{Kind: PartImage, MediaType: mediaType, Data: data}
}

// ToolUsePart builds a tool-use content part.
func ToolUsePart(id, name string, args map[string]any) ContentPart {
	return ContentPart{Kind: PartToolUse, ToolUse: &ToolUse{ID: id, Name: name, Arguments: args}}
}

// ToolResultPart builds a tool-result content part.
func ToolResultPart(toolUseID, toolName, content string) ContentPart {
	return ContentPart{Kind: PartToolResult, ToolResult: &ToolResult{
		ToolUseID: toolUseID,
		ToolName:  toolName,
		Content:   content,
	}}
}

// Message is one entry in a conversation history.
type Message struct {
	Role  Role
	Parts []ContentPart
}

// NewUserText builds a plain-text user message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Parts: []ContentPart{TextPart(text)}}
}

// NewUserMessage builds a user message from arbitrary parts.
func NewUserMessage(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// NewAssistantMessage builds an assistant message from arbitrary parts.
func NewAssistantMessage(parts ...ContentPart) Message {
	return Message{Role: RoleAssistant, Parts: parts}
}

// NewToolResultMessage builds a tool message carrying one result.
func NewToolResultMessage(toolUseID, toolName, content string) Message {
	return Message{Role: RoleTool, Parts: []ContentPart{ToolResultPart(toolUseID, toolName, content)}}
}

// FirstText returns the first text part's content, or "".
func (m Message) FirstText() string {
	for _, p := range m.Parts {
		if p.Kind == PartText {
			return p.Text
		}
	}
	return ""
}

// JoinedText concatenates every text part, separated by newlines.
func (m Message) JoinedText() string {
	var segs []string
	for _, p := range m.Parts {
		if p.Kind == PartText && p.Text != "" {
			segs = append(segs, p.Text)
		}
	}
	return strings.Join(segs, "\n")
}

// ToolUses returns every tool-use part in order.
func (m Message) ToolUses() []ToolUse {
	var out []ToolUse
	for _, p := range m.Parts {
		if p.Kind == PartToolUse && p.ToolUse != nil {
			out = append(out, *p.ToolUse)
		}
	}
	return out
}

// ToolResults returns every tool-result part in order.
func (m Message) ToolResults() []ToolResult {
	var out []ToolResult
	for _, p := range m.Parts {
		if p.Kind == PartToolResult && p.ToolResult != nil {
			out = append(out, *p.ToolResult)
		}
	}
	return out
}

// HasToolResult reports whether the message carries any tool-result part.
func (m Message) HasToolResult() bool {
	return len(m.ToolResults()) > 0
}

// HasToolUse reports whether the message carries any tool-use part.
func (m Message) HasToolUse() bool {
	return len(m.ToolUses()) > 0
}

// CloneHistory copies a history slice so callers can append without
// mutating the original backing array.
func CloneHistory(history []Message) []Message {
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
