package schema

import "context"

// ChatOptions configures a single model request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewChatOptions builds ChatOptions from raw values.
func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{Model: model, MaxTokens: maxTokens, Temperature: temperature}
}

// Usage is the token accounting for one backend call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Runtime      float64 // seconds spent inside the backend call
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Runtime += other.Runtime
}

// Normalised stop reasons. Adapters map backend-specific values onto these.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
	StopError     = "error"
)

// ModelReply is the normalised result of one backend call.
type ModelReply struct {
	Parts      []ContentPart
	Usage      Usage
	StopReason string
	Model      string // the model that actually answered
}

// HasToolUse reports whether the reply requests any tool invocation.
func (r ModelReply) HasToolUse() bool {
	for _, p := range r.Parts {
		if p.Kind == PartToolUse {
			return true
		}
	}
	return false
}

// ToolUses returns the requested tool invocations in order.
func (r ModelReply) ToolUses() []ToolUse {
	var out []ToolUse
	for _, p := range r.Parts {
		if p.Kind == PartToolUse && p.ToolUse != nil {
			out = append(out, *p.ToolUse)
		}
	}
	return out
}

// Text concatenates the reply's text parts.
func (r ModelReply) Text() string {
	return Message{Role: RoleAssistant, Parts: r.Parts}.JoinedText()
}

// LLMProvider is the contract every backend implements: translate the
// canonical history into the backend's wire format, perform one blocking
// call, and translate the response back. Implementations must degrade
// malformed content parts to text placeholders rather than fail, and must
// surface transport problems through the providers error taxonomy so the
// orchestrator can tell connection, rate-limit, and status failures apart.
type LLMProvider interface {
	// Name returns the provider id, e.g. "openai".
	Name() string
	// SupportsSystemRole reports whether a system preamble may be injected.
	SupportsSystemRole() bool
	// Chat performs one request/response exchange.
	Chat(ctx context.Context, history []Message, systemPrompt string, tools []ToolDescriptor, opts ChatOptions) (ModelReply, error)
}
