package schema

// SessionKind selects the backing strategy for a conversation session.
type SessionKind string

const (
	// SessionEphemeral lives only in the server process.
	SessionEphemeral SessionKind = "ephemeral"
	// SessionPersistent is written through to the session file store.
	SessionPersistent SessionKind = "persistent"
)

// TurnResult is the externally observable outcome of one orchestrator turn.
type TurnResult struct {
	ResponseText string
	// ToolInvoked names the last tool executed during the turn, "" if none.
	ToolInvoked  string
	ProviderUsed string
	ModelUsed    string
	// WasClassified is true when the auto-router's classifier picked the provider.
	WasClassified bool
	// FallbackReason explains a routing fallback onto the default provider.
	FallbackReason string
	Usage         Usage
	// TotalTokens is the session's cumulative token count after this turn.
	TotalTokens int
	// Terminal is set for budget-exhausted and loop-ceiling turns: the
	// session needs an explicit reset (budget) or simply ended early (loop).
	Terminal bool
}
