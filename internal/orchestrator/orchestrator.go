// Package orchestrator drives one conversation turn end to end: append the
// user message, enforce the token budget, resolve a provider, call it, run
// any requested tools, and loop until a final answer or the tool-loop
// ceiling. The session is saved on every exit path, so a failed turn never
// loses the progress already appended to history.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/router"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/session"
	"github.com/switchboard-ai/switchboard/internal/shared/llmutils"
	"github.com/switchboard-ai/switchboard/internal/tools"
)

const (
	// MaxToolLoops bounds model→tool→model iterations within one turn.
	MaxToolLoops = 5
	// MaxConversationTokens is the per-session lifetime budget.
	MaxConversationTokens = 200000
)

// ModePreambles are the optional system preambles selectable per turn.
var ModePreambles = map[string]string{
	"deep_research": "You are in Deep Research mode. Research deeply, verify facts, and reference credible sources.",
	"think":         "You are in Think mode. Analyze the question using careful, logical step-by-step reasoning.",
	"write_code":    "You are in Write/Code mode. Respond with concise, working code and explain it briefly.",
	"image":         "You are in Image mode. Describe the visual scene clearly, suitable for generating an illustration.",
}

// Messages returned on the turn's degraded exit paths.
const (
	msgBudgetExhausted = "Token limit reached! Please reset the conversation to continue."
	msgMaxLoops        = "[Reached maximum tool execution turns]"
	msgNonTextReply    = "[Assistant responded with non-text content]"
	msgEmptyReply      = "[No suitable content found in response]"
)

// Request is one turn's input.
type Request struct {
	SessionID string
	// Message is the new user message: text and/or image parts.
	Message schema.Message
	// ProviderSelector is a provider id, an alias, "auto", or "".
	ProviderSelector string
	// Mode optionally selects a preamble from ModePreambles.
	Mode string
	// Options tunes the backend call; zero values use provider defaults.
	Options schema.ChatOptions
}

// Orchestrator runs conversation turns.
type Orchestrator struct {
	providers map[string]schema.LLMProvider
	router    *router.Router
	registry  *tools.Registry
	executor  *tools.Executor
	store     session.Store

	maxToolLoops int
	maxTokens    int
}

// New wires an orchestrator. The providers map is keyed by canonical
// provider id and must cover every id the router can resolve to.
func New(provs map[string]schema.LLMProvider, rt *router.Router, reg *tools.Registry, store session.Store) *Orchestrator {
	return &Orchestrator{
		providers:    provs,
		router:       rt,
		registry:     reg,
		executor:     tools.NewExecutor(reg),
		store:        store,
		maxToolLoops: MaxToolLoops,
		maxTokens:    MaxConversationTokens,
	}
}

// Reset empties a session's history and token budget.
func (o *Orchestrator) Reset(sessionID string) error {
	unlock := o.store.Lock(sessionID)
	defer unlock()
	return o.store.Reset(sessionID)
}

// Chat executes one turn. The returned error covers only infrastructure
// failures (session storage, unknown provider); backend and tool failures
// degrade into the response text with the session intact.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (schema.TurnResult, error) {
	unlock := o.store.Lock(req.SessionID)
	defer unlock()

	sess, err := o.store.GetOrCreate(req.SessionID)
	if err != nil {
		return schema.TurnResult{}, fmt.Errorf("load session %s: %w", req.SessionID, err)
	}

	sess.Append(req.Message)

	// Fast local rejection before any backend contact.
	if sess.TotalTokensUsed >= o.maxTokens {
		o.save(sess)
		return schema.TurnResult{
			ResponseText: msgBudgetExhausted,
			TotalTokens:  sess.TotalTokensUsed,
			Terminal:     true,
		}, nil
	}

	res := o.router.Resolve(ctx, req.ProviderSelector, classificationText(req.Message))
	provider, ok := o.providers[res.Provider]
	if !ok {
		o.save(sess)
		return schema.TurnResult{}, fmt.Errorf("no adapter configured for provider %q", res.Provider)
	}

	result := schema.TurnResult{
		ProviderUsed:   res.Provider,
		WasClassified:  res.WasClassified,
		FallbackReason: res.FallbackReason,
	}

	var (
		finalText             string
		prevEndedInToolResult bool
		loopsDone             int
	)

	for loop := 0; loop < o.maxToolLoops; loop++ {
		loopsDone = loop + 1

		if sess.TotalTokensUsed >= o.maxTokens {
			o.save(sess)
			result.ResponseText = msgBudgetExhausted
			result.TotalTokens = sess.TotalTokensUsed
			result.Terminal = true
			return result, nil
		}

		system := o.systemPrompt(req.Mode, provider, prevEndedInToolResult)

		reply, err := provider.Chat(ctx, sess.History, system, o.registry.Descriptors(), req.Options)

		// Token spend accumulates even when the call ultimately failed to
		// produce usable content.
		sess.AddUsage(reply.Usage)
		result.Usage.Add(reply.Usage)
		if reply.Model != "" {
			result.ModelUsed = reply.Model
		}

		if err != nil {
			slog.Error("Backend call failed", "provider", res.Provider, "err", err)
			o.save(sess)
			if finalText == "" {
				finalText = fmt.Sprintf("Error communicating with %s: %v", res.Provider, err)
			}
			result.ResponseText = finalText
			result.TotalTokens = sess.TotalTokensUsed
			return result, nil
		}

		slog.Info(
			"Model reply",
			"provider", res.Provider,
			"loop", loopsDone,
			"stop", reply.StopReason,
			"tokens_in", reply.Usage.InputTokens,
			"tokens_out", reply.Usage.OutputTokens,
		)

		if text := reply.Text(); text != "" {
			finalText = llmutils.StripThink(text)
		}

		uses := reply.ToolUses()
		if len(uses) == 0 {
			if finalText == "" {
				if len(reply.Parts) > 0 {
					finalText = msgNonTextReply
				} else {
					finalText = msgEmptyReply
				}
			}
			if len(reply.Parts) > 0 {
				sess.Append(schema.NewAssistantMessage(reply.Parts...))
			} else {
				sess.Append(schema.NewAssistantMessage(schema.TextPart(finalText)))
			}
			break
		}

		slog.Info("Executing tools", "calls", llmutils.ToolHint(uses))
		sess.Append(schema.NewAssistantMessage(reply.Parts...))

		resultParts := make([]schema.ContentPart, 0, len(uses))
		for _, use := range uses {
			out := o.executor.Execute(ctx, use)
			resultParts = append(resultParts, schema.ToolResultPart(use.ID, use.Name, out))
			result.ToolInvoked = use.Name
		}
		sess.Append(schema.Message{Role: schema.RoleTool, Parts: resultParts})
		prevEndedInToolResult = true

		if loopsDone == o.maxToolLoops {
			finalText = msgMaxLoops
			result.Terminal = true
		}
	}

	if finalText == msgMaxLoops {
		slog.Warn("Tool loop ceiling reached", "session", req.SessionID)
	}

	o.save(sess)
	result.ResponseText = finalText
	result.TotalTokens = sess.TotalTokensUsed
	return result, nil
}

// systemPrompt picks the preamble for this iteration. Preambles are skipped
// for providers without a system role and whenever the previous iteration
// ended in tool results, which some backends reject a system line after.
func (o *Orchestrator) systemPrompt(mode string, provider schema.LLMProvider, prevEndedInToolResult bool) string {
	if prevEndedInToolResult || !provider.SupportsSystemRole() {
		return ""
	}
	return ModePreambles[mode]
}

func (o *Orchestrator) save(sess *session.Session) {
	if err := o.store.Save(sess); err != nil {
		slog.Error("Failed to save session", "session", sess.ID, "err", err)
	}
}

// classificationText extracts the router input from a user message: the
// first text part, or a placeholder for image-only turns so the classifier
// never receives an empty string.
func classificationText(msg schema.Message) string {
	if t := msg.FirstText(); strings.TrimSpace(t) != "" {
		return t
	}
	for _, p := range msg.Parts {
		if p.Kind == schema.PartImage {
			return router.ImageOnlyText
		}
	}
	return ""
}
