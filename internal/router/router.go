// Package router resolves a client's provider selector into a concrete
// backend id. Direct names and aliases resolve against the provider
// registry; "auto" (and any unrecognised selector) runs the zero-shot
// classifier over the opening text of the turn and routes by label.
// Classification failure is always a local recovery onto the default
// provider, never a fatal error.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/classifier"
	"github.com/switchboard-ai/switchboard/internal/providers"
)

// SelectorAuto requests classifier-driven routing.
const SelectorAuto = "auto"

// ImageOnlyText stands in for the classification input when a turn carries
// no text parts, so attaching a bare image never feeds the classifier an
// empty string.
const ImageOnlyText = "image attachment"

// Resolution is the outcome of resolving one selector.
type Resolution struct {
	// Provider is the canonical provider id to use for this turn.
	Provider string
	// Label is the winning classification label, when one was obtained.
	Label string
	// WasClassified reports whether the classifier picked the provider.
	WasClassified bool
	// FallbackReason is non-empty when the default provider was substituted.
	FallbackReason string
}

// Router picks providers. Classifier may be nil, in which case auto
// selection always falls back to the table default.
type Router struct {
	table Table
	cls   classifier.Classifier
}

// New builds a Router over the given policy table and classifier.
func New(table Table, cls classifier.Classifier) *Router {
	return &Router{table: table, cls: cls}
}

// DefaultProvider exposes the table default for callers that report it.
func (r *Router) DefaultProvider() string {
	return r.table.DefaultProvider
}

// Resolve maps a selector and the turn's classification text onto a
// provider id. Unrecognised selectors fall through to auto routing.
func (r *Router) Resolve(ctx context.Context, selector, text string) Resolution {
	sel := strings.ToLower(strings.TrimSpace(selector))

	if sel != "" && sel != SelectorAuto {
		if spec := providers.FindByName(sel); spec != nil {
			return Resolution{Provider: spec.Name}
		}
		slog.Warn("Unrecognised provider selector, using auto routing", "selector", selector)
	}

	return r.classify(ctx, text)
}

func (r *Router) classify(ctx context.Context, text string) Resolution {
	fallback := func(reason string) Resolution {
		slog.Info("Routing to default provider", "provider", r.table.DefaultProvider, "reason", reason)
		return Resolution{
			Provider:       r.table.DefaultProvider,
			FallbackReason: reason,
		}
	}

	if strings.TrimSpace(text) == "" {
		return fallback("empty classification input")
	}
	if r.cls == nil {
		return fallback("no classifier configured")
	}

	pred, err := r.cls.Classify(ctx, text, r.table.Labels)
	if err != nil {
		return fallback("classification failed: " + err.Error())
	}

	provider := r.table.ProviderFor(pred.Label)
	slog.Info("Classified turn", "label", pred.Label, "score", pred.Score, "provider", provider)
	return Resolution{
		Provider:      provider,
		Label:         pred.Label,
		WasClassified: true,
	}
}
