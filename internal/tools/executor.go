package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/shared/llmutils"
)

// Executor resolves and runs tool calls. Every failure mode, including a
// missing tool, a tool returning an error, or a tool panicking, is captured
// into the result string: a failed call must still yield a tool result the
// conversation can continue with.
type Executor struct {
	registry *Registry
}

// NewExecutor wraps a registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs one tool call and returns its result string.
func (e *Executor) Execute(ctx context.Context, use schema.ToolUse) (result string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "name", use.Name, "panic", r)
			result = fmt.Sprintf("Error executing tool %q: internal failure: %v", use.Name, r)
		}
	}()

	tool := e.registry.Get(use.Name)
	if tool == nil {
		return fmt.Sprintf("Error: tool %q not found. Available tools: %v", use.Name, e.registry.Names())
	}

	argsJSON, _ := json.Marshal(use.Arguments)
	slog.Info("Tool call", "name", use.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	out, err := tool.Execute(ctx, use.Arguments)
	if err != nil {
		slog.Warn("Tool failed", "name", use.Name, "err", err)
		return fmt.Sprintf("Error executing tool %q: %v", use.Name, err)
	}
	return out
}
