package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface every LLM-callable tool must satisfy.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's input.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// ToolDescriptor is the backend-agnostic advertisement of one tool.
// Adapters convert it to the backend's native tool/function shape.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// DescribeTool builds a ToolDescriptor from a Tool, falling back to an
// empty object schema when the tool's Parameters are not valid JSON.
func DescribeTool(t Tool) ToolDescriptor {
	var params map[string]any
	if err := json.Unmarshal(t.Parameters(), &params); err != nil || params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: params,
	}
}
