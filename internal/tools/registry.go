// Package tools implements the built-in tool set and the executor the
// orchestrator dispatches tool calls through.
package tools

import (
	"github.com/switchboard-ai/switchboard/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolFileCreator ToolName = "file_creator"
	ToolReadFile    ToolName = "read_file"
	ToolListDir     ToolName = "list_dir"
	ToolWebFetch    ToolName = "web_fetch"
)

// Registry holds a set of named tools and exposes them for execution.
type Registry struct {
	tools map[string]schema.Tool
	order []string
}

// Get returns the tool with the given name, or nil.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns the wire-facing description of every tool, in
// registration order, for inclusion in provider requests.
func (r *Registry) Descriptors() []schema.ToolDescriptor {
	out := make([]schema.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, schema.DescribeTool(r.tools[name]))
	}
	return out
}

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	tools map[string]schema.Tool
	order []string
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]schema.Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool schema.Tool) *RegistryBuilder {
	if _, seen := b.tools[tool.Name()]; !seen {
		b.order = append(b.order, tool.Name())
	}
	b.tools[tool.Name()] = tool
	return b
}

// Build produces an immutable Registry from the accumulated tools.
func (b *RegistryBuilder) Build() *Registry {
	tools := make(map[string]schema.Tool, len(b.tools))
	for k, v := range b.tools {
		tools[k] = v
	}
	order := make([]string, len(b.order))
	copy(order, b.order)
	return &Registry{tools: tools, order: order}
}

// DefaultRegistry assembles the built-in tool set rooted at workspace.
func DefaultRegistry(workspace string) *Registry {
	return NewRegistryBuilder().
		WithTool(NewFileCreatorTool(workspace)).
		WithTool(NewReadFileTool(workspace)).
		WithTool(NewListDirTool(workspace)).
		WithTool(NewWebFetchTool(0)).
		Build()
}
