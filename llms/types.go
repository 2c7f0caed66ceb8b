// Package llms defines the LLM capability the workflow drives and the
// OpenAI provider implementing it. Provider wire shapes stay inside
// this package; callers only see protocol types.
package llms

import (
	"context"

	"github.com/junhyuklee/mcpchat/protocol"
	"github.com/junhyuklee/mcpchat/tools"
)

// ToolDefinition is the provider-facing declaration of one catalog
// tool. Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// BindTools converts catalog descriptors into provider tool
// declarations.
func BindTools(descriptors []tools.Descriptor) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		params := d.ArgsSchema
		if len(params) == 0 {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs = append(defs, ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return defs
}

// StreamChunk is one element of a streaming response.
type StreamChunk struct {
	Type     string // "text", "tool_call", "done", "error"
	Text     string
	ToolCall *protocol.ToolCall
	Tokens   int
	Error    error
}

// LLMProvider is the abstract capability the workflow invokes.
type LLMProvider interface {
	// Generate runs one completion. The returned tool calls are already
	// normalized; tokens is the total usage reported by the provider.
	Generate(ctx context.Context, messages []protocol.Message, tools []ToolDefinition) (string, []protocol.ToolCall, int, error)

	// GenerateStreaming yields chunks as the provider produces them.
	// The channel is closed after the final "done" or "error" chunk.
	GenerateStreaming(ctx context.Context, messages []protocol.Message, tools []ToolDefinition) (<-chan StreamChunk, error)

	GetModelName() string
	Close() error
}
