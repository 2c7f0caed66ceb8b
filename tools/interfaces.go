// Package tools provides the local tool registry, the built-in tools
// and the catalog that merges local and remote tools into the single
// set the workflow can invoke.
package tools

import "context"

// ============================================================================
// CORE TYPES
// ============================================================================

// OriginKind distinguishes built-in tools from tools discovered on
// remote MCP servers.
type OriginKind string

const (
	OriginLocal  OriginKind = "local"
	OriginRemote OriginKind = "remote"
)

// Origin records where a tool came from. Server is set for remote
// tools only.
type Origin struct {
	Kind   OriginKind `json:"kind"`
	Server string     `json:"server,omitempty"`
}

// Descriptor is the tool metadata exposed to the workflow and to the
// LLM binding. ArgsSchema is a JSON schema object.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ArgsSchema  map[string]any `json:"args_schema"`
	Origin      Origin         `json:"origin"`
	Enabled     bool           `json:"enabled"`
}

// Result is the outcome of one tool invocation. Failures are carried
// in Error with Success false; the workflow turns them into history
// entries instead of aborting the turn.
type Result struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Error    string `json:"error,omitempty"`
	ToolName string `json:"tool_name"`
}

// Text returns the string that goes into the conversation history:
// the content on success, the error reason otherwise.
func (r Result) Text() string {
	if r.Success {
		return r.Content
	}
	return r.Error
}

// ============================================================================
// INTERFACES
// ============================================================================

// Tool is a locally implemented tool.
type Tool interface {
	GetName() string
	GetDescription() string
	// Schema returns the JSON schema for the tool's argument object.
	Schema() map[string]any
	// Execute runs the tool. Invalid arguments are reported via error;
	// the catalog converts both into a failed Result.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// RemoteSource is the part of the MCP client the catalog needs:
// a snapshot of discovered tools and an invocation path. Implemented
// by mcp.Client.
type RemoteSource interface {
	Tools() []Descriptor
	Invoke(ctx context.Context, name string, args map[string]any) Result
}
