// Package protocol defines the normalized message types exchanged
// between the session, the workflow engine and LLM providers. Provider
// specific wire shapes never leak past the llms package; everything
// above it works with these types.
package protocol

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured intent emitted by the model: call the named
// catalog tool with the given JSON argument object. ID is unique within
// a turn; tool results refer back to it.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry of the conversation history.
//
// Assistant messages may carry ToolCalls; tool messages answer exactly
// one of them via ToolCallID. Extra holds provider envelopes (for
// example an "additional kwargs" style tool_calls blob) that the
// workflow consults as a fallback when the structured field is empty.
type Message struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Extra      map[string]any `json:"-"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolResultMessage answers the tool call with the given ID.
func NewToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// HasToolCalls reports whether the message is an assistant message
// carrying at least one tool call.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
