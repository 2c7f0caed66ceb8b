// Package workflow implements the agent's state machine: ingest the
// user input, let the model reason, execute requested tools, loop, and
// format the final answer. Progress is reported as a typed event
// stream.
package workflow

import "github.com/junhyuklee/mcpchat/protocol"

// Node names. The sentinels appear only in graph introspection.
const (
	NodeStart            = "__start__"
	NodeProcessInput     = "process_input"
	NodeGenerateResponse = "generate_response"
	NodeCallTools        = "call_tools"
	NodeFormatOutput     = "format_output"
	NodeEnd              = "__end__"
)

// DefaultMaxToolRounds bounds the generate/call_tools loop per turn.
const DefaultMaxToolRounds = 8

// AgentState is carried through one turn of the workflow. Messages is
// append-only during the turn; the session copies it back into the
// conversation history afterwards.
type AgentState struct {
	Messages     []protocol.Message
	SystemPrompt string
	UserInput    string
	AIResponse   string
	ToolCalls    []protocol.ToolCall
}

// NewAgentState starts a turn from the running conversation history.
func NewAgentState(history []protocol.Message, systemPrompt, userInput string) *AgentState {
	messages := make([]protocol.Message, len(history))
	copy(messages, history)
	return &AgentState{
		Messages:     messages,
		SystemPrompt: systemPrompt,
		UserInput:    userInput,
	}
}
