package llms

import (
	"encoding/json"

	"github.com/junhyuklee/mcpchat/protocol"
)

// ExtractToolCalls pulls tool-call intents out of an assistant message.
// The structured field wins; otherwise a provider "tool_calls" envelope
// left in Extra is decoded. Messages from other roles never carry tool
// calls.
func ExtractToolCalls(msg protocol.Message) []protocol.ToolCall {
	if msg.Role != protocol.RoleAssistant {
		return nil
	}
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls
	}
	if msg.Extra == nil {
		return nil
	}
	raw, ok := msg.Extra["tool_calls"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	var calls []protocol.ToolCall
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		call := protocol.ToolCall{}
		if id, ok := m["id"].(string); ok {
			call.ID = id
		}
		if name, ok := m["name"].(string); ok {
			call.Name = name
		}
		if args, ok := m["args"].(map[string]any); ok {
			call.Args = args
		}
		// OpenAI-shaped envelope: {"function": {"name", "arguments"}}
		if fn, ok := m["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok {
				call.Name = name
			}
			if argsStr, ok := fn["arguments"].(string); ok && argsStr != "" {
				var args map[string]any
				if err := json.Unmarshal([]byte(argsStr), &args); err == nil {
					call.Args = args
				}
			}
		}
		if call.Name == "" {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}
