package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/protocol"
)

func testProvider(host string) *OpenAIProvider {
	cfg := config.OpenAIConfig{
		APIKey: "sk-test",
		Model:  "gpt-4o-mini",
		Host:   host,
	}
	return NewOpenAIProvider(cfg)
}

func TestBuildRequest_MessageConversion(t *testing.T) {
	p := testProvider("")

	messages := []protocol.Message{
		protocol.NewSystemMessage("be helpful"),
		protocol.NewUserMessage("what time is it?"),
		{
			Role:    protocol.RoleAssistant,
			Content: "",
			ToolCalls: []protocol.ToolCall{
				{ID: "call_1", Name: "get_current_time", Args: map[string]any{"format": "time"}},
			},
		},
		protocol.NewToolResultMessage("call_1", "09:30:45"),
	}

	req := p.buildRequest(messages, false, nil)

	if len(req.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("roles = %q,%q", req.Messages[0].Role, req.Messages[1].Role)
	}

	assistant := req.Messages[2]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant tool calls = %d, want 1", len(assistant.ToolCalls))
	}
	tc := assistant.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != "function" || tc.Function.Name != "get_current_time" {
		t.Errorf("tool call = %+v", tc)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not JSON: %v", err)
	}
	if args["format"] != "time" {
		t.Errorf("args = %v", args)
	}

	toolMsg := req.Messages[3]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.Content != "09:30:45" {
		t.Errorf("tool message = %+v", toolMsg)
	}
}

func TestBuildRequest_ToolBinding(t *testing.T) {
	p := testProvider("")

	defs := []ToolDefinition{{
		Name:        "get_current_time",
		Description: "returns the time",
		Parameters:  map[string]any{"type": "object"},
	}}
	req := p.buildRequest(nil, false, defs)

	if len(req.Tools) != 1 {
		t.Fatalf("tools = %d, want 1", len(req.Tools))
	}
	if req.Tools[0].Type != "function" || req.Tools[0].Function.Name != "get_current_time" {
		t.Errorf("tool = %+v", req.Tools[0])
	}
	if req.ToolChoice != "auto" {
		t.Errorf("tool_choice = %q, want auto", req.ToolChoice)
	}

	// No tools bound: tool_choice stays empty.
	req = p.buildRequest(nil, false, nil)
	if req.ToolChoice != "" || req.Tools != nil {
		t.Errorf("unexpected tool binding: %+v", req)
	}
}

func TestBuildRequest_MaxTokensByModel(t *testing.T) {
	standard := NewOpenAIProvider(config.OpenAIConfig{Model: "gpt-4o-mini", MaxTokens: 500})
	req := standard.buildRequest(nil, false, nil)
	if req.MaxTokens == nil || *req.MaxTokens != 500 {
		t.Errorf("max_tokens = %v, want 500", req.MaxTokens)
	}
	if req.MaxCompletionTokens != nil {
		t.Error("max_completion_tokens should be unset for gpt-4o-mini")
	}

	reasoning := NewOpenAIProvider(config.OpenAIConfig{Model: "o3-mini", MaxTokens: 500})
	req = reasoning.buildRequest(nil, false, nil)
	if req.MaxCompletionTokens == nil || *req.MaxCompletionTokens != 500 {
		t.Errorf("max_completion_tokens = %v, want 500", req.MaxCompletionTokens)
	}
	if req.MaxTokens != nil {
		t.Error("max_tokens should be unset for o3-mini")
	}
	if req.Temperature != 1.0 {
		t.Errorf("temperature = %v, want 1.0 for reasoning model", req.Temperature)
	}
}

func TestIsReasoningModel(t *testing.T) {
	for model, want := range map[string]bool{
		"o1":          true,
		"o3-mini":     true,
		"gpt-5":       true,
		"gpt-5-mini":  true,
		"gpt-4o-mini": false,
		"gpt-4o":      false,
	} {
		if got := isReasoningModel(model); got != want {
			t.Errorf("isReasoningModel(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": "Hello there.",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      "get_current_time",
							"arguments": `{"format":"date"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]any{"total_tokens": 42},
		})
	}))
	defer server.Close()

	p := testProvider(server.URL)

	text, calls, tokens, err := p.Generate(context.Background(), []protocol.Message{
		protocol.NewUserMessage("hi"),
	}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Hello there." {
		t.Errorf("text = %q", text)
	}
	if tokens != 42 {
		t.Errorf("tokens = %d, want 42", tokens)
	}
	if len(calls) != 1 || calls[0].Name != "get_current_time" || calls[0].Args["format"] != "date" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)

	_, _, _, err := p.Generate(context.Background(), []protocol.Message{
		protocol.NewUserMessage("hi"),
	}, nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestGenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"content":"Hello"}}]}`,
			`{"choices":[{"delta":{"content":" world"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := testProvider(server.URL)

	ch, err := p.GenerateStreaming(context.Background(), []protocol.Message{
		protocol.NewUserMessage("hi"),
	}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var text string
	var doneTokens int
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			text += chunk.Text
		case "done":
			doneTokens = chunk.Tokens
		case "error":
			t.Fatalf("stream error: %v", chunk.Error)
		}
	}
	if text != "Hello world" {
		t.Errorf("streamed text = %q", text)
	}
	if doneTokens != 7 {
		t.Errorf("tokens = %d, want 7", doneTokens)
	}
}

func TestGenerateStreaming_ToolCallAccumulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"echo","arguments":"{\"m"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"sg\":\"hi\"}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := testProvider(server.URL)

	ch, err := p.GenerateStreaming(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var calls []protocol.ToolCall
	for chunk := range ch {
		if chunk.Type == "tool_call" {
			calls = append(calls, *chunk.ToolCall)
		}
		if chunk.Type == "error" {
			t.Fatalf("stream error: %v", chunk.Error)
		}
	}
	if len(calls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "echo" || calls[0].Args["msg"] != "hi" {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestExtractToolCalls(t *testing.T) {
	t.Run("structured field wins", func(t *testing.T) {
		msg := protocol.Message{
			Role:      protocol.RoleAssistant,
			ToolCalls: []protocol.ToolCall{{ID: "a", Name: "x"}},
			Extra: map[string]any{
				"tool_calls": []any{map[string]any{"id": "b", "name": "y"}},
			},
		}
		calls := ExtractToolCalls(msg)
		if len(calls) != 1 || calls[0].ID != "a" {
			t.Errorf("calls = %+v", calls)
		}
	})

	t.Run("envelope fallback", func(t *testing.T) {
		msg := protocol.Message{
			Role: protocol.RoleAssistant,
			Extra: map[string]any{
				"tool_calls": []any{map[string]any{
					"id": "call_9",
					"function": map[string]any{
						"name":      "echo",
						"arguments": `{"msg":"hi"}`,
					},
				}},
			},
		}
		calls := ExtractToolCalls(msg)
		if len(calls) != 1 {
			t.Fatalf("calls = %+v", calls)
		}
		if calls[0].Name != "echo" || calls[0].Args["msg"] != "hi" {
			t.Errorf("call = %+v", calls[0])
		}
	})

	t.Run("non-assistant messages", func(t *testing.T) {
		msg := protocol.NewUserMessage("hi")
		if calls := ExtractToolCalls(msg); calls != nil {
			t.Errorf("calls = %+v, want nil", calls)
		}
	})
}

func TestBindTools(t *testing.T) {
	defs := BindTools(nil)
	if len(defs) != 0 {
		t.Errorf("BindTools(nil) = %v", defs)
	}
}
