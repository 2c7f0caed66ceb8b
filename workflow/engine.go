package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/junhyuklee/mcpchat/llms"
	"github.com/junhyuklee/mcpchat/protocol"
	"github.com/junhyuklee/mcpchat/tools"
)

// apologyMessage replaces the answer when the provider fails mid-turn.
const apologyMessage = "죄송합니다. 응답을 생성하는 중에 오류가 발생했습니다."

// toolScanWindow bounds how far back the pending-call scan looks.
const toolScanWindow = 5

// ============================================================================
// ENGINE
// ============================================================================

// Engine drives one turn through the workflow nodes. It is safe to
// reuse across turns; all per-turn data lives in AgentState.
type Engine struct {
	llm           llms.LLMProvider
	catalog       *tools.Catalog
	systemPrompt  string
	maxToolRounds int
	debug         bool
	liveStream    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxToolRounds overrides the per-turn bound on tool rounds.
func WithMaxToolRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxToolRounds = n
		}
	}
}

// WithDebug marks emitted tool events as debug-mode.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// WithLiveStreaming forwards provider deltas as they arrive when the
// tool catalog is empty. With tools in play the answer is always
// computed in full first, so tool-calling turns stream post hoc.
func WithLiveStreaming(live bool) Option {
	return func(e *Engine) { e.liveStream = live }
}

func NewEngine(llm llms.LLMProvider, catalog *tools.Catalog, systemPrompt string, opts ...Option) *Engine {
	e := &Engine{
		llm:           llm,
		catalog:       catalog,
		systemPrompt:  systemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one turn without an event stream. The formatted answer
// lands in state.AIResponse.
func (e *Engine) Run(ctx context.Context, state *AgentState) error {
	return e.runTurn(ctx, state, func(Event) {})
}

// RunStreaming executes one turn and returns its event stream. The
// channel closes after exactly one terminal event, streaming_complete
// or error. state is mutated as the turn progresses.
func (e *Engine) RunStreaming(ctx context.Context, state *AgentState) <-chan Event {
	ch := make(chan Event, 16)
	emit := func(ev Event) {
		select {
		case ch <- ev:
		default:
			// Buffer full: block, but let cancellation unstick us.
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}
	}

	go func() {
		defer close(ch)

		if e.liveStream && e.catalog.Empty() {
			if err := e.runLive(ctx, state, emit); err != nil {
				emit(Event{Kind: EventError, Err: err.Error()})
				return
			}
			emit(Event{Kind: EventStreamingComplete, FinalResponse: state.AIResponse})
			return
		}

		if err := e.runTurn(ctx, state, emit); err != nil {
			emit(Event{Kind: EventError, Err: err.Error()})
			return
		}
		for _, chunk := range SplitChunks(state.AIResponse) {
			emit(Event{Kind: EventText, Text: chunk})
		}
		emit(Event{Kind: EventStreamingComplete, FinalResponse: state.AIResponse})
	}()
	return ch
}

// ============================================================================
// TURN EXECUTION
// ============================================================================

func (e *Engine) runTurn(ctx context.Context, state *AgentState, emit func(Event)) error {
	e.processInput(state, emit)

	defs := llms.BindTools(e.catalog.Descriptors())
	rounds := 0
	toolRoundRan := false
	pendingAnnounced := false

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		emit(Event{Kind: EventWorkflowStep, Step: NodeGenerateResponse, Status: StepStarted})
		text, calls, _, err := e.llm.Generate(ctx, state.Messages, defs)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("cancelled: %w", ctx.Err())
			}
			slog.Error("response generation failed", "error", err)
			state.Messages = append(state.Messages, protocol.NewAssistantMessage(apologyMessage))
			state.AIResponse = apologyMessage
			state.ToolCalls = nil
			emit(Event{Kind: EventWorkflowStep, Step: NodeGenerateResponse, Status: StepCompleted})
			break
		}

		assistant := protocol.Message{Role: protocol.RoleAssistant, Content: text, ToolCalls: calls}
		assignCallIDs(assistant.ToolCalls)
		state.Messages = append(state.Messages, assistant)
		state.AIResponse = text
		emit(Event{Kind: EventWorkflowStep, Step: NodeGenerateResponse, Status: StepCompleted})

		pending := pendingToolCalls(state)
		state.ToolCalls = pending
		if len(pending) == 0 || e.catalog.Empty() {
			break
		}
		if rounds >= e.maxToolRounds {
			slog.Warn("tool round limit reached, stopping loop", "limit", e.maxToolRounds)
			emit(Event{Kind: EventLoopLimit, ToolCalls: pending})
			break
		}
		rounds++

		if !pendingAnnounced {
			emit(Event{Kind: EventToolsPending, ToolCalls: pending, DebugMode: e.debug})
			pendingAnnounced = true
		}

		emit(Event{Kind: EventWorkflowStep, Step: NodeCallTools, Status: StepStarted})
		for _, call := range pending {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}
			emit(Event{Kind: EventToolExecuting, ToolName: call.Name, DebugMode: e.debug})
			result := e.catalog.Invoke(ctx, call.Name, call.Args)
			state.Messages = append(state.Messages, protocol.NewToolResultMessage(call.ID, result.Text()))
		}
		emit(Event{Kind: EventWorkflowStep, Step: NodeCallTools, Status: StepCompleted})
		toolRoundRan = true
	}

	if toolRoundRan {
		emit(Event{Kind: EventAIResponseReady})
	}

	emit(Event{Kind: EventWorkflowStep, Step: NodeFormatOutput, Status: StepStarted})
	state.AIResponse = FormatOutput(state.AIResponse)
	if len(state.Messages) > 0 {
		last := &state.Messages[len(state.Messages)-1]
		if last.Role == protocol.RoleAssistant && !last.HasToolCalls() {
			last.Content = state.AIResponse
		}
	}
	emit(Event{Kind: EventWorkflowStep, Step: NodeFormatOutput, Status: StepCompleted})
	return nil
}

// runLive forwards provider deltas directly. Only reachable with an
// empty catalog, so no tool handling here.
func (e *Engine) runLive(ctx context.Context, state *AgentState, emit func(Event)) error {
	e.processInput(state, emit)

	emit(Event{Kind: EventWorkflowStep, Step: NodeGenerateResponse, Status: StepStarted})
	stream, err := e.llm.GenerateStreaming(ctx, state.Messages, nil)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("cancelled: %w", ctx.Err())
		}
		slog.Error("response generation failed", "error", err)
		return e.finishLive(state, apologyMessage, emit)
	}

	var full string
	for chunk := range stream {
		switch chunk.Type {
		case "text":
			full += chunk.Text
			emit(Event{Kind: EventText, Text: chunk.Text, Live: true})
		case "error":
			if ctx.Err() != nil {
				return fmt.Errorf("cancelled: %w", ctx.Err())
			}
			slog.Error("response generation failed", "error", chunk.Error)
			return e.finishLive(state, apologyMessage, emit)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}
	return e.finishLive(state, full, emit)
}

func (e *Engine) finishLive(state *AgentState, text string, emit func(Event)) error {
	state.Messages = append(state.Messages, protocol.NewAssistantMessage(text))
	emit(Event{Kind: EventWorkflowStep, Step: NodeGenerateResponse, Status: StepCompleted})

	emit(Event{Kind: EventWorkflowStep, Step: NodeFormatOutput, Status: StepStarted})
	state.AIResponse = FormatOutput(text)
	state.Messages[len(state.Messages)-1].Content = state.AIResponse
	emit(Event{Kind: EventWorkflowStep, Step: NodeFormatOutput, Status: StepCompleted})
	return nil
}

func (e *Engine) processInput(state *AgentState, emit func(Event)) {
	emit(Event{Kind: EventWorkflowStep, Step: NodeProcessInput, Status: StepStarted})
	if len(state.Messages) == 0 && e.systemPrompt != "" {
		state.Messages = append(state.Messages, protocol.NewSystemMessage(e.systemPrompt))
	}
	state.Messages = append(state.Messages, protocol.NewUserMessage(state.UserInput))
	emit(Event{Kind: EventWorkflowStep, Step: NodeProcessInput, Status: StepCompleted})
}

// ============================================================================
// PENDING TOOL CALLS
// ============================================================================

// pendingToolCalls finds tool calls awaiting results. The most recent
// assistant message within the scan window decides: its unanswered
// calls are pending, and a plain answer or a fully answered round ends
// the loop. Calls recovered from a provider envelope are written back
// onto the message so follow-up requests round-trip correctly.
func pendingToolCalls(state *AgentState) []protocol.ToolCall {
	messages := state.Messages
	start := len(messages) - toolScanWindow
	if start < 0 {
		start = 0
	}

	answered := make(map[string]bool)
	for _, m := range messages[start:] {
		if m.Role == protocol.RoleTool && m.ToolCallID != "" {
			answered[m.ToolCallID] = true
		}
	}

	for i := len(messages) - 1; i >= start; i-- {
		if messages[i].Role != protocol.RoleAssistant {
			continue
		}
		calls := llms.ExtractToolCalls(messages[i])
		if len(calls) == 0 {
			return nil
		}
		assignCallIDs(calls)
		messages[i].ToolCalls = calls

		var pending []protocol.ToolCall
		for _, c := range calls {
			if !answered[c.ID] {
				pending = append(pending, c)
			}
		}
		return pending
	}
	return nil
}

// assignCallIDs fills in IDs for providers that omit them, so tool
// results can be matched back to their calls.
func assignCallIDs(calls []protocol.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d_%s", i, uuid.NewString()[:8])
		}
	}
}
