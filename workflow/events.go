package workflow

import (
	"regexp"
	"strings"

	"github.com/junhyuklee/mcpchat/protocol"
)

// ============================================================================
// EVENT STREAM
// ============================================================================

// EventKind enumerates the closed set of event types. Front-ends must
// ignore kinds they do not recognize.
type EventKind string

const (
	EventWorkflowStep      EventKind = "workflow_step"
	EventToolsPending      EventKind = "tools_pending"
	EventToolExecuting     EventKind = "tool_executing"
	EventAIResponseReady   EventKind = "ai_response_ready"
	EventText              EventKind = "text"
	EventStreamingComplete EventKind = "streaming_complete"
	EventError             EventKind = "error"
	EventLoopLimit         EventKind = "loop_limit_exceeded"
)

const (
	StepStarted   = "started"
	StepCompleted = "completed"
)

// Event is one element of a turn's event stream. Exactly one terminal
// event (streaming_complete or error) ends every stream.
type Event struct {
	Kind EventKind

	// workflow_step
	Step   string
	Status string

	// tools_pending / tool_executing
	ToolCalls []protocol.ToolCall
	ToolName  string
	DebugMode bool

	// text
	Text string
	// Live marks text that came straight from the provider stream
	// rather than from post-hoc chunking of the finished answer.
	Live bool

	// streaming_complete
	FinalResponse string

	// error
	Err string
}

// ============================================================================
// TEXT CHUNKING
// ============================================================================

// chunkToken matches one streamable token: Markdown bold, italic and
// code runs stay intact, everything else splits on whitespace.
var chunkToken = regexp.MustCompile(`\*\*[^*\n]+\*\*|\*[^*\n]+\*|` + "`[^`\n]+`" + `|\S+`)

// SplitChunks converts a formatted answer into the chunk sequence of
// text events: line by line, the first token of each line verbatim and
// later tokens prefixed with a space, with a "\n" chunk between lines.
func SplitChunks(s string) []string {
	if s == "" {
		return nil
	}

	var chunks []string
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			chunks = append(chunks, "\n")
		}
		for j, token := range chunkToken.FindAllString(line, -1) {
			if j == 0 {
				chunks = append(chunks, token)
			} else {
				chunks = append(chunks, " "+token)
			}
		}
	}
	return chunks
}
