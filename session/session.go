// Package session runs conversations against the workflow engine: the
// interactive loop, one-shot questions, console rendering of the event
// stream and transcript recording.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/protocol"
	"github.com/junhyuklee/mcpchat/workflow"
)

// exitCommand ends the interactive loop.
const exitCommand = "/bye"

const farewellMessage = "대화를 종료합니다. 안녕히 가세요! 👋"

// Engine runs one conversational turn. Implemented by
// *workflow.Engine.
type Engine interface {
	Run(ctx context.Context, state *workflow.AgentState) error
	RunStreaming(ctx context.Context, state *workflow.AgentState) <-chan workflow.Event
}

// Options configures a Session. Zero values fall back to stdin/stdout,
// non-streaming output and no transcript.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	Streaming bool
	// SavePath writes a Markdown transcript there when the session
	// ends. Empty disables recording.
	SavePath string
	// EchoInput prints what was read after the prompt, for piped input
	// where the terminal shows nothing.
	EchoInput bool
	Debug     bool
}

// Session owns one conversation: the running history, the console
// rendering of events and the optional transcript.
type Session struct {
	cfg        *config.Config
	engine     Engine
	in         io.Reader
	out        io.Writer
	history    []protocol.Message
	transcript *Transcript
	opts       Options
}

func New(cfg *config.Config, engine Engine, opts Options) *Session {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Session{
		cfg:        cfg,
		engine:     engine,
		in:         opts.Input,
		out:        opts.Output,
		transcript: NewTranscript(),
		opts:       opts,
	}
}

// History returns the conversation so far.
func (s *Session) History() []protocol.Message {
	out := make([]protocol.Message, len(s.history))
	copy(out, s.history)
	return out
}

// ============================================================================
// ENTRY POINTS
// ============================================================================

// RunOnce answers a single question and ends the session.
func (s *Session) RunOnce(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("question is empty")
	}
	if err := s.turn(ctx, question); err != nil {
		return err
	}
	return s.saveTranscript()
}

// inputLine is one line read from the session input, or the read error
// that ended it.
type inputLine struct {
	text string
	err  error
}

// readLines pumps lines from r into the returned channel and closes it
// at end of input. The reader goroutine blocks on the underlying Read,
// so after cancellation it lives until the input source closes.
func readLines(r io.Reader) <-chan inputLine {
	ch := make(chan inputLine)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- inputLine{text: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			ch <- inputLine{err: err}
		}
	}()
	return ch
}

// RunInteractive reads questions until /bye or end of input. A failed
// turn is reported and the loop continues; cancellation ends the
// session early but still writes the transcript of completed turns.
func (s *Session) RunInteractive(ctx context.Context) error {
	fmt.Fprintf(s.out, "%s\n", s.cfg.Chatbot.WelcomeMessage)
	fmt.Fprintf(s.out, "대화를 끝내려면 %s 를 입력하세요.\n", exitCommand)

	lines := readLines(s.in)
	var readErr error
loop:
	for {
		if !s.opts.EchoInput {
			// The prompt belongs to a terminal; piped input is
			// echoed instead.
			fmt.Fprintf(s.out, "\n👤 You: ")
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			break loop
		case line, ok := <-lines:
			if !ok {
				// End of input: leave quietly.
				fmt.Fprintln(s.out)
				break loop
			}
			if line.err != nil {
				readErr = line.err
				break loop
			}
			input := strings.TrimSpace(line.text)
			if s.opts.EchoInput {
				fmt.Fprintln(s.out, input)
			}
			if input == "" {
				continue
			}
			if input == exitCommand {
				fmt.Fprintf(s.out, "\n%s\n", farewellMessage)
				break loop
			}

			if err := s.turn(ctx, input); err != nil {
				if ctx.Err() != nil {
					break loop
				}
				fmt.Fprintf(s.out, "\n⚠️  오류가 발생했습니다: %v\n", err)
			}
		}
	}
	if readErr != nil {
		return fmt.Errorf("reading input: %w", readErr)
	}
	return s.saveTranscript()
}

// ============================================================================
// TURN RENDERING
// ============================================================================

func (s *Session) turn(ctx context.Context, input string) error {
	state := workflow.NewAgentState(s.history, s.cfg.Chatbot.SystemPrompt, input)

	var err error
	if s.opts.Streaming {
		err = s.streamTurn(ctx, state)
	} else {
		err = s.blockTurn(ctx, state)
	}
	if err != nil {
		return err
	}

	s.history = state.Messages
	s.transcript.AddUser(input)
	s.transcript.AddAssistant(state.AIResponse)
	return nil
}

func (s *Session) streamTurn(ctx context.Context, state *workflow.AgentState) error {
	fmt.Fprintf(s.out, "\n🤖 %s: ", s.cfg.Chatbot.Name)

	for ev := range s.engine.RunStreaming(ctx, state) {
		switch ev.Kind {
		case workflow.EventToolsPending:
			fmt.Fprintf(s.out, "\n🔧 도구 호출: %s\n", joinCallNames(ev.ToolCalls))
			if ev.DebugMode {
				for _, call := range ev.ToolCalls {
					fmt.Fprintf(s.out, "   - %s %v\n", call.Name, call.Args)
				}
			}
		case workflow.EventToolExecuting:
			fmt.Fprintf(s.out, "   ⏳ %s 실행 중...\n", ev.ToolName)
		case workflow.EventText:
			fmt.Fprint(s.out, ev.Text)
		case workflow.EventStreamingComplete:
			fmt.Fprintln(s.out)
		case workflow.EventError:
			fmt.Fprintln(s.out)
			return errors.New(ev.Err)
		case workflow.EventWorkflowStep:
			slog.Debug("workflow step", "step", ev.Step, "status", ev.Status)
		}
	}
	return nil
}

func (s *Session) blockTurn(ctx context.Context, state *workflow.AgentState) error {
	before := len(state.Messages)
	if err := s.engine.Run(ctx, state); err != nil {
		return err
	}

	if used := toolsUsed(state.Messages[before:]); len(used) > 0 {
		fmt.Fprintf(s.out, "\n🔧 사용된 도구: %s\n", strings.Join(used, ", "))
		if s.opts.Debug {
			for _, m := range state.Messages[before:] {
				if m.Role == protocol.RoleTool {
					fmt.Fprintf(s.out, "   - [%s] %s\n", m.ToolCallID, m.Content)
				}
			}
		}
	}
	fmt.Fprintf(s.out, "\n🤖 %s: %s\n", s.cfg.Chatbot.Name, state.AIResponse)
	return nil
}

// toolsUsed lists the tools the turn actually ran, in call order
// without duplicates.
func toolsUsed(messages []protocol.Message) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range messages {
		if m.Role != protocol.RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls {
			if !seen[call.Name] {
				seen[call.Name] = true
				names = append(names, call.Name)
			}
		}
	}
	return names
}

func joinCallNames(calls []protocol.ToolCall) string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func (s *Session) saveTranscript() error {
	if s.opts.SavePath == "" || s.transcript.Empty() {
		return nil
	}
	path, err := s.transcript.Save(s.opts.SavePath)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "\n💾 대화 내용이 저장되었습니다: %s\n", path)
	return nil
}
