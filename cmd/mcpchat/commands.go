package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	mcpchat "github.com/junhyuklee/mcpchat"
	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/export"
	"github.com/junhyuklee/mcpchat/session"
	"github.com/junhyuklee/mcpchat/tools"
)

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()
	return ctx, cancel
}

// ============================================================================
// CHAT
// ============================================================================

// ChatCmd runs a conversation: interactive by default, one-shot when a
// question is given on the command line.
type ChatCmd struct {
	Question []string `arg:"" optional:"" help:"Question to ask. Implies a one-shot session."`

	Once     bool   `help:"Answer a single question and exit."`
	NoStream bool   `name:"no-stream" help:"Disable streaming output."`
	Save     string `help:"Write a Markdown transcript to this path when the session ends." placeholder:"PATH"`
	Debug    bool   `help:"Show tool call arguments while the assistant works."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := buildApp(ctx, cli, true, c.Debug)
	if err != nil {
		return err
	}
	defer a.Close()

	s := session.New(a.cfg, a.engine, session.Options{
		Streaming: a.cfg.OpenAI.IsStreaming() && !c.NoStream,
		SavePath:  c.Save,
		EchoInput: !stdinIsTerminal(),
		Debug:     c.Debug,
	})

	question := strings.TrimSpace(strings.Join(c.Question, " "))
	if question != "" || c.Once {
		if question == "" {
			return errors.New("--once requires a question argument")
		}
		return s.RunOnce(ctx, question)
	}
	return s.RunInteractive(ctx)
}

// ============================================================================
// INFO
// ============================================================================

// InfoCmd prints the effective configuration, the tool catalog and the
// connection status of every configured MCP server. The global --output
// flag selects the format.
type InfoCmd struct{}

type infoTool struct {
	Name        string `json:"name" yaml:"name"`
	Origin      string `json:"origin" yaml:"origin"`
	Server      string `json:"server,omitempty" yaml:"server,omitempty"`
	Description string `json:"description" yaml:"description"`
}

type infoServer struct {
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url" yaml:"url"`
	Status    string `json:"status" yaml:"status"`
	ToolCount int    `json:"tool_count" yaml:"tool_count"`
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

type infoDocument struct {
	Version   string       `json:"version" yaml:"version"`
	Chatbot   string       `json:"chatbot" yaml:"chatbot"`
	Model     string       `json:"model" yaml:"model"`
	Streaming bool         `json:"streaming" yaml:"streaming"`
	Tools     []infoTool   `json:"tools" yaml:"tools"`
	Servers   []infoServer `json:"servers" yaml:"servers"`
}

func (c *InfoCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := buildApp(ctx, cli, true, false)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := infoDocument{
		Version:   mcpchat.Version,
		Chatbot:   a.cfg.Chatbot.Name,
		Model:     a.cfg.OpenAI.Model,
		Streaming: a.cfg.OpenAI.IsStreaming(),
	}
	for _, d := range a.catalog.Descriptors() {
		doc.Tools = append(doc.Tools, infoTool{
			Name:        d.Name,
			Origin:      string(d.Origin.Kind),
			Server:      d.Origin.Server,
			Description: d.Description,
		})
	}
	for _, st := range a.mcp.Status() {
		status := "연결됨"
		switch {
		case !st.Enabled:
			status = "비활성화"
		case !st.Connected:
			status = "연결 실패"
		}
		doc.Servers = append(doc.Servers, infoServer{
			Name:      st.Name,
			URL:       st.URL,
			Status:    status,
			ToolCount: st.ToolCount,
			LastError: st.LastError,
		})
	}

	switch cli.Output {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		printInfoText(doc)
	}
	return nil
}

func printInfoText(doc infoDocument) {
	fmt.Printf("\n챗봇: %s (mcpchat %s)\n", doc.Chatbot, doc.Version)
	fmt.Printf("모델: %s\n", doc.Model)
	fmt.Printf("스트리밍: %v\n", doc.Streaming)

	fmt.Println("\n도구:")
	for _, t := range doc.Tools {
		origin := "내장"
		if t.Origin == string(tools.OriginRemote) {
			origin = t.Server
		}
		fmt.Printf("  - %-28s [%s] %s\n", t.Name, origin, t.Description)
	}

	if len(doc.Servers) == 0 {
		fmt.Println("\nMCP 서버: (설정 없음)")
		return
	}
	fmt.Println("\nMCP 서버:")
	for _, s := range doc.Servers {
		fmt.Printf("  - %-16s %-10s %s", s.Name, s.Status, s.URL)
		if s.Status == "연결됨" {
			fmt.Printf(" (도구 %d개)", s.ToolCount)
		}
		if s.LastError != "" {
			fmt.Printf(" - %s", s.LastError)
		}
		fmt.Println()
	}
}

// ============================================================================
// SETUP
// ============================================================================

// SetupCmd copies the sample config into place.
type SetupCmd struct {
	Force bool `help:"Overwrite an existing config file."`
}

func (c *SetupCmd) Run(cli *CLI) error {
	dst := cli.Config
	if dst == "" {
		dst = config.DefaultConfigPath
	}

	if c.Force {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := config.CopySample(config.SampleConfigPath, dst); err != nil {
		return err
	}

	fmt.Printf("✅ 설정 파일을 만들었습니다: %s\n", dst)
	fmt.Println("이제 openai.api_key 를 채운 뒤 'mcpchat chat' 을 실행하세요.")
	return nil
}

// ============================================================================
// AGENT
// ============================================================================

// AgentCmd groups workflow inspection commands.
type AgentCmd struct {
	Export ExportCmd `cmd:"" help:"Export the workflow graph as a diagram."`
}

// ExportCmd writes the workflow graph to a file.
type ExportCmd struct {
	Format        string `help:"Diagram format (mermaid, json)." default:"mermaid"`
	Out           string `help:"Output file path." default:".mcpchat/diagram.md"`
	AIDescription bool   `name:"ai-description" help:"Ask the model to describe the workflow."`
}

func (c *ExportCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cli, true, false)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter := export.New(a.engine.Graph(), a.catalog.Descriptors(), a.llm)

	description := export.DefaultDescription
	if c.AIDescription {
		description = exporter.Describe(ctx)
	}

	content, err := exporter.Render(format, description)
	if err != nil {
		return err
	}

	output := c.Out
	if output == export.DefaultOutputPath && format == export.FormatJSON {
		output = strings.TrimSuffix(output, ".md") + ".json"
	}
	if err := export.Save(output, content); err != nil {
		return err
	}
	fmt.Printf("📊 워크플로우 다이어그램을 저장했습니다: %s\n", output)
	return nil
}

// ============================================================================
// VERSION
// ============================================================================

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(mcpchat.GetVersion().String())
	return nil
}
