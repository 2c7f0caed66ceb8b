// Package export renders the workflow's shape as a Mermaid diagram or
// a JSON document, optionally with an LLM-written description.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/junhyuklee/mcpchat/llms"
	"github.com/junhyuklee/mcpchat/protocol"
	"github.com/junhyuklee/mcpchat/tools"
	"github.com/junhyuklee/mcpchat/workflow"
)

// DefaultOutputPath is where diagrams land unless told otherwise.
const DefaultOutputPath = ".mcpchat/diagram.md"

// DefaultDescription is used when no LLM is available or the
// description request fails.
const DefaultDescription = "입력 처리 → 응답 생성 → 출력 포맷팅 워크플로우"

// Format selects the export rendering.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatJSON    Format = "json"
)

// ParseFormat validates a format name from the command line.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatMermaid:
		return FormatMermaid, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (mermaid, json)", s)
	}
}

// Exporter renders one engine's graph together with its tool catalog.
// llm is optional; without it descriptions fall back to the default.
type Exporter struct {
	graph workflow.Graph
	tools []tools.Descriptor
	llm   llms.LLMProvider
}

func New(graph workflow.Graph, descriptors []tools.Descriptor, llm llms.LLMProvider) *Exporter {
	return &Exporter{graph: graph, tools: descriptors, llm: llm}
}

// ============================================================================
// DESCRIPTION
// ============================================================================

// Describe asks the LLM for a one-line summary of the workflow. Any
// failure degrades to the static default.
func (e *Exporter) Describe(ctx context.Context) string {
	if e.llm == nil {
		return DefaultDescription
	}
	shape, err := json.Marshal(e.graph)
	if err != nil {
		return DefaultDescription
	}
	prompt := fmt.Sprintf("다음 워크플로우 그래프를 한 문장으로 설명해 주세요. 설명만 출력하세요.\n%s", shape)
	text, _, _, err := e.llm.Generate(ctx, []protocol.Message{protocol.NewUserMessage(prompt)}, nil)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("diagram description generation failed, using default", "error", err)
		return DefaultDescription
	}
	return strings.TrimSpace(text)
}

// ============================================================================
// MERMAID RENDERING
// ============================================================================

// Mermaid renders the graph as a top-down flowchart. Start and end are
// stadium-shaped; tool nodes hang off call_tools with dotted edges and
// are colored by origin.
func (e *Exporter) Mermaid(description string) string {
	var b strings.Builder
	b.WriteString("# 워크플로우 다이어그램\n\n")
	if description != "" {
		b.WriteString(description + "\n\n")
	}
	b.WriteString("```mermaid\ngraph TD\n")

	classes := map[string][]string{}
	addClass := func(class, id string) {
		classes[class] = append(classes[class], id)
	}

	for _, n := range e.graph.Nodes {
		switch n.Type {
		case "start", "end":
			fmt.Fprintf(&b, "    %s([\"%s\"])\n", n.ID, n.Label)
			addClass("startEnd", n.ID)
		default:
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", n.ID, n.Label)
			addClass(nodeClass(n.Type), n.ID)
		}
	}
	for _, edge := range e.graph.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", edge.Source, edge.Target)
	}

	if hasNode(e.graph, workflow.NodeCallTools) {
		for _, d := range e.tools {
			id := toolNodeID(d.Name)
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, toolLabel(d))
			fmt.Fprintf(&b, "    %s -.-> %s\n", workflow.NodeCallTools, id)
			if d.Origin.Kind == tools.OriginRemote {
				addClass("mcpTool", id)
			} else {
				addClass("basicTool", id)
			}
		}
	}

	for _, class := range []string{"startEnd", "process", "generate", "format", "basicTool", "mcpTool"} {
		ids := classes[class]
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    class %s %s\n", strings.Join(ids, ","), class)
	}
	b.WriteString(classPalette)
	b.WriteString("```\n")
	return b.String()
}

const classPalette = `    classDef startEnd fill:#ffecb3,stroke:#ff6f00,stroke-width:2px
    classDef process fill:#bbdefb,stroke:#1565c0,stroke-width:2px
    classDef generate fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px
    classDef format fill:#e1bee7,stroke:#6a1b9a,stroke-width:2px
    classDef basicTool fill:#fff9c4,stroke:#f9a825,stroke-width:1px
    classDef mcpTool fill:#ffccbc,stroke:#d84315,stroke-width:1px
`

func nodeClass(nodeType string) string {
	switch nodeType {
	case "generate":
		return "generate"
	case "format":
		return "format"
	default:
		return "process"
	}
}

func toolLabel(d tools.Descriptor) string {
	if d.Origin.Kind == tools.OriginRemote && d.Origin.Server != "" {
		return fmt.Sprintf("%s<br/>(%s)", d.Name, d.Origin.Server)
	}
	return d.Name
}

// toolNodeID derives a Mermaid-safe node ID from a tool name.
func toolNodeID(name string) string {
	safe := strings.NewReplacer("/", "_", "-", "_", ".", "_", " ", "_").Replace(name)
	return "tool_" + safe
}

func hasNode(g workflow.Graph, id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// ============================================================================
// JSON RENDERING
// ============================================================================

// ToolInfo is a tool's entry in the JSON document.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Origin      string `json:"origin"`
	Server      string `json:"server,omitempty"`
}

// Document is the JSON export shape.
type Document struct {
	Workflow    string               `json:"workflow"`
	Description string               `json:"description"`
	Nodes       []workflow.GraphNode `json:"nodes"`
	Edges       []workflow.GraphEdge `json:"edges"`
	Tools       []ToolInfo           `json:"tools"`
}

// JSON renders the graph, tools and description as indented JSON.
func (e *Exporter) JSON(description string) ([]byte, error) {
	doc := Document{
		Workflow:    "mcpchat",
		Description: description,
		Nodes:       e.graph.Nodes,
		Edges:       e.graph.Edges,
		Tools:       []ToolInfo{},
	}
	for _, d := range e.tools {
		doc.Tools = append(doc.Tools, ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			Origin:      string(d.Origin.Kind),
			Server:      d.Origin.Server,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ============================================================================
// FILE OUTPUT
// ============================================================================

// Render produces the export in the requested format.
func (e *Exporter) Render(format Format, description string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return e.JSON(description)
	default:
		return []byte(e.Mermaid(description)), nil
	}
}

// Save writes a rendered export to path, creating parent directories.
func Save(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing diagram: %w", err)
	}
	return nil
}
