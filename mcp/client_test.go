package mcp

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/tools"
)

func serverCfg(name, url string) config.MCPServerConfig {
	cfg := config.MCPServerConfig{Name: name, URL: url}
	cfg.SetDefaults()
	return cfg
}

// newTestServer runs an in-process MCP server over streamable HTTP.
func newTestServer(t *testing.T, toolNames ...string) *httptest.Server {
	t.Helper()

	mcpServer := server.NewMCPServer("test-server", "1.0.0")
	for _, name := range toolNames {
		name := name
		mcpServer.AddTool(
			mcpgo.NewTool(name,
				mcpgo.WithDescription("test tool "+name),
				mcpgo.WithString("msg", mcpgo.Description("message to echo")),
			),
			func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
				args := req.GetArguments()
				if args["msg"] == "fail" {
					return mcpgo.NewToolResultError("simulated failure"), nil
				}
				return mcpgo.NewToolResultText(fmt.Sprintf("%s says %v", name, args["msg"])), nil
			},
		)
	}

	ts := httptest.NewServer(server.NewStreamableHTTPServer(mcpServer))
	t.Cleanup(ts.Close)
	return ts
}

func TestNewClient_DropsInvalidConfigs(t *testing.T) {
	client := NewClient([]config.MCPServerConfig{
		serverCfg("good", "http://localhost:1/mcp"),
		{Name: "", URL: "http://localhost:2/mcp"},
		{Name: "bad-url", URL: "ftp://x"},
	})

	if len(client.servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(client.servers))
	}
	if client.servers[0].cfg.Name != "good" {
		t.Errorf("kept server = %q, want good", client.servers[0].cfg.Name)
	}
}

func TestClient_Initialize_NoEnabledServers(t *testing.T) {
	client := NewClient(nil)

	if err := client.Initialize(context.Background()); err == nil {
		t.Error("expected error with no servers")
	}
}

func TestClient_InitializeAndInvoke(t *testing.T) {
	ts := newTestServer(t, "echo")
	client := NewClient([]config.MCPServerConfig{serverCfg("test", ts.URL+"/mcp")})
	defer client.Close()

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	descriptors := client.Tools()
	if len(descriptors) != 1 {
		t.Fatalf("Tools() len = %d, want 1", len(descriptors))
	}
	d := descriptors[0]
	if d.Name != "echo" {
		t.Errorf("tool name = %q, want echo", d.Name)
	}
	if d.Origin.Kind != tools.OriginRemote || d.Origin.Server != "test" {
		t.Errorf("origin = %+v, want remote/test", d.Origin)
	}
	if d.ArgsSchema["type"] != "object" {
		t.Errorf("schema = %v, want object schema", d.ArgsSchema)
	}

	result := client.Invoke(context.Background(), "echo", map[string]any{"msg": "hi"})
	if !result.Success {
		t.Fatalf("Invoke() failed: %s", result.Error)
	}
	if result.Content != "echo says hi" {
		t.Errorf("Content = %q", result.Content)
	}

	// Tool-reported errors surface as failed results, not transport errors.
	result = client.Invoke(context.Background(), "echo", map[string]any{"msg": "fail"})
	if result.Success {
		t.Fatal("expected tool error result")
	}
	if result.Error != "simulated failure" {
		t.Errorf("Error = %q", result.Error)
	}

	status := client.Status()
	if len(status) != 1 || !status[0].Connected || status[0].ToolCount != 1 {
		t.Errorf("Status() = %+v", status)
	}
}

func TestClient_Initialize_FailedServerDoesNotBlockOthers(t *testing.T) {
	ts := newTestServer(t, "echo")
	client := NewClient([]config.MCPServerConfig{
		serverCfg("down", "http://127.0.0.1:1/mcp"),
		serverCfg("up", ts.URL+"/mcp"),
	})
	defer client.Close()

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v, want nil when one server connects", err)
	}

	status := client.Status()
	if len(status) != 2 {
		t.Fatalf("Status() len = %d, want 2", len(status))
	}
	var down, up ServerStatus
	for _, s := range status {
		switch s.Name {
		case "down":
			down = s
		case "up":
			up = s
		}
	}
	if down.Connected || down.LastError == "" {
		t.Errorf("down server status = %+v, want disconnected with error", down)
	}
	if !up.Connected {
		t.Errorf("up server status = %+v, want connected", up)
	}

	// Tools from the failed server are absent.
	if got := len(client.Tools()); got != 1 {
		t.Errorf("Tools() len = %d, want 1", got)
	}
}

func TestClient_Initialize_AllServersDown(t *testing.T) {
	client := NewClient([]config.MCPServerConfig{
		serverCfg("down", "http://127.0.0.1:1/mcp"),
	})
	defer client.Close()

	if err := client.Initialize(context.Background()); err == nil {
		t.Error("expected error when every server fails")
	}
}

func TestRebuildIndex_QualifiesCollisions(t *testing.T) {
	client := &Client{
		servers: []*serverConn{
			{
				cfg:       serverCfg("alpha", "http://localhost:1/mcp"),
				connected: true,
				tools:     []remoteTool{{name: "search", rawName: "search"}},
			},
			{
				cfg:       serverCfg("beta", "http://localhost:2/mcp"),
				connected: true,
				tools:     []remoteTool{{name: "search", rawName: "search"}},
			},
		},
	}
	client.rebuildIndex()

	descriptors := client.Tools()
	if len(descriptors) != 2 {
		t.Fatalf("Tools() len = %d, want 2", len(descriptors))
	}
	if descriptors[0].Name != "search" {
		t.Errorf("first tool = %q, want unqualified search", descriptors[0].Name)
	}
	if descriptors[1].Name != "beta/search" {
		t.Errorf("second tool = %q, want beta/search", descriptors[1].Name)
	}
}

func TestClient_Invoke_Disconnected(t *testing.T) {
	sc := &serverConn{
		cfg:   serverCfg("gone", "http://localhost:1/mcp"),
		tools: []remoteTool{{name: "x", rawName: "x"}},
	}
	client := &Client{
		servers: []*serverConn{sc},
		byTool:  map[string]*serverConn{"x": sc},
	}

	result := client.Invoke(context.Background(), "x", nil)
	if result.Success {
		t.Fatal("expected failure for disconnected server")
	}
	if !strings.Contains(result.Error, "unavailable") {
		t.Errorf("Error = %q, want unavailable text", result.Error)
	}
}

func TestClient_Invoke_UnknownTool(t *testing.T) {
	client := NewClient(nil)

	result := client.Invoke(context.Background(), "ghost", nil)
	if result.Success || !strings.Contains(result.Error, "tool not found") {
		t.Errorf("result = %+v, want tool-not-found failure", result)
	}
}

func TestClient_Close_Idempotent(t *testing.T) {
	client := NewClient([]config.MCPServerConfig{serverCfg("a", "http://localhost:1/mcp")})

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
