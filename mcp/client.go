// Package mcp implements the remote tool-provider client. It connects
// to the configured MCP servers over streamable HTTP, discovers their
// tools, and routes invocations to the originating server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/tools"
)

const (
	protocolVersion = "2024-11-05"
	clientVersion   = "0.2.0"
)

var (
	ErrNoServersConnected = errors.New("no MCP servers connected")
	ErrServerDisconnected = errors.New("MCP server disconnected")
)

var tracer = otel.Tracer("mcpchat/mcp")

// ============================================================================
// PER-SERVER STATE
// ============================================================================

type remoteTool struct {
	// name is the catalog-facing name, possibly qualified as
	// "server/tool" when another server advertised the same raw name
	// first.
	name        string
	rawName     string
	description string
	schema      map[string]any
}

type serverConn struct {
	cfg       config.MCPServerConfig
	client    *client.Client
	connected bool
	lastError string
	tools     []remoteTool
}

// ServerStatus is the snapshot the info command renders.
type ServerStatus struct {
	Name      string
	URL       string
	Enabled   bool
	Connected bool
	LastError string
	ToolCount int
}

// ============================================================================
// CLIENT
// ============================================================================

// Client aggregates the configured MCP servers behind a flat tool set.
type Client struct {
	mu      sync.RWMutex
	servers []*serverConn
	byTool  map[string]*serverConn
	closed  bool
}

// NewClient validates and stores the server configurations. Ill-formed
// entries are dropped with a warning; connections are not opened until
// Initialize.
func NewClient(servers []config.MCPServerConfig) *Client {
	c := &Client{byTool: make(map[string]*serverConn)}
	for _, cfg := range servers {
		if err := cfg.Validate(); err != nil {
			slog.Warn("dropping invalid MCP server config", "name", cfg.Name, "error", err)
			continue
		}
		c.servers = append(c.servers, &serverConn{cfg: cfg})
	}
	return c
}

// Initialize connects to every enabled server in parallel and collects
// their tool descriptors. A server that fails discovery is recorded as
// disconnected but does not fail the rest; the error return is non-nil
// only when no enabled server could be reached.
func (c *Client) Initialize(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "mcp.initialize")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	var enabled []*serverConn
	for _, sc := range c.servers {
		if sc.cfg.IsEnabled() {
			enabled = append(enabled, sc)
		}
	}
	if len(enabled) == 0 {
		return ErrNoServersConnected
	}

	var wg sync.WaitGroup
	for _, sc := range enabled {
		wg.Add(1)
		go func(sc *serverConn) {
			defer wg.Done()
			c.connect(ctx, sc)
		}(sc)
	}
	wg.Wait()

	c.rebuildIndex()

	connected := 0
	for _, sc := range enabled {
		if sc.connected {
			connected++
		}
	}
	span.SetAttributes(attribute.Int("servers.connected", connected))
	if connected == 0 {
		return ErrNoServersConnected
	}
	return nil
}

// connect opens the transport, performs the initialize handshake and
// lists the server's tools. Errors land in sc.lastError.
func (c *Client) connect(ctx context.Context, sc *serverConn) {
	fail := func(err error) {
		sc.connected = false
		sc.lastError = err.Error()
		sc.tools = nil
		if sc.client != nil {
			_ = sc.client.Close()
			sc.client = nil
		}
		slog.Warn("MCP server connection failed", "server", sc.cfg.Name, "url", sc.cfg.URL, "error", err)
	}

	opts := []transport.StreamableHTTPCOption{
		transport.WithHTTPTimeout(sc.cfg.TimeoutDuration()),
	}
	if len(sc.cfg.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(sc.cfg.Headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(sc.cfg.URL, opts...)
	if err != nil {
		fail(fmt.Errorf("failed to create client: %w", err))
		return
	}
	sc.client = mcpClient

	ctx, cancel := context.WithTimeout(ctx, sc.cfg.TimeoutDuration())
	defer cancel()

	if err := mcpClient.Start(ctx); err != nil {
		fail(fmt.Errorf("failed to start transport: %w", err))
		return
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    "mcpchat",
		Version: clientVersion,
	}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		fail(fmt.Errorf("initialize handshake failed: %w", err))
		return
	}

	listResp, err := mcpClient.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		fail(fmt.Errorf("tool discovery failed: %w", err))
		return
	}

	sc.tools = sc.tools[:0]
	for _, t := range listResp.Tools {
		sc.tools = append(sc.tools, remoteTool{
			name:        t.Name,
			rawName:     t.Name,
			description: t.Description,
			schema:      convertSchema(t.InputSchema),
		})
	}
	sc.connected = true
	sc.lastError = ""
	slog.Info("connected to MCP server", "server", sc.cfg.Name, "tools", len(sc.tools))
}

// rebuildIndex flattens the per-server tool lists into the global
// name index. The first server to advertise a name keeps it; later
// collisions are qualified as "server/tool". Locals never pass through
// here, so local collisions are the catalog's concern.
func (c *Client) rebuildIndex() {
	c.byTool = make(map[string]*serverConn)
	for _, sc := range c.servers {
		if !sc.connected {
			continue
		}
		for i := range sc.tools {
			t := &sc.tools[i]
			name := t.rawName
			if _, taken := c.byTool[name]; taken {
				name = sc.cfg.Name + "/" + t.rawName
				slog.Warn("remote tool name collision, qualifying",
					"tool", t.rawName, "server", sc.cfg.Name, "qualified", name)
			}
			t.name = name
			c.byTool[name] = sc
		}
	}
}

// Tools returns descriptors for all tools on connected servers, in
// server configuration order.
func (c *Client) Tools() []tools.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []tools.Descriptor
	for _, sc := range c.servers {
		if !sc.connected {
			continue
		}
		for _, t := range sc.tools {
			out = append(out, tools.Descriptor{
				Name:        t.name,
				Description: t.description,
				ArgsSchema:  t.schema,
				Origin:      tools.Origin{Kind: tools.OriginRemote, Server: sc.cfg.Name},
				Enabled:     true,
			})
		}
	}
	return out
}

// Invoke routes a tool call to the originating server. Transport
// failures are retried once; a second failure marks the server
// disconnected. All failures come back as a failed Result.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]any) tools.Result {
	ctx, span := tracer.Start(ctx, "mcp.invoke")
	span.SetAttributes(attribute.String("tool.name", name))
	defer span.End()

	c.mu.RLock()
	sc, ok := c.byTool[name]
	c.mu.RUnlock()
	if !ok {
		return tools.Result{Success: false, Error: fmt.Sprintf("tool not found: %s", name), ToolName: name}
	}
	if !sc.connected || sc.client == nil {
		return tools.Result{
			Success:  false,
			Error:    fmt.Sprintf("tool unavailable: %v (%s)", ErrServerDisconnected, sc.cfg.Name),
			ToolName: name,
		}
	}

	rawName := name
	if idx := strings.Index(name, "/"); idx > 0 && name[:idx] == sc.cfg.Name {
		rawName = name[idx+1:]
	}

	var resp *mcpgo.CallToolResult
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, sc.cfg.TimeoutDuration())
		req := mcpgo.CallToolRequest{}
		req.Params.Name = rawName
		req.Params.Arguments = args
		resp, err = sc.client.CallTool(callCtx, req)
		cancel()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		slog.Warn("MCP tool call failed, retrying", "server", sc.cfg.Name, "tool", rawName, "error", err)
	}
	if err != nil {
		c.mu.Lock()
		sc.connected = false
		sc.lastError = err.Error()
		c.mu.Unlock()
		slog.Warn("marking MCP server disconnected", "server", sc.cfg.Name, "error", err)
		return tools.Result{
			Success:  false,
			Error:    fmt.Sprintf("tool execution failed: %v", err),
			ToolName: name,
		}
	}

	return parseCallResult(name, resp)
}

func parseCallResult(name string, resp *mcpgo.CallToolResult) tools.Result {
	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcpgo.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	joined := strings.Join(texts, "\n")

	if resp.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return tools.Result{Success: false, Error: joined, ToolName: name}
	}
	return tools.Result{Success: true, Content: joined, ToolName: name}
}

// Status reports every configured server for the info command.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ServerStatus, 0, len(c.servers))
	for _, sc := range c.servers {
		out = append(out, ServerStatus{
			Name:      sc.cfg.Name,
			URL:       sc.cfg.URL,
			Enabled:   sc.cfg.IsEnabled(),
			Connected: sc.connected,
			LastError: sc.lastError,
			ToolCount: len(sc.tools),
		})
	}
	return out
}

// Close releases all server connections. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	for _, sc := range c.servers {
		if sc.client != nil {
			if err := sc.client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			sc.client = nil
		}
		sc.connected = false
	}
	return firstErr
}

func convertSchema(schema mcpgo.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
