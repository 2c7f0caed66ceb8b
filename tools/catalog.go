package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ============================================================================
// TOOL CATALOG
// ============================================================================

// Catalog is the merged, read-only tool set the workflow invokes
// through. Locals come first, then remote tools in server order; on a
// name collision the local tool wins and the remote one is dropped
// with a warning.
type Catalog struct {
	registry *Registry
	remote   RemoteSource
	entries  []Descriptor
	index    map[string]Descriptor
	schemas  map[string]*jsonschema.Schema
}

// BuildCatalog merges the local registry with the remote client's
// discovered tools. remote may be nil when no MCP servers are
// configured.
func BuildCatalog(reg *Registry, remote RemoteSource) *Catalog {
	c := &Catalog{
		registry: reg,
		remote:   remote,
		index:    make(map[string]Descriptor),
		schemas:  make(map[string]*jsonschema.Schema),
	}

	for _, d := range reg.Enabled() {
		c.add(d)
	}
	if remote != nil {
		for _, d := range remote.Tools() {
			if existing, ok := c.index[d.Name]; ok {
				slog.Warn("tool name collision, keeping existing tool",
					"name", d.Name, "kept", string(existing.Origin.Kind), "dropped_server", d.Origin.Server)
				continue
			}
			c.add(d)
		}
	}
	return c
}

func (c *Catalog) add(d Descriptor) {
	c.entries = append(c.entries, d)
	c.index[d.Name] = d
	if sch, err := compileSchema(d.Name, d.ArgsSchema); err == nil {
		c.schemas[d.Name] = sch
	} else {
		slog.Warn("tool schema does not compile, skipping validation", "tool", d.Name, "error", err)
	}
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("empty schema")
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := fmt.Sprintf("mcpchat://tools/%s/schema.json", name)
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// Descriptors returns the merged tool set in catalog order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup returns the descriptor for a tool name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	d, ok := c.index[name]
	return d, ok
}

// Empty reports whether the catalog has no tools; the workflow elides
// its tool-call node in that case.
func (c *Catalog) Empty() bool { return len(c.entries) == 0 }

// Invoke runs the named tool. Failures never escape as errors: unknown
// tools, invalid arguments and execution errors all come back as a
// failed Result so the model can react to them.
func (c *Catalog) Invoke(ctx context.Context, name string, args map[string]any) Result {
	desc, ok := c.index[name]
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("tool not found: %s", name), ToolName: name}
	}

	if args == nil {
		args = map[string]any{}
	}
	if sch, ok := c.schemas[name]; ok {
		if err := sch.Validate(normalizeForValidation(args)); err != nil {
			slog.Warn("tool arguments failed validation", "tool", name, "error", err)
			return Result{Success: false, Error: fmt.Sprintf("invalid arguments for %s: %v", name, err), ToolName: name}
		}
	}

	switch desc.Origin.Kind {
	case OriginLocal:
		tool, ok := c.registry.Get(name)
		if !ok {
			return Result{Success: false, Error: fmt.Sprintf("tool not found: %s", name), ToolName: name}
		}
		content, err := tool.Execute(ctx, args)
		if err != nil {
			slog.Warn("tool execution failed", "tool", name, "error", err)
			return Result{Success: false, Error: err.Error(), ToolName: name}
		}
		return Result{Success: true, Content: content, ToolName: name}

	case OriginRemote:
		if c.remote == nil {
			return Result{Success: false, Error: fmt.Sprintf("tool not found: %s", name), ToolName: name}
		}
		return c.remote.Invoke(ctx, name, args)

	default:
		return Result{Success: false, Error: fmt.Sprintf("tool not found: %s", name), ToolName: name}
	}
}

// normalizeForValidation round-trips args through JSON so numeric
// types match what the schema validator expects.
func normalizeForValidation(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return args
	}
	return out
}
