package tools

import (
	"fmt"

	"github.com/junhyuklee/mcpchat/registry"
)

// ============================================================================
// LOCAL TOOL REGISTRY
// ============================================================================

// RegistryError provides structured context for registry failures.
type RegistryError struct {
	Action  string
	Tool    string
	Message string
	Err     error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tools: %s %q: %s: %v", e.Action, e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("tools: %s %q: %s", e.Action, e.Tool, e.Message)
}

func (e *RegistryError) Unwrap() error { return e.Err }

type entry struct {
	tool    Tool
	enabled bool
}

// Registry holds the locally registered tools with their enabled
// status. Mutation happens during startup only; afterwards callers
// rely on snapshot semantics of Enabled and List.
type Registry struct {
	base *registry.Base[*entry]
}

func NewRegistry() *Registry {
	return &Registry{base: registry.NewBase[*entry]()}
}

// Register adds a tool, enabled by default. Duplicate names are
// rejected.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return &RegistryError{Action: "register", Message: "tool is nil"}
	}
	if err := r.base.Register(tool.GetName(), &entry{tool: tool, enabled: true}); err != nil {
		return &RegistryError{Action: "register", Tool: tool.GetName(), Message: "registration failed", Err: err}
	}
	return nil
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	e, ok := r.base.Get(name)
	if !ok {
		return &RegistryError{Action: "update", Tool: name, Message: "tool not found"}
	}
	e.enabled = enabled
	return nil
}

func (r *Registry) Enable(name string) error  { return r.setEnabled(name, true) }
func (r *Registry) Disable(name string) error { return r.setEnabled(name, false) }

// Get returns an enabled tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	e, ok := r.base.Get(name)
	if !ok || !e.enabled {
		return nil, false
	}
	return e.tool, true
}

// Enabled returns descriptors for the enabled tools, in registration
// order.
func (r *Registry) Enabled() []Descriptor {
	var out []Descriptor
	for _, e := range r.base.List() {
		if e.enabled {
			out = append(out, describe(e.tool, true))
		}
	}
	return out
}

// List returns descriptors for all tools including disabled ones.
func (r *Registry) List() []Descriptor {
	var out []Descriptor
	for _, e := range r.base.List() {
		out = append(out, describe(e.tool, e.enabled))
	}
	return out
}

func (r *Registry) Count() int { return r.base.Count() }

func describe(t Tool, enabled bool) Descriptor {
	return Descriptor{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		ArgsSchema:  t.Schema(),
		Origin:      Origin{Kind: OriginLocal},
		Enabled:     enabled,
	}
}

// NewDefaultRegistry returns a registry with the built-in tools.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Registration of built-ins cannot collide.
	_ = r.Register(NewCurrentTimeTool())
	return r
}
