package tools

import (
	"context"
	"testing"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeTool) GetName() string        { return f.name }
func (f *fakeTool) GetDescription() string { return "fake tool " + f.name }
func (f *fakeTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if f.execute != nil {
		return f.execute(ctx, args)
	}
	return "ok", nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeTool{name: "alpha"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tool, ok := r.Get("alpha")
	if !ok {
		t.Fatal("expected tool to be registered and enabled")
	}
	if tool.GetName() != "alpha" {
		t.Errorf("GetName() = %q, want alpha", tool.GetName())
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()

	_ = r.Register(&fakeTool{name: "alpha"})
	if err := r.Register(&fakeTool{name: "alpha"}); err == nil {
		t.Error("expected error registering duplicate tool name")
	}
}

func TestRegistry_Register_Nil(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Error("expected error registering nil tool")
	}
}

func TestRegistry_EnableDisable(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeTool{name: "alpha"})

	if err := r.Disable("alpha"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if _, ok := r.Get("alpha"); ok {
		t.Error("disabled tool should not be returned by Get")
	}
	if got := r.Enabled(); len(got) != 0 {
		t.Errorf("Enabled() len = %d, want 0", len(got))
	}

	// Still visible in the full listing, marked disabled.
	list := r.List()
	if len(list) != 1 || list[0].Enabled {
		t.Errorf("List() = %+v, want one disabled entry", list)
	}

	if err := r.Enable("alpha"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if _, ok := r.Get("alpha"); !ok {
		t.Error("re-enabled tool should be returned by Get")
	}
}

func TestRegistry_EnableUnknown(t *testing.T) {
	r := NewRegistry()

	if err := r.Enable("ghost"); err == nil {
		t.Error("expected error enabling unknown tool")
	}
}

func TestRegistry_Enabled_Order(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_ = r.Register(&fakeTool{name: name})
	}

	got := r.Enabled()
	want := []string{"zeta", "alpha", "mid"}
	if len(got) != len(want) {
		t.Fatalf("Enabled() len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Enabled()[%d] = %q, want %q", i, got[i].Name, name)
		}
		if got[i].Origin.Kind != OriginLocal {
			t.Errorf("Enabled()[%d].Origin = %v, want local", i, got[i].Origin)
		}
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	if _, ok := r.Get("get_current_time"); !ok {
		t.Error("default registry should contain get_current_time")
	}
}
