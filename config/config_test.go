package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: sk-test
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", cfg.OpenAI.MaxTokens)
	}
	if !cfg.OpenAI.IsStreaming() {
		t.Error("streaming should default to true")
	}
	if cfg.Chatbot.SystemPrompt == "" {
		t.Error("system prompt should have a default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "openai: [not a map")

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadConfig_DropsIllFormedServers(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: sk-test
mcp_servers:
  - name: weather
    url: http://localhost:8001/mcp
  - name: bad-scheme
    url: ftp://example.com
  - url: http://no-name.example.com
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.MCPServers) != 1 {
		t.Fatalf("got %d servers, want 1", len(cfg.MCPServers))
	}
	s := cfg.MCPServers[0]
	if s.Name != "weather" {
		t.Errorf("server name = %q, want weather", s.Name)
	}
	if !s.IsEnabled() {
		t.Error("server should default to enabled")
	}
	if s.Timeout != 30 {
		t.Errorf("timeout = %d, want 30", s.Timeout)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("MCPCHAT_TEST_KEY", "sk-from-env")

	path := writeConfig(t, `
openai:
  api_key: ${MCPCHAT_TEST_KEY}
  model: "${MCPCHAT_TEST_MODEL:-gpt-4o}"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want sk-from-env", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("Model = %q, want default-expanded gpt-4o", cfg.OpenAI.Model)
	}
}

func TestCheckSettings(t *testing.T) {
	t.Run("placeholder key", func(t *testing.T) {
		path := writeConfig(t, `
openai:
  api_key: your-openai-api-key-here
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if err := cfg.CheckSettings(path); !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("expected ErrConfigInvalid, got %v", err)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		path := writeConfig(t, `
openai:
  api_key: sk-real
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if err := cfg.CheckSettings(path); err != nil {
			t.Errorf("CheckSettings() error = %v", err)
		}
	})
}

func TestOpenAIConfig_Validate(t *testing.T) {
	cfg := OpenAIConfig{Temperature: 3}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for temperature > 2")
	}
}

func TestCopySample(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "settings.sample.yaml")
	dst := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(sample, []byte("openai:\n  api_key: x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CopySample(sample, dst); err != nil {
		t.Fatalf("CopySample() error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}

	if err := CopySample(sample, dst); err == nil {
		t.Error("expected error when destination exists")
	}
}
