package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "settings.yaml"

// SampleConfigPath is the template `setup` copies into place.
const SampleConfigPath = "settings.sample.yaml"

var (
	ErrConfigMissing = errors.New("config file not found")
	ErrConfigInvalid = errors.New("config file invalid")
)

// LoadConfig reads the YAML config from path, expands environment
// variable references, applies defaults and validates. Ill-formed MCP
// server entries are dropped with a warning rather than failing the
// whole load.
func LoadConfig(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		slog.Warn("failed to load env files", "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	cfg.SetDefaults()
	cfg.MCPServers = filterServers(cfg.MCPServers)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return &cfg, nil
}

func filterServers(servers []MCPServerConfig) []MCPServerConfig {
	var valid []MCPServerConfig
	for _, s := range servers {
		if err := s.Validate(); err != nil {
			slog.Warn("dropping ill-formed MCP server entry", "name", s.Name, "error", err)
			continue
		}
		valid = append(valid, s)
		slog.Debug("MCP server configured", "name", s.Name, "url", s.URL)
	}
	return valid
}

// CheckSettings verifies the OpenAI API key has been filled in. Called
// before any command that talks to the LLM; path only labels the error.
func (c *Config) CheckSettings(path string) error {
	if c.OpenAI.APIKey == "" || c.OpenAI.APIKey == PlaceholderAPIKey {
		return fmt.Errorf("%w: openai.api_key is not set in %s", ErrConfigInvalid, path)
	}
	return nil
}

// CopySample copies the sample template to dst. It refuses to overwrite
// an existing config.
func CopySample(sample, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("config file already exists: %s", dst)
	}

	src, err := os.Open(sample)
	if err != nil {
		return fmt.Errorf("sample template not found: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy template: %w", err)
	}
	return nil
}
