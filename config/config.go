// Package config provides the YAML configuration surface: LLM options,
// chatbot persona, MCP server list, logging and development flags.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// OPENAI CONFIGURATION
// ============================================================================

// PlaceholderAPIKey is the value shipped in the sample config. A config
// still carrying it is treated as unconfigured.
const PlaceholderAPIKey = "your-openai-api-key-here"

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Streaming   *bool   `yaml:"streaming"`
	Host        string  `yaml:"host"`
	Timeout     int     `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
	RetryDelay  int     `yaml:"retry_delay"`
}

func (c *OpenAIConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.Streaming == nil {
		streaming := true
		c.Streaming = &streaming
	}
	if c.Host == "" {
		c.Host = "https://api.openai.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 1
	}
}

func (c *OpenAIConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// IsStreaming reports whether streaming is enabled (default true).
func (c *OpenAIConfig) IsStreaming() bool {
	return c.Streaming == nil || *c.Streaming
}

// ============================================================================
// CHATBOT CONFIGURATION
// ============================================================================

type ChatbotConfig struct {
	Name           string `yaml:"name"`
	WelcomeMessage string `yaml:"welcome_message"`
	SystemPrompt   string `yaml:"system_prompt"`
}

func (c *ChatbotConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "MCP 어시스턴트"
	}
	if c.WelcomeMessage == "" {
		c.WelcomeMessage = "안녕하세요! MCP 챗봇입니다."
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = "당신은 도움이 되는 AI 어시스턴트입니다."
	}
}

// ============================================================================
// MCP SERVER CONFIGURATION
// ============================================================================

type MCPServerConfig struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Enabled *bool             `yaml:"enabled"`
	Timeout int               `yaml:"timeout"` // seconds
	Headers map[string]string `yaml:"headers"`
}

func (c *MCPServerConfig) SetDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
}

func (c *MCPServerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if c.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://, got %q", c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

func (c *MCPServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TimeoutDuration returns the per-server timeout as a duration.
func (c *MCPServerConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ============================================================================
// LOGGING CONFIGURATION
// ============================================================================

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	FileEnabled bool   `yaml:"file_enabled"`
	FilePath    string `yaml:"file_path"`
	Rotation    int    `yaml:"rotation"`  // megabytes per log file
	Retention   int    `yaml:"retention"` // days to keep rotated files
	Compression bool   `yaml:"compression"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
	if c.FilePath == "" {
		c.FilePath = "logs/mcpchat.log"
	}
	if c.Rotation == 0 {
		c.Rotation = 10
	}
	if c.Retention == 0 {
		c.Retention = 7
	}
}

func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "simple", "verbose", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}

// ============================================================================
// DEVELOPMENT CONFIGURATION
// ============================================================================

type DevelopmentConfig struct {
	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`
}

// ============================================================================
// ROOT CONFIGURATION
// ============================================================================

type Config struct {
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Chatbot     ChatbotConfig     `yaml:"chatbot"`
	MCPServers  []MCPServerConfig `yaml:"mcp_servers"`
	Logging     LoggingConfig     `yaml:"logging"`
	Development DevelopmentConfig `yaml:"development"`
}

func (c *Config) SetDefaults() {
	c.OpenAI.SetDefaults()
	c.Chatbot.SetDefaults()
	c.Logging.SetDefaults()
	for i := range c.MCPServers {
		c.MCPServers[i].SetDefaults()
	}
}

func (c *Config) Validate() error {
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// EnabledServers returns the MCP servers that are switched on.
// Ill-formed entries were already dropped by the loader.
func (c *Config) EnabledServers() []MCPServerConfig {
	var servers []MCPServerConfig
	for _, s := range c.MCPServers {
		if s.IsEnabled() {
			servers = append(servers, s)
		}
	}
	return servers
}
