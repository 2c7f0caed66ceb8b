package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/junhyuklee/mcpchat/config"
	"github.com/junhyuklee/mcpchat/llms"
	"github.com/junhyuklee/mcpchat/logger"
	"github.com/junhyuklee/mcpchat/mcp"
	"github.com/junhyuklee/mcpchat/tools"
	"github.com/junhyuklee/mcpchat/workflow"
)

// app bundles the wired components behind one conversation.
type app struct {
	cfg     *config.Config
	llm     *llms.OpenAIProvider
	mcp     *mcp.Client
	catalog *tools.Catalog
	engine  *workflow.Engine

	logCloser io.Closer
}

// buildApp loads the config, initializes logging and wires the LLM,
// the tool catalog and the workflow engine. When connectRemote is set
// the MCP servers are contacted; failures there degrade to local tools
// instead of aborting.
func buildApp(ctx context.Context, cli *CLI, connectRemote, debug bool) (*app, error) {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			return nil, fmt.Errorf("%w\n\n먼저 'mcpchat setup' 으로 설정 파일을 만들어 주세요", err)
		}
		return nil, err
	}

	logCloser, err := setupLogging(cli, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := cfg.CheckSettings(cli.Config); err != nil {
		return nil, err
	}

	provider := llms.NewOpenAIProvider(cfg.OpenAI)
	registry := tools.NewDefaultRegistry()

	client := mcp.NewClient(cfg.MCPServers)
	if connectRemote && len(cfg.EnabledServers()) > 0 {
		if err := client.Initialize(ctx); err != nil {
			slog.Warn("MCP servers unavailable, continuing with local tools", "error", err)
		}
	}

	catalog := tools.BuildCatalog(registry, client)
	engine := workflow.NewEngine(provider, catalog, cfg.Chatbot.SystemPrompt,
		workflow.WithDebug(debug),
		workflow.WithLiveStreaming(cfg.OpenAI.IsStreaming()),
	)

	return &app{
		cfg:       cfg,
		llm:       provider,
		mcp:       client,
		catalog:   catalog,
		engine:    engine,
		logCloser: logCloser,
	}, nil
}

func (a *app) Close() {
	if err := a.mcp.Close(); err != nil {
		slog.Warn("closing MCP client", "error", err)
	}
	_ = a.llm.Close()
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// setupLogging applies the config's logging section, letting CLI flags
// override level and format.
func setupLogging(cli *CLI, cfg *config.Config) (io.Closer, error) {
	levelStr := cfg.Logging.Level
	if cli.LogLevel != "" {
		levelStr = cli.LogLevel
	}
	format := cfg.Logging.Format
	if cli.LogFormat != "" {
		format = cli.LogFormat
	}
	level := logger.ParseLevel(levelStr)
	if cli.Verbose {
		level = slog.LevelDebug
	}
	if cli.Quiet {
		level = slog.LevelError
	}

	if cfg.Logging.FileEnabled {
		return logger.InitWithFile(level, os.Stderr, format, logger.FileConfig{
			Path:       cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.Rotation,
			MaxAgeDays: cfg.Logging.Retention,
			Compress:   cfg.Logging.Compression,
		})
	}
	logger.Init(level, os.Stderr, format)
	return nil, nil
}

// stdinIsTerminal reports whether stdin is attached to a terminal.
// Piped input gets echoed so transcripts stay readable.
func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
