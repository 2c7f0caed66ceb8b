// Command mcpchat is an interactive AI chatbot for the terminal. It
// talks to OpenAI-compatible models, executes built-in tools and tools
// discovered on MCP servers, and can export its workflow as a diagram.
//
// Usage:
//
//	mcpchat setup
//	mcpchat chat
//	mcpchat chat "산책하기 좋은 날씨야?" --once
//	mcpchat info
//	mcpchat agent export --format mermaid
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat    ChatCmd    `cmd:"" default:"withargs" help:"Start a conversation with the assistant."`
	Info    InfoCmd    `cmd:"" help:"Show configuration, tools and MCP server status."`
	Setup   SetupCmd   `cmd:"" help:"Create settings.yaml from the sample template."`
	Agent   AgentCmd   `cmd:"" help:"Inspect the agent workflow."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." default:"settings.yaml" type:"path"`
	Output    string `short:"o" help:"Output format (text, json, yaml)." default:"text" enum:"text,json,yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the config file."`
	LogFormat string `help:"Log format (simple, verbose, json). Overrides the config file."`
	Verbose   bool   `short:"v" help:"Log at debug level."`
	Quiet     bool   `short:"q" help:"Suppress the banner and log errors only."`
}

// printBanner prints a colored ASCII banner when stdout is a terminal.
func printBanner() {
	if fileInfo, err := os.Stdout.Stat(); err != nil || (fileInfo.Mode()&os.ModeCharDevice) == 0 {
		return
	}

	blueColor := "\033[38;2;59;130;246m"
	resetColor := "\033[0m"

	banner := `
 __  __  ____ ____   ____ _   _    _  _____
|  \/  |/ ___|  _ \ / ___| | | |  / \|_   _|
| |\/| | |   | |_) | |   | |_| | / _ \ | |
| |  | | |___|  __/| |___|  _  |/ ___ \| |
|_|  |_|\____|_|    \____|_| |_/_/   \_\_|
`
	fmt.Printf("%s%s%s\n", blueColor, banner, resetColor)
}

// shouldSkipBanner reports whether an informational command was given.
func shouldSkipBanner(args []string) bool {
	for _, arg := range args[1:] {
		switch arg {
		case "info", "version", "setup", "agent":
			return true
		}
	}
	return false
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("mcpchat"),
		kong.Description("MCP-enabled AI chatbot for the terminal"),
		kong.UsageOnError(),
	)

	if !cli.Quiet && !shouldSkipBanner(os.Args) {
		printBanner()
	}

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
