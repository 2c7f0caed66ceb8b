// Package mcpchat is an interactive command-line AI agent.
//
// It dispatches user input to an OpenAI-compatible LLM, lets the model
// call tools from a local registry and from remote MCP servers, streams
// the formatted answer back to the terminal, and can record Markdown
// transcripts of the conversation.
//
// The interesting part lives in the workflow package: a small state
// machine (process_input -> generate_response -> [call_tools]* ->
// format_output) that drives the multi-turn tool-use loop and emits a
// typed event stream any front-end can render incrementally.
package mcpchat
