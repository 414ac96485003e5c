// Package logging configures structured slog output for gujimcp.
//
// In MCP mode stdout carries JSON-RPC, so logs go only to a size-rotated
// file under ~/.gujimcp/logs/. CLI commands may additionally mirror logs to
// stderr with --debug.
package logging
