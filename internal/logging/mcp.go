package logging

import (
	"log/slog"
)

// SetupMCPMode installs a file-only default logger for MCP server mode.
//
// MCP requires stdout to be used exclusively for JSON-RPC, and some clients
// treat stderr output as a failed start, so nothing is written to either.
func SetupMCPMode(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", level))

	return cleanup, nil
}
