package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/gujimcp/internal/config"
	"github.com/Aman-CERP/gujimcp/internal/corpus"
	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/logging"
	"github.com/Aman-CERP/gujimcp/internal/telemetry"
)

// loadConfig loads configuration for the --dir directory.
func loadConfig() (*config.Config, error) {
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// cliLogger returns a file-only logger for one-shot commands so stdout
// carries only results.
func cliLogger() (*slog.Logger, func()) {
	if debugMode {
		return slog.Default(), func() {}
	}
	cfg := logging.DefaultConfig()
	cfg.Level = "warn"
	cfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return slog.New(slog.DiscardHandler), func() {}
	}
	return logger, cleanup
}

// loadHooks observes corpus loading.
type loadHooks struct {
	onBook  func(done, total int, bookID string)
	onIndex func(done, total int)
}

// loadTimings splits the time spent reading and indexing.
type loadTimings struct {
	read  time.Duration
	index time.Duration
}

func libraryOptions(cfg *config.Config, logger *slog.Logger, metrics *telemetry.QueryMetrics) library.Options {
	opts := library.Options{
		Limits:       library.LimitsFromConfig(cfg),
		CacheEnabled: cfg.CacheEnabled(),
		CacheSize:    cfg.Snippets.CacheSize,
		Logger:       logger,
	}
	if metrics != nil {
		opts.Recorder = metrics
	}
	return opts
}

// openLibrary reads the configured corpus and indexes it.
func openLibrary(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.QueryMetrics, hooks loadHooks) (*corpus.Corpus, *library.Library, loadTimings, error) {
	var t loadTimings

	start := time.Now()
	c, err := corpus.LoadDir(ctx, cfg.Corpus.Path, corpus.LoadOptions{Logger: logger, OnBook: hooks.onBook})
	if err != nil {
		return nil, nil, t, err
	}
	t.read = time.Since(start)

	opts := libraryOptions(cfg, logger, metrics)
	opts.OnIndex = hooks.onIndex
	start = time.Now()
	lib, err := library.New(ctx, c, opts)
	if err != nil {
		return nil, nil, t, err
	}
	t.index = time.Since(start)
	return c, lib, t, nil
}

// openTelemetry returns query metrics, persisted to SQLite when a database
// path is configured.
func openTelemetry(cfg *config.Config, logger *slog.Logger) *telemetry.QueryMetrics {
	if !cfg.TelemetryEnabled() {
		return nil
	}
	if cfg.Telemetry.DBPath == "" {
		return telemetry.NewQueryMetrics(nil)
	}
	store, err := telemetry.OpenSQLiteMetricsStore(cfg.Telemetry.DBPath)
	if err != nil {
		logger.Warn("telemetry store unavailable, keeping metrics in memory",
			slog.String("path", cfg.Telemetry.DBPath),
			slog.String("error", err.Error()))
		return telemetry.NewQueryMetrics(nil)
	}
	return telemetry.NewQueryMetrics(store)
}
