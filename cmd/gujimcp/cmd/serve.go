package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gujimcp/internal/config"
	"github.com/Aman-CERP/gujimcp/internal/corpus"
	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/logging"
	"github.com/Aman-CERP/gujimcp/internal/mcp"
	"github.com/Aman-CERP/gujimcp/internal/watcher"
)

type serveOptions struct {
	transport string
	watch     bool
	noCache   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over the configured corpus.

The corpus is read and indexed once at startup. With --watch (or
corpus.watch: true) the corpus directory is watched and reloaded when book
files change; queries keep being served from the previous version while a
reload runs.

Nothing but JSON-RPC is written to stdout. Logs go to ~/.gujimcp/logs/.`,
		Example: `  # Serve over stdio (what MCP clients launch)
  gujimcp serve

  # Reload when the corpus changes
  gujimcp serve --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport (default from config: stdio)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the corpus when files change")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Disable the snippet cache")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.noCache {
		cfg.Snippets.CacheEnabled = new(bool)
	}
	transport := cfg.Server.Transport
	if opts.transport != "" {
		transport = opts.transport
	}

	if !debugMode {
		cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		defer cleanup()
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := openTelemetry(cfg, logger)
	if metrics != nil {
		defer func() {
			if err := metrics.Close(); err != nil {
				logger.Warn("failed to flush telemetry", slog.String("error", err.Error()))
			}
		}()
	}

	_, lib, timings, err := openLibrary(ctx, cfg, logger, metrics, loadHooks{})
	if err != nil {
		logger.Error("failed to load corpus",
			slog.String("path", cfg.Corpus.Path),
			slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = lib.Close() }()
	logger.Info("corpus loaded",
		slog.String("path", cfg.Corpus.Path),
		slog.Duration("read", timings.read),
		slog.Duration("index", timings.index))

	srv, err := mcp.NewServer(lib, cfg)
	if err != nil {
		return err
	}
	srv.SetLogger(logger)
	if metrics != nil {
		srv.SetMetrics(metrics)
	}

	if opts.watch || cfg.WatchEnabled() {
		if err := startReloader(ctx, cfg, lib, logger); err != nil {
			logger.Warn("corpus watch disabled", slog.String("error", err.Error()))
		} else {
			srv.SetWatching(true)
		}
	}

	return srv.Serve(ctx, transport)
}

// startReloader watches the corpus directory and publishes a new corpus
// version after each batch of changes.
func startReloader(ctx context.Context, cfg *config.Config, lib *library.Library, logger *slog.Logger) error {
	w, err := watcher.NewCorpusWatcher(watcher.Options{DebounceWindow: cfg.Debounce()})
	if err != nil {
		return err
	}
	reload := func(ctx context.Context) error {
		c, err := corpus.LoadDir(ctx, cfg.Corpus.Path, corpus.LoadOptions{Logger: logger})
		if err != nil {
			return err
		}
		return lib.Reload(ctx, c)
	}
	r := watcher.NewReloader(w, reload, logger)

	go func() {
		if err := r.Run(ctx, cfg.Corpus.Path); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("corpus watcher stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("watching corpus",
		slog.String("path", cfg.Corpus.Path),
		slog.String("watcher", w.Mode()))
	return nil
}
