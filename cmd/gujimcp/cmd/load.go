package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	"github.com/Aman-CERP/gujimcp/internal/ui"
)

type loadOptions struct {
	jsonOutput bool
	noTUI      bool
	noColor    bool
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load and index the corpus, then print its status",
		Long: `Read every book under the configured corpus directory, build the search
index and print a summary. Use it to check a corpus before serving it.

Progress is drawn as a terminal UI on interactive terminals and as plain
lines otherwise.`,
		Example: `  gujimcp load
  gujimcp load --json
  gujimcp -C ~/guji load --no-tui`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print status as JSON (progress goes to stderr)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Plain progress output")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")

	return cmd
}

// indexStep thins chapter progress to about fifty updates.
func indexStep(total int) int {
	return max(total/50, 1)
}

func runLoad(ctx context.Context, cmd *cobra.Command, opts loadOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := cliLogger()
	defer cleanup()

	var progressOut io.Writer = cmd.OutOrStdout()
	if opts.jsonOutput {
		progressOut = cmd.ErrOrStderr()
	}
	renderer := ui.NewRenderer(ui.NewConfig(progressOut,
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(opts.noColor || ui.DetectNoColor()),
		ui.WithCorpusDir(cfg.Corpus.Path)))
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	start := time.Now()
	hooks := loadHooks{
		onBook: func(done, total int, bookID string) {
			renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Current: done, Total: total, Item: bookID})
		},
		onIndex: func(done, total int) {
			if done == total || done%indexStep(total) == 0 {
				renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: done, Total: total})
			}
		},
	}
	c, lib, timings, err := openLibrary(ctx, cfg, logger, nil, hooks)
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Item: cfg.Corpus.Path, Err: err})
		_ = renderer.Stop()
		return err
	}
	defer func() { _ = lib.Close() }()

	info := statusInfo(c, cfg.Corpus.Path)
	info.LoadDuration = time.Since(start)
	info.CacheEnabled = cfg.CacheEnabled()
	info.CacheCapacity = cfg.Snippets.CacheSize
	info.Watch = cfg.WatchEnabled()
	if cfg.TelemetryEnabled() {
		info.TelemetryPath = cfg.Telemetry.DBPath
	}

	renderer.Complete(ui.CompletionStats{
		Books:     info.Books,
		Chapters:  info.Chapters,
		Words:     info.Words,
		Duration:  info.LoadDuration,
		LoadTime:  timings.read,
		IndexTime: timings.index,
	})
	if err := renderer.Stop(); err != nil {
		return err
	}

	status := ui.NewStatusRenderer(cmd.OutOrStdout(), opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	if opts.jsonOutput {
		return status.RenderJSON(info)
	}
	_, _ = io.WriteString(cmd.OutOrStdout(), "\n")
	return status.Render(info)
}

// statusInfo summarises c.
func statusInfo(c *corpus.Corpus, path string) ui.StatusInfo {
	info := ui.StatusInfo{
		CorpusPath: path,
		Books:      c.Len(),
		Chapters:   c.ChapterCount(),
		Categories: make(map[string]int),
		Dynasties:  make(map[string]int),
	}
	for _, b := range c.Books() {
		info.Words += b.WordCount
		info.Categories[b.Category]++
		info.Dynasties[b.Dynasty]++
	}
	return info
}
