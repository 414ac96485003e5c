package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CorpusWatcher reports debounced changes under a corpus root. It listens to
// fsnotify where available and rescans the tree on a ticker otherwise.
//
// At most one batch is queued. A batch produced while another is still
// queued is merged into it, so no change is lost while a reload runs.
type CorpusWatcher struct {
	opts      Options
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	filter    filter
	batches   chan []FileEvent
	errs      chan error
	done      chan struct{}
	root      string

	mu      sync.Mutex
	stopped bool
}

// NewCorpusWatcher creates a watcher with the given options.
func NewCorpusWatcher(opts Options) (*CorpusWatcher, error) {
	opts = opts.WithDefaults()
	w := &CorpusWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		filter:    newFilter(opts.Extensions),
		batches:   make(chan []FileEvent, 1),
		errs:      make(chan error, 4),
		done:      make(chan struct{}),
	}
	if opts.ForcePolling {
		return w, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify unavailable, polling corpus instead",
			slog.String("error", err.Error()),
			slog.Duration("interval", opts.PollInterval))
		return w, nil
	}
	w.fs = fsw
	return w, nil
}

// Mode returns "fsnotify" or "polling".
func (w *CorpusWatcher) Mode() string {
	if w.fs != nil {
		return "fsnotify"
	}
	return "polling"
}

// Start watches root until ctx is done or Stop is called. It blocks.
func (w *CorpusWatcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve corpus root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus root %s is not a directory", abs)
	}
	w.root = abs

	go w.forward(ctx)
	if w.fs != nil {
		return w.listen(ctx)
	}
	return w.poll(ctx)
}

// listen consumes fsnotify events.
func (w *CorpusWatcher) listen(ctx context.Context) error {
	if err := w.watchTree(w.root); err != nil {
		return fmt.Errorf("watch corpus tree: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.done:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.translate(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

// poll rescans the tree every PollInterval and diffs it against the last scan.
func (w *CorpusWatcher) poll(ctx context.Context) error {
	prev, err := scanTree(w.root, w.filter)
	if err != nil {
		return fmt.Errorf("initial corpus scan: %w", err)
	}
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.done:
			return nil
		case now := <-ticker.C:
			cur, err := scanTree(w.root, w.filter)
			if err != nil {
				w.report(err)
				continue
			}
			for _, ev := range diffTrees(prev, cur, now) {
				w.queue(ev)
			}
			prev = cur
		}
	}
}

// translate turns an fsnotify event into a FileEvent.
func (w *CorpusWatcher) translate(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	op, ok := operationOf(ev.Op)
	if !ok {
		return
	}
	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}
	if op == OpCreate && isDir && !w.filter.ignoreDir(rel) {
		// Files copied into a new book directory before it is watched are
		// only seen through this walk.
		_ = w.watchTree(ev.Name)
	}
	w.queue(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func operationOf(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpModify, true
	case op.Has(fsnotify.Remove):
		return OpDelete, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	}
	return 0, false
}

// queue filters ev, tags manifest writes and hands it to the debouncer.
func (w *CorpusWatcher) queue(ev FileEvent) {
	if w.filter.ignore(ev.Path, ev.IsDir) {
		return
	}
	if !ev.IsDir && isManifest(ev.Path) {
		ev.Operation = OpManifestChange
	}
	w.debouncer.Add(ev)
}

// watchTree registers dir and every visible directory below it.
func (w *CorpusWatcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if w.filter.ignoreDir(rel) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *CorpusWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				w.publish(batch)
			}
		}
	}
}

// publish queues batch, merging it with a batch nobody has taken yet.
// forward is the only sender, so the final send never blocks.
func (w *CorpusWatcher) publish(batch []FileEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.batches <- batch:
		return
	default:
	}
	select {
	case queued := <-w.batches:
		batch = mergeBatches(queued, batch)
	default:
	}
	w.batches <- batch
}

func (w *CorpusWatcher) report(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.errs <- err:
	default:
	}
}

// Stop ends watching and closes both channels. Safe to call multiple times.
func (w *CorpusWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	w.debouncer.Stop()
	if w.fs != nil {
		_ = w.fs.Close()
	}
	close(w.batches)
	close(w.errs)
	return nil
}

// Events returns the channel of debounced batches.
func (w *CorpusWatcher) Events() <-chan []FileEvent { return w.batches }

// Errors returns the channel of watcher errors.
func (w *CorpusWatcher) Errors() <-chan error { return w.errs }

var _ Source = (*CorpusWatcher)(nil)
