package watcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Source produces debounced change batches for a corpus root.
type Source interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// ReloadFunc rebuilds the served corpus.
type ReloadFunc func(ctx context.Context) error

// Reloader runs one reload per change batch. A failed reload is logged and
// the previously served corpus stays in place.
type Reloader struct {
	source   Source
	reload   ReloadFunc
	logger   *slog.Logger
	reloads  atomic.Int64
	failures atomic.Int64
}

// NewReloader wires a Source to a reload function.
func NewReloader(source Source, reload ReloadFunc, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{source: source, reload: reload, logger: logger}
}

// Run watches root and reloads on change until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context, root string) error {
	started := make(chan error, 1)
	go func() { started <- r.source.Start(ctx, root) }()
	defer func() { _ = r.source.Stop() }()

	events, errs := r.source.Events(), r.source.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-started:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("corpus watcher error", slog.String("error", err.Error()))
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			r.handle(ctx, batch)
		}
	}
}

func (r *Reloader) handle(ctx context.Context, batch []FileEvent) {
	if len(batch) == 0 {
		return
	}
	start := time.Now()
	r.logger.Info("corpus change detected",
		slog.Int("events", len(batch)),
		slog.Any("books", Books(batch)))

	if err := r.reload(ctx); err != nil {
		r.failures.Add(1)
		r.logger.Error("corpus reload failed, keeping previous snapshot",
			slog.String("error", err.Error()))
		return
	}
	r.reloads.Add(1)
	r.logger.Info("corpus reloaded", slog.Duration("duration", time.Since(start)))
}

// Reloads returns the number of successful reloads.
func (r *Reloader) Reloads() int64 { return r.reloads.Load() }

// Failures returns the number of failed reloads.
func (r *Reloader) Failures() int64 { return r.failures.Load() }
