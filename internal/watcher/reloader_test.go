package watcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource emits batches pushed by the test.
type fakeSource struct {
	events chan []FileEvent
	errs   chan error
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan []FileEvent, 4), errs: make(chan error, 4)}
}

func (f *fakeSource) Start(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) Stop() error {
	f.once.Do(func() { close(f.events) })
	return nil
}

func (f *fakeSource) Events() <-chan []FileEvent { return f.events }
func (f *fakeSource) Errors() <-chan error       { return f.errs }

func TestReloader_OneReloadPerBatch_FailuresKeepRunning(t *testing.T) {
	// Given: a reload that fails on its second call
	src := newFakeSource()
	var mu sync.Mutex
	calls := 0
	reload := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return errors.New("bad manifest")
		}
		return nil
	}
	var logs bytes.Buffer
	r := NewReloader(src, reload, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, "unused") }()

	// When: three batches arrive
	for i := 0; i < 3; i++ {
		src.events <- []FileEvent{{Path: "lunyu/01.txt", Operation: OpModify}}
	}
	src.errs <- errors.New("inotify overflow")

	// Then: every batch triggers a reload and the failure is logged
	require.Eventually(t, func() bool { return r.Reloads()+r.Failures() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), r.Reloads())
	assert.Equal(t, int64(1), r.Failures())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Contains(t, logs.String(), "keeping previous snapshot")
}

func TestReloader_SourceStartFailure(t *testing.T) {
	r := NewReloader(failingSource{newFakeSource()}, func(context.Context) error { return nil }, nil)

	err := r.Run(context.Background(), "missing")

	assert.EqualError(t, err, "stat corpus root: missing")
}

type failingSource struct{ *fakeSource }

func (failingSource) Start(context.Context, string) error {
	return errors.New("stat corpus root: missing")
}
