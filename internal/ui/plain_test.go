package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	// When: reporting a loaded book and a status message
	r.UpdateProgress(ProgressEvent{Stage: StageLoading, Current: 3, Total: 12, Item: "LUNYU"})
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing, Message: "building index"})
	r.UpdateProgress(ProgressEvent{Stage: StageIndexing})

	// Then: one line per informative event
	assert.Equal(t, "[LOAD] 3/12 books - LUNYU\n[INDEX] building index\n", buf.String())
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_AddError(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{Item: "SHIJI", Err: errors.New("missing book.yaml")})
	r.AddError(ErrorEvent{Err: errors.New("slow disk"), IsWarn: true})

	assert.Equal(t, "ERROR: SHIJI: missing book.yaml\nWARN: slow disk\n", buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Complete(CompletionStats{
		Books:     2,
		Chapters:  30,
		Words:     12000,
		Duration:  1500 * time.Millisecond,
		LoadTime:  400 * time.Millisecond,
		IndexTime: 1100 * time.Millisecond,
		Warnings:  1,
	})

	out := buf.String()
	assert.Contains(t, out, "Complete: 2 books, 30 chapters, 12000 characters in 1.5s (0 errors, 1 warnings)")
	assert.Contains(t, out, "Load:  400ms")
	assert.Contains(t, out, "Index: 1.1s")
	require.NoError(t, r.Stop())
}
