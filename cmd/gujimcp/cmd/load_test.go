package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gujimcp/internal/ui"
)

func TestLoadCmd_PlainProgressAndStatus(t *testing.T) {
	// Given: a two-book corpus
	dir := fixtureDir(t)

	// When: loading without the TUI
	res := execute(t, "", "-C", dir, "load", "--no-tui")

	// Then: progress lines and the status summary are printed
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "[LOAD] 2/2 books")
	assert.Contains(t, res.stdout, "[INDEX] 3/3 chapters")
	assert.Contains(t, res.stdout, "Complete: 2 books, 3 chapters")
	assert.Contains(t, res.stdout, "Books:      2")
	assert.Contains(t, res.stdout, "经部")
}

func TestLoadCmd_JSON(t *testing.T) {
	dir := fixtureDir(t)

	res := execute(t, "", "-C", dir, "load", "--json")

	require.NoError(t, res.err)
	var info ui.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Equal(t, 2, info.Books)
	assert.Equal(t, 3, info.Chapters)
	assert.Equal(t, map[string]int{"春秋": 1, "战国": 1}, info.Dynasties)
	assert.True(t, info.CacheEnabled)
	assert.Contains(t, res.stderr, "Complete:")
}

func TestLoadCmd_MissingCorpus(t *testing.T) {
	res := execute(t, "", "-C", t.TempDir(), "load", "--no-tui")

	assert.Error(t, res.err)
}

func TestIndexStep(t *testing.T) {
	assert.Equal(t, 1, indexStep(0))
	assert.Equal(t, 1, indexStep(49))
	assert.Equal(t, 20, indexStep(1000))
}
