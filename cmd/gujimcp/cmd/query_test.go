package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_Text(t *testing.T) {
	// Given: a directory with a two-book corpus
	dir := fixtureDir(t)

	// When: searching for a phrase in one book
	res := execute(t, "", "-C", dir, "search", "学而")

	// Then: the matching book is listed
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `1 results for "学而"`)
	assert.Contains(t, res.stdout, "LUNYU 《论语》")
	assert.NotContains(t, res.stdout, "MENGZI")
}

func TestSearchCmd_JSONWithFilter(t *testing.T) {
	dir := fixtureDir(t)

	res := execute(t, "", "-C", dir, "search", "而", "--dynasty", "战国", "--json")

	require.NoError(t, res.err)
	var resp struct {
		TotalResults int `json:"totalResults"`
		Results      []struct {
			BookID string `json:"bookId"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, "MENGZI", resp.Results[0].BookID)
}

func TestSearchCmd_RejectsBadArguments(t *testing.T) {
	dir := fixtureDir(t)

	tests := []struct {
		name string
		args []string
	}{
		{"punctuation only", []string{"search", "。，"}},
		{"limit out of range", []string{"search", "学", "--limit", "500"}},
		{"unknown sort", []string{"search", "学", "--sort", "date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", append([]string{"-C", dir}, tt.args...)...)
			assert.Error(t, res.err)
		})
	}
}

func TestBookCmd(t *testing.T) {
	dir := fixtureDir(t)

	res := execute(t, "", "-C", dir, "book", "LUNYU")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "《论语》 LUNYU")
	assert.Contains(t, res.stdout, "学而 (xueer)")

	res = execute(t, "", "-C", dir, "book", "LUNYU", "--no-chapters")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "(xueer)")

	res = execute(t, "", "-C", dir, "book", "SHIJI")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "SHIJI")
}

func TestChapterCmd(t *testing.T) {
	dir := fixtureDir(t)

	res := execute(t, "", "-C", dir, "chapter", "LUNYU", "xueer")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "学而时习之")
	assert.Contains(t, res.stdout, "朱熹集注")
	assert.Contains(t, res.stdout, "→ 为政 (weizheng)")

	res = execute(t, "", "-C", dir, "chapter", "LUNYU", "xueer", "--footnotes=false")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "朱熹集注")
}

func TestSnippetsCmd_JSON(t *testing.T) {
	dir := fixtureDir(t)

	res := execute(t, "", "-C", dir, "snippets", "LUNYU", "不亦", "-c", "10", "--json")

	require.NoError(t, res.err)
	var resp struct {
		Snippets []struct {
			Content string `json:"content"`
		} `json:"snippets"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.NotEmpty(t, resp.Snippets)
	for _, s := range resp.Snippets {
		assert.Contains(t, s.Content, "不亦")
	}
}

func TestThemesCmd(t *testing.T) {
	dir := fixtureDir(t)

	// From arguments
	res := execute(t, "", "-C", dir, "themes", "学而时习之，学而不思则罔", "--json")
	require.NoError(t, res.err)
	var resp struct {
		Themes []struct {
			Word  string `json:"word"`
			Count int    `json:"count"`
		} `json:"themes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.NotEmpty(t, resp.Themes)
	assert.Equal(t, "学而", resp.Themes[0].Word)
	assert.Equal(t, 2, resp.Themes[0].Count)

	// From stdin
	res = execute(t, "仁者爱人，仁者无敌", "-C", dir, "themes", "-n", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "仁者")

	// Out of range
	res = execute(t, "", "-C", dir, "themes", "学而", "-n", "99")
	assert.Error(t, res.err)
}
