package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
	"github.com/Aman-CERP/gujimcp/internal/themes"
)

func TestWriter_StatusLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Successf("Loaded %d books", 3)
	w.Errorf("book %q not found", "SHIJI")
	w.Status("", "indented")

	assert.Equal(t, "✅ Loaded 3 books\n❌ book \"SHIJI\" not found\n   indented\n", buf.String())
}

func TestWriter_JSONKeepsHan(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).JSON(map[string]string{"title": "论语<注>"}))

	assert.Contains(t, buf.String(), "论语<注>")
	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
}

func TestWriter_SearchResults(t *testing.T) {
	// Given: the first of two pages
	buf := &bytes.Buffer{}
	resp := &library.SearchResponse{
		Results: []index.Result{{
			BookID: "LUNYU", Title: "论语", Author: "孔子弟子", Dynasty: "春秋", Category: "经部",
			ChapterID: "xueer", ChapterTitle: "学而", Snippet: "学而时习之，\n不亦说乎", Score: 1,
		}},
		TotalResults: 2,
		Pagination:   library.Pagination{CurrentPage: 1, TotalPages: 2, HasNext: true},
	}

	// When: printing
	New(buf).SearchResults("学", resp)

	// Then: the result and the next-page hint are shown
	out := buf.String()
	assert.Contains(t, out, `2 results for "学" (page 1/2`)
	assert.Contains(t, out, "1. LUNYU 《论语》 [春秋] 孔子弟子 · 经部  [1.00]")
	assert.Contains(t, out, "学而 (xueer)")
	assert.Contains(t, out, "学而时习之， 不亦说乎")
	assert.Contains(t, out, "--page 2")
}

func TestWriter_SearchResultsEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).SearchResults("赤壁", &library.SearchResponse{})
	assert.Contains(t, buf.String(), `No results for "赤壁"`)
}

func TestWriter_BookAndChapter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Book(&library.BookInfo{
		BookID: "MENGZI", Title: "孟子", Author: "孟子", Dynasty: "战国", Category: "经部",
		TotalChapters: 1, WordCount: 28,
		Chapters: []library.ChapterSummary{{ChapterID: "lianglh", Title: "梁惠王上", Order: 1, WordCount: 28}},
	})
	w.Chapter(&library.ChapterContent{
		BookTitle: "论语", ChapterID: "weizheng", ChapterTitle: "为政", Content: "为政以德",
		Footnotes:  []string{"朱熹集注"},
		Navigation: library.Navigation{PreviousChapter: &library.ChapterRef{ChapterID: "xueer", Title: "学而"}},
	})

	out := buf.String()
	assert.Contains(t, out, "《孟子》 MENGZI")
	assert.Contains(t, out, "1 chapters, 28 characters")
	assert.Contains(t, out, "1. 梁惠王上 (lianglh) 28")
	assert.Contains(t, out, "  为政以德")
	assert.Contains(t, out, "[1] 朱熹集注")
	assert.Contains(t, out, "← 学而 (xueer)")
	assert.NotContains(t, out, "→")
	assert.NotContains(t, out, "Annotations")
}

func TestWriter_SnippetsAndThemes(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Snippets(&library.SnippetsResponse{
		BookID: "LUNYU", Title: "论语", Keyword: "不亦", TotalSnippets: 1,
		Snippets: []snippet.Snippet{{ChapterID: "xueer", ChapterTitle: "学而", Content: "不亦说乎", Score: 1}},
	})
	w.Themes(&library.ThemesResponse{
		Themes:      []themes.Theme{{Word: "学而", Count: 2}, {Word: "virtue", Count: 1}},
		TotalThemes: 2,
	})

	out := buf.String()
	assert.Contains(t, out, "《论语》 1 snippets")
	assert.Contains(t, out, "学而 (xueer) [1.00]")
	assert.Contains(t, out, " 1. 学而      2")
	assert.Contains(t, out, " 2. virtue  1")
}

func TestByline(t *testing.T) {
	assert.Equal(t, "[汉] 司马迁", byline("汉", "司马迁"))
	assert.Equal(t, "司马迁", byline("", "司马迁"))
	assert.Equal(t, "[汉]", byline("汉", ""))
	assert.Equal(t, "佚名", byline("", ""))
}
