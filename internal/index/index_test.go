package index

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

func fixtureCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(
		corpus.Document{
			Book: corpus.Book{ID: "B1", Title: "论语", Author: "孔子弟子", Dynasty: "春秋", Category: corpus.CategoryClassics},
			Chapters: []corpus.Chapter{
				{ID: "C1", Title: "学而", Body: "学而时习之，不亦说乎。有朋自远方来，不亦乐乎。"},
				{ID: "C2", Title: "为政", Body: "为政以德，譬如北辰，居其所而众星共之。"},
			},
		},
		corpus.Document{
			Book: corpus.Book{ID: "B2", Title: "孟子", Author: "孟子", Dynasty: "战国", Category: corpus.CategoryClassics},
			Chapters: []corpus.Chapter{
				{ID: "C1", Title: "离娄上", Body: "孟子曰：学者必以规矩，而后成方圆。"},
			},
		},
		corpus.Document{
			Book: corpus.Book{ID: "B3", Title: "史记", Author: "司马迁", Dynasty: "西汉", Category: corpus.CategoryHistories},
			Chapters: []corpus.Chapter{
				{ID: "C1", Title: "五帝本纪", Body: "黄帝者，少典之子。"},
			},
		},
		corpus.Document{
			Book: corpus.Book{ID: "B5", Title: "汉书", Author: "班固", Dynasty: "东汉", Category: corpus.CategoryHistories},
			Chapters: []corpus.Chapter{
				{ID: "C1", Title: "司马迁传", Body: "太史公作史记，史记凡百三十篇。Ban Gu calls it Shiji."},
			},
		},
	)
	require.NoError(t, err)
	return c
}

func buildIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Build(context.Background(), fixtureCorpus(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func doSearch(t *testing.T, ix *Index, q Query) *Response {
	t.Helper()
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	resp, err := ix.Search(context.Background(), q)
	require.NoError(t, err)
	return resp
}

func ids(resp *Response) []string {
	out := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.BookID
	}
	return out
}

func TestBuild_Stats(t *testing.T) {
	ix := buildIndex(t)

	assert.Equal(t, Stats{Books: 4, Chapters: 5}, ix.Stats())
}

func TestSearch_AdjacentTermsRankFirst(t *testing.T) {
	// Given: 学而 adjacent in B1 and far apart in B2
	ix := buildIndex(t)

	// When: searching for 学而
	resp := doSearch(t, ix, Query{Keyword: "学而"})

	// Then: B1 ranks first with a snippet around the phrase
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"B1", "B2"}, ids(resp))
	assert.Contains(t, resp.Results[0].Snippet, "学而时习之")
	assert.Equal(t, "C1", resp.Results[0].ChapterID)
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.Less(t, resp.Results[1].Score, 1.0)
}

func TestSearch_ScoresNonIncreasingInUnitRange(t *testing.T) {
	ix := buildIndex(t)

	for _, kw := range []string{"学而", "之", "史记", "不亦"} {
		t.Run(kw, func(t *testing.T) {
			resp := doSearch(t, ix, Query{Keyword: kw, SortBy: SortRelevance, SortOrder: SortDesc})
			for i, r := range resp.Results {
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
				if i > 0 {
					assert.LessOrEqual(t, r.Score, resp.Results[i-1].Score)
				}
			}
		})
	}
}

func TestSearch_NoMatch_IsEmptyNotError(t *testing.T) {
	ix := buildIndex(t)

	resp := doSearch(t, ix, Query{Keyword: "nonexistent_term_xyz"})

	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestSearch_TitleMatchOutranksBodyMatch(t *testing.T) {
	// Given: B3 is titled 史记 while B5 mentions 史记 twice in its body
	ix := buildIndex(t)

	// When: searching 史记
	resp := doSearch(t, ix, Query{Keyword: "史记"})

	// Then: the title match wins
	require.Equal(t, []string{"B3", "B5"}, ids(resp))
	assert.Equal(t, "黄帝者，少典之子。", resp.Results[0].Snippet, "title-only hits show the chapter opening")
	assert.Contains(t, resp.Results[1].Snippet, "史记")
}

func TestSearch_WidthAndCaseFolding(t *testing.T) {
	ix := buildIndex(t)

	resp := doSearch(t, ix, Query{Keyword: "ＳＨＩＪＩ"})

	assert.Equal(t, []string{"B5"}, ids(resp))
}

func TestSearch_FiltersAreConjunctive(t *testing.T) {
	ix := buildIndex(t)

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"no filter", Filters{}, []string{"B1", "B3"}},
		{"category", Filters{Category: corpus.CategoryHistories}, []string{"B3"}},
		{"author", Filters{Author: "孔子弟子"}, []string{"B1"}},
		{"category and dynasty agree", Filters{Category: corpus.CategoryHistories, Dynasty: "西汉"}, []string{"B3"}},
		{"category and dynasty disagree", Filters{Category: corpus.CategoryClassics, Dynasty: "西汉"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doSearch(t, ix, Query{Keyword: "之", Filters: tt.filters, SortBy: SortTitle, SortOrder: SortDesc})
			assert.Equal(t, tt.want, ids(resp))
			assert.Equal(t, len(tt.want), resp.Total)
		})
	}
}

func TestSearch_SortByField(t *testing.T) {
	ix := buildIndex(t)

	asc := doSearch(t, ix, Query{Keyword: "之", SortBy: SortTitle})
	desc := doSearch(t, ix, Query{Keyword: "之", SortBy: SortTitle, SortOrder: SortDesc})

	assert.Equal(t, []string{"B3", "B1"}, ids(asc), "field sorts default to ascending")
	assert.Equal(t, []string{"B1", "B3"}, ids(desc))
}

func TestSearch_Pagination(t *testing.T) {
	ix := buildIndex(t)

	first := doSearch(t, ix, Query{Keyword: "之", Limit: 1, Page: 1})
	second := doSearch(t, ix, Query{Keyword: "之", Limit: 1, Page: 2})
	beyond := doSearch(t, ix, Query{Keyword: "之", Limit: 1, Page: 3})

	assert.Len(t, first.Results, 1)
	assert.Len(t, second.Results, 1)
	assert.NotEqual(t, first.Results[0].BookID, second.Results[0].BookID)
	assert.Empty(t, beyond.Results)
	assert.Equal(t, 2, beyond.Total)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	// Given: an index with two matching books
	ix := buildIndex(t)

	// When: asking for a page whose offset would overflow int
	resp := doSearch(t, ix, Query{Keyword: "之", Page: 1 << 40, Limit: 1 << 30})

	// Then: the page is empty and the total is still reported
	assert.Empty(t, resp.Results)
	assert.Equal(t, 2, resp.Total)
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name             string
		page, limit, n   int
		wantFrom, wantTo int
		wantOK           bool
	}{
		{"first page", 1, 2, 5, 0, 2, true},
		{"last partial page", 3, 2, 5, 4, 5, true},
		{"past the end", 4, 2, 5, 0, 0, false},
		{"no items", 1, 10, 0, 0, 0, false},
		{"huge page", 1 << 40, 1 << 30, 5, 0, 0, false},
		{"huge limit", 1, 1 << 62, 5, 0, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := pageBounds(tt.page, tt.limit, tt.n)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestSearch_InvalidArguments(t *testing.T) {
	ix := buildIndex(t)

	tests := []struct {
		name string
		q    Query
	}{
		{"empty keyword", Query{Keyword: "", Page: 1, Limit: 1}},
		{"whitespace keyword", Query{Keyword: "  \t", Page: 1, Limit: 1}},
		{"punctuation only", Query{Keyword: "，。！", Page: 1, Limit: 1}},
		{"bad sort", Query{Keyword: "之", SortBy: "pages", Page: 1, Limit: 1}},
		{"bad order", Query{Keyword: "之", SortOrder: "up", Page: 1, Limit: 1}},
		{"page zero", Query{Keyword: "之", Page: 0, Limit: 1}},
		{"limit zero", Query{Keyword: "之", Page: 1, Limit: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.Search(context.Background(), tt.q)
			require.Error(t, err)
			assert.True(t, gerrors.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestSearch_ClosedIndex(t *testing.T) {
	ix, err := Build(context.Background(), fixtureCorpus(t))
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())

	_, err = ix.Search(context.Background(), Query{Keyword: "之", Page: 1, Limit: 1})

	assert.True(t, gerrors.IsInternal(err))
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	// Given: one shared index
	ix := buildIndex(t)

	// When: many searches run at once
	var wg sync.WaitGroup
	totals := make([]int, 16)
	for i := range totals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := ix.Search(context.Background(), Query{Keyword: "之", Page: 1, Limit: 10})
			if err == nil {
				totals[i] = resp.Total
			}
		}()
	}
	wg.Wait()

	// Then: every search sees the same result
	for _, n := range totals {
		assert.Equal(t, 2, n)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, fixtureCorpus(t))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSort(t *testing.T) {
	by, err := ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortRelevance, by)

	by, err = ParseSortField("Dynasty")
	require.NoError(t, err)
	assert.Equal(t, SortDynasty, by)

	order, err := ParseSortOrder("", DefaultOrder(SortAuthor))
	require.NoError(t, err)
	assert.Equal(t, SortAsc, order)
	assert.Equal(t, SortDesc, DefaultOrder(SortRelevance))
}

func TestBuild_ReportsProgress(t *testing.T) {
	var seen []int
	ix, err := Build(context.Background(), fixtureCorpus(t), WithProgress(func(done, total int) {
		assert.Equal(t, 5, total)
		seen = append(seen, done)
	}))
	require.NoError(t, err)
	defer ix.Close()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
}
