package library

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/telemetry"
)

func ptr[T any](v T) *T { return &v }

func lunyu() corpus.Document {
	return corpus.Document{
		Book: corpus.Book{ID: "LUNYU", Title: "论语", Author: "孔子弟子", Dynasty: "春秋", Category: corpus.CategoryClassics},
		Chapters: []corpus.Chapter{
			{ID: "xueer", Title: "学而", Body: "学而时习之，不亦说乎。有朋自远方来，不亦乐乎。人不知而不愠，不亦君子乎。",
				Annotations: []string{"说，同悦"}, Footnotes: []string{"朱熹集注"}},
			{ID: "weizheng", Title: "为政", Body: "为政以德，譬如北辰，居其所而众星共之。"},
			{ID: "bayi", Title: "八佾", Body: "孔子谓季氏，八佾舞于庭，是可忍也，孰不可忍也。"},
		},
	}
}

func mengzi() corpus.Document {
	return corpus.Document{
		Book: corpus.Book{ID: "MENGZI", Title: "孟子", Author: "孟子", Dynasty: "战国", Category: corpus.CategoryClassics},
		Chapters: []corpus.Chapter{
			{ID: "lianglh", Title: "梁惠王上", Body: "孟子见梁惠王。王曰：叟不远千里而来，亦将有以利吾国乎？"},
		},
	}
}

func newCorpus(t *testing.T, docs ...corpus.Document) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(docs...)
	require.NoError(t, err)
	return c
}

// recorder collects telemetry events.
type recorder struct {
	mu     sync.Mutex
	events []telemetry.QueryEvent
}

func (r *recorder) Record(e telemetry.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newLibrary(t *testing.T, opts Options) *Library {
	t.Helper()
	l, err := New(context.Background(), newCorpus(t, lunyu(), mengzi()), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestSearch_PagesAndStampsVersion(t *testing.T) {
	// Given: a library over two books that both contain 而
	l := newLibrary(t, DefaultOptions())

	// When: asking for one result per page
	resp, err := l.Search(context.Background(), SearchParams{Keyword: "而", Limit: ptr(1)})

	// Then: the first page reports the full total
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, 1, resp.ReturnedResults)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 2, HasNext: true, HasPrev: false}, resp.Pagination)
	assert.Equal(t, uint64(1), resp.CorpusVersion)

	last, err := l.Search(context.Background(), SearchParams{Keyword: "而", PageSize: ptr(1), Page: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 2, HasNext: false, HasPrev: true}, last.Pagination)
	assert.NotEqual(t, resp.Results[0].BookID, last.Results[0].BookID)
}

func TestSearch_NoMatchIsEmpty(t *testing.T) {
	l := newLibrary(t, DefaultOptions())

	resp, err := l.Search(context.Background(), SearchParams{Keyword: "史记"})

	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalResults)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Pagination.TotalPages)
}

func TestSearch_PageFarBeyondEndIsEmpty(t *testing.T) {
	// Given: a library where "学而" matches one book
	l := newLibrary(t, DefaultOptions())

	// When: asking for a very large page
	resp, err := l.Search(context.Background(), SearchParams{Keyword: "学而", Page: ptr(1<<20 + 1)})

	// Then: the page is empty but the total is reported
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasNext)
}

func TestSearch_InvalidArguments(t *testing.T) {
	l := newLibrary(t, DefaultOptions())

	long := make([]rune, 101)
	for i := range long {
		long[i] = '仁'
	}

	tests := []struct {
		name string
		p    SearchParams
		code string
	}{
		{"empty", SearchParams{Keyword: " "}, gerrors.ErrCodeEmptyKeyword},
		{"punctuation", SearchParams{Keyword: "。，"}, gerrors.ErrCodeEmptyKeyword},
		{"too long", SearchParams{Keyword: string(long)}, gerrors.ErrCodeKeywordTooLong},
		{"page zero", SearchParams{Keyword: "而", Page: ptr(0)}, gerrors.ErrCodeOutOfRange},
		{"limit above max", SearchParams{Keyword: "而", Limit: ptr(101)}, gerrors.ErrCodeOutOfRange},
		{"sort field", SearchParams{Keyword: "而", SortBy: "pages"}, gerrors.ErrCodeInvalidSort},
		{"sort order", SearchParams{Keyword: "而", SortOrder: "sideways"}, gerrors.ErrCodeInvalidSort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Search(context.Background(), tt.p)
			require.Error(t, err)
			assert.True(t, gerrors.IsInvalidArgument(err))
			assert.Equal(t, tt.code, gerrors.GetCode(err))
		})
	}
}

func TestBookInfo(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()

	t.Run("with chapters", func(t *testing.T) {
		info, err := l.BookInfo(ctx, BookInfoParams{BookID: "LUNYU"})
		require.NoError(t, err)
		assert.Equal(t, "论语", info.Title)
		assert.Equal(t, 3, info.TotalChapters)
		require.Len(t, info.Chapters, 3)
		assert.Equal(t, ChapterSummary{ChapterID: "xueer", Title: "学而", Order: 1, WordCount: 36}, info.Chapters[0])
	})

	t.Run("without chapters", func(t *testing.T) {
		info, err := l.BookInfo(ctx, BookInfoParams{BookID: "LUNYU", IncludeChapters: ptr(false)})
		require.NoError(t, err)
		assert.Nil(t, info.Chapters)
		assert.Equal(t, 3, info.TotalChapters)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := l.BookInfo(ctx, BookInfoParams{BookID: "SHIJI"})
		assert.True(t, gerrors.IsNotFound(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := l.BookInfo(ctx, BookInfoParams{BookID: "../etc"})
		assert.True(t, gerrors.IsInvalidArgument(err))
	})
}

func TestChapterContent(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()

	t.Run("defaults include notes and navigation", func(t *testing.T) {
		ch, err := l.ChapterContent(ctx, ChapterParams{BookID: "LUNYU", ChapterID: "weizheng"})
		require.NoError(t, err)
		assert.Equal(t, "为政", ch.ChapterTitle)
		assert.Equal(t, 2, ch.Order)
		assert.Equal(t, &ChapterRef{ChapterID: "xueer", Title: "学而"}, ch.Navigation.PreviousChapter)
		assert.Equal(t, &ChapterRef{ChapterID: "bayi", Title: "八佾"}, ch.Navigation.NextChapter)
	})

	t.Run("flags omit lists", func(t *testing.T) {
		ch, err := l.ChapterContent(ctx, ChapterParams{
			BookID: "LUNYU", ChapterID: "xueer",
			IncludeAnnotations: ptr(false), IncludeFootnotes: ptr(true),
		})
		require.NoError(t, err)
		assert.Nil(t, ch.Annotations)
		assert.Equal(t, []string{"朱熹集注"}, ch.Footnotes)
		assert.Nil(t, ch.Navigation.PreviousChapter)
	})

	t.Run("unknown chapter", func(t *testing.T) {
		_, err := l.ChapterContent(ctx, ChapterParams{BookID: "LUNYU", ChapterID: "yongye"})
		assert.True(t, gerrors.IsNotFound(err))
		assert.Equal(t, gerrors.ErrCodeChapterNotFound, gerrors.GetCode(err))
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := l.ChapterContent(ctx, ChapterParams{BookID: "SHIJI", ChapterID: "xueer"})
		assert.Equal(t, gerrors.ErrCodeBookNotFound, gerrors.GetCode(err))
	})

	t.Run("missing chapter id", func(t *testing.T) {
		_, err := l.ChapterContent(ctx, ChapterParams{BookID: "LUNYU"})
		assert.True(t, gerrors.IsInvalidArgument(err))
	})
}

func TestSnippets_CacheIsReadThrough(t *testing.T) {
	// Given: a cache-enabled library
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()
	p := SnippetParams{BookID: "LUNYU", Keyword: "不亦", ContextLength: ptr(4)}

	// When: the same request is made twice
	first, err := l.Snippets(ctx, p)
	require.NoError(t, err)
	second, err := l.Snippets(ctx, p)
	require.NoError(t, err)

	// Then: the second is a hit with identical content
	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.TotalSnippets)
	status, err := l.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.Cache.Hits)
	assert.Equal(t, uint64(1), status.Cache.Misses)
}

func TestSnippets_DirectWhenCallerOrConfigDisablesCache(t *testing.T) {
	ctx := context.Background()
	p := SnippetParams{BookID: "LUNYU", Keyword: "不亦"}

	t.Run("per call", func(t *testing.T) {
		l := newLibrary(t, DefaultOptions())
		p := p
		p.EnableLocalCache = ptr(false)
		_, err := l.Snippets(ctx, p)
		require.NoError(t, err)

		status, _ := l.Status()
		assert.Zero(t, status.Cache.Misses)
		assert.Zero(t, status.Cache.Size)
	})

	t.Run("by configuration", func(t *testing.T) {
		opts := DefaultOptions()
		opts.CacheEnabled = false
		l := newLibrary(t, opts)
		_, err := l.Snippets(ctx, p)
		require.NoError(t, err)

		status, _ := l.Status()
		assert.False(t, status.CacheEnabled)
		assert.Zero(t, status.Cache.Size)
	})
}

func TestSnippets_PreviewAndErrors(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()

	resp, err := l.Snippets(ctx, SnippetParams{BookID: "LUNYU", MaxSnippets: ptr(2), ContextLength: ptr(3)})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 2)
	assert.Equal(t, "学而时", resp.Snippets[0].Content)
	assert.Equal(t, "为政以", resp.Snippets[1].Content)

	_, err = l.Snippets(ctx, SnippetParams{BookID: "SHIJI"})
	assert.True(t, gerrors.IsNotFound(err))

	_, err = l.Snippets(ctx, SnippetParams{BookID: "LUNYU", MaxSnippets: ptr(51)})
	assert.True(t, gerrors.IsInvalidArgument(err))

	_, err = l.Snippets(ctx, SnippetParams{BookID: "LUNYU", ContextLength: ptr(0)})
	assert.True(t, gerrors.IsInvalidArgument(err))

	status, _ := l.Status()
	assert.Equal(t, 1, status.Cache.Size, "only the preview is cached")
}

func TestReload_BumpsVersionAndInvalidatesCache(t *testing.T) {
	// Given: a cached snippet list at version 1
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()
	p := SnippetParams{BookID: "LUNYU", Keyword: "不亦"}
	_, err := l.Snippets(ctx, p)
	require.NoError(t, err)

	// When: the corpus is replaced by one where 学而 has a new body
	doc := lunyu()
	doc.Chapters[0].Body = "不亦善乎。"
	require.NoError(t, l.Reload(ctx, newCorpus(t, doc)))

	// Then: the version moves and the snippet is recomputed from the new text
	assert.Equal(t, uint64(2), l.Version())
	resp, err := l.Snippets(ctx, p)
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "不亦善乎。", resp.Snippets[0].Content)

	status, _ := l.Status()
	assert.Equal(t, uint64(2), status.Cache.Misses)
	assert.Equal(t, 1, status.Books)

	_, err = l.BookInfo(ctx, BookInfoParams{BookID: "MENGZI"})
	assert.True(t, gerrors.IsNotFound(err))
}

func TestReload_RetiredSnapshotClosesAfterLastRelease(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()

	snap, err := l.acquire()
	require.NoError(t, err)
	require.NoError(t, l.Reload(ctx, newCorpus(t, mengzi())))

	q := index.Query{Keyword: "而", Page: 1, Limit: 10}
	_, err = snap.index.Search(ctx, q)
	require.NoError(t, err, "pinned snapshot keeps serving")

	snap.release()
	_, err = snap.index.Search(ctx, q)
	assert.True(t, gerrors.IsInternal(err))
}

func TestReload_ConcurrentWithQueries(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := l.Search(ctx, SearchParams{Keyword: "而"}); err != nil {
					errs <- err
				}
				if _, err := l.Snippets(ctx, SnippetParams{BookID: "LUNYU", Keyword: "而"}); err != nil {
					errs <- err
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Reload(ctx, newCorpus(t, lunyu(), mengzi())))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("query failed during reload: %v", err)
	}
	assert.Equal(t, uint64(6), l.Version())
}

func TestClose_RejectsQueries(t *testing.T) {
	l, err := New(context.Background(), newCorpus(t, lunyu()), DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Search(context.Background(), SearchParams{Keyword: "而"})
	assert.True(t, gerrors.IsInternal(err))
	assert.Zero(t, l.Version())
	assert.Error(t, l.Reload(context.Background(), newCorpus(t, lunyu())))
}

func TestThemes(t *testing.T) {
	l := newLibrary(t, DefaultOptions())

	resp, err := l.Themes(context.Background(), ThemeParams{Content: "仁者爱人。仁者无敌。", MaxThemes: ptr(1)})
	require.NoError(t, err)
	require.Len(t, resp.Themes, 1)
	assert.Equal(t, "仁者", resp.Themes[0].Word)
	assert.Equal(t, 2, resp.Themes[0].Count)

	_, err = l.Themes(context.Background(), ThemeParams{Content: "仁", MaxThemes: ptr(21)})
	assert.True(t, gerrors.IsInvalidArgument(err))
}

func TestBooksAndStatus(t *testing.T) {
	l := newLibrary(t, DefaultOptions())

	books, err := l.Books()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "LUNYU", books[0].BookID)
	assert.Nil(t, books[0].Chapters)

	status, err := l.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, status.Books)
	assert.Equal(t, 4, status.Chapters)
	assert.Equal(t, uint64(1), status.CorpusVersion)
}

func TestCall_RecordsTelemetry(t *testing.T) {
	rec := &recorder{}
	opts := DefaultOptions()
	opts.Recorder = rec
	l := newLibrary(t, opts)
	ctx := context.Background()

	_, _ = l.Search(ctx, SearchParams{Keyword: "而"})
	_, _ = l.Search(ctx, SearchParams{Keyword: "史记"})
	_, _ = l.BookInfo(ctx, BookInfoParams{BookID: "SHIJI"})

	require.Len(t, rec.events, 3)
	assert.Equal(t, telemetry.OpSearch, rec.events[0].Operation)
	assert.Equal(t, 2, rec.events[0].ResultCount)
	assert.True(t, rec.events[1].IsZeroResult())
	assert.Equal(t, telemetry.OpBookInfo, rec.events[2].Operation)
	assert.True(t, rec.events[2].Failed)
}

func TestCall_CancelledContext(t *testing.T) {
	l := newLibrary(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Snippets(ctx, SnippetParams{BookID: "LUNYU", Keyword: "而", EnableLocalCache: ptr(false)})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_ReportsIndexProgress(t *testing.T) {
	// Given: options with an index progress hook
	var mu sync.Mutex
	var last, total int
	opts := DefaultOptions()
	opts.OnIndex = func(done, n int) {
		mu.Lock()
		defer mu.Unlock()
		last, total = max(last, done), n
	}

	// When: building a library over four chapters
	newLibrary(t, opts)

	// Then: every chapter is reported
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, last)
}
