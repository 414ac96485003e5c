package library

import (
	"time"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
	"github.com/Aman-CERP/gujimcp/internal/themes"
)

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

func paginate(page, limit, total int) Pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Results         []index.Result `json:"results"`
	TotalResults    int            `json:"totalResults"`
	ReturnedResults int            `json:"returnedResults"`
	SearchTimeMs    int64          `json:"searchTime"`
	Pagination      Pagination     `json:"pagination"`
	CorpusVersion   uint64         `json:"corpusVersion"`
}

// ChapterSummary is a chapter entry in a BookInfo.
type ChapterSummary struct {
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	WordCount int    `json:"wordCount"`
}

// BookInfo is the catalogue record of a book.
type BookInfo struct {
	BookID        string           `json:"bookId"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	Dynasty       string           `json:"dynasty"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
	TotalChapters int              `json:"totalChapters"`
	WordCount     int              `json:"wordCount"`
	Chapters      []ChapterSummary `json:"chapters,omitempty"`
}

func bookInfo(c *corpus.Corpus, b corpus.Book, withChapters bool) BookInfo {
	info := BookInfo{
		BookID:        b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Dynasty:       b.Dynasty,
		Category:      b.Category,
		Description:   b.Description,
		TotalChapters: b.TotalChapters,
		WordCount:     b.WordCount,
	}
	if withChapters {
		chapters := c.Chapters(b.ID)
		info.Chapters = make([]ChapterSummary, len(chapters))
		for i, ch := range chapters {
			info.Chapters[i] = ChapterSummary{ChapterID: ch.ID, Title: ch.Title, Order: ch.Order, WordCount: ch.WordCount}
		}
	}
	return info
}

// SnippetsResponse lists the snippets of one book.
type SnippetsResponse struct {
	BookID        string            `json:"bookId"`
	Title         string            `json:"title"`
	Keyword       string            `json:"keyword,omitempty"`
	Snippets      []snippet.Snippet `json:"snippets"`
	TotalSnippets int               `json:"totalSnippets"`
}

// ChapterRef names a neighbouring chapter.
type ChapterRef struct {
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
}

// Navigation links a chapter to its neighbours. Nil means none.
type Navigation struct {
	PreviousChapter *ChapterRef `json:"previousChapter"`
	NextChapter     *ChapterRef `json:"nextChapter"`
}

func refOf(ch *corpus.Chapter) *ChapterRef {
	if ch == nil {
		return nil
	}
	return &ChapterRef{ChapterID: ch.ID, Title: ch.Title}
}

// ChapterContent is the full text of one chapter.
type ChapterContent struct {
	BookID       string     `json:"bookId"`
	BookTitle    string     `json:"bookTitle"`
	ChapterID    string     `json:"chapterId"`
	ChapterTitle string     `json:"chapterTitle"`
	Order        int        `json:"order"`
	Content      string     `json:"content"`
	WordCount    int        `json:"wordCount"`
	Annotations  []string   `json:"annotations,omitempty"`
	Footnotes    []string   `json:"footnotes,omitempty"`
	Navigation   Navigation `json:"navigation"`
}

// ThemesResponse lists themes by descending count.
type ThemesResponse struct {
	Themes      []themes.Theme `json:"themes"`
	TotalThemes int            `json:"totalThemes"`
}

// Status describes the served corpus.
type Status struct {
	CorpusVersion uint64             `json:"corpusVersion"`
	LoadedAt      time.Time          `json:"loadedAt"`
	Books         int                `json:"books"`
	Chapters      int                `json:"chapters"`
	CacheEnabled  bool               `json:"cacheEnabled"`
	Cache         snippet.CacheStats `json:"cache"`
}
