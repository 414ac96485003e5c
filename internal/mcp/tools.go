package mcp

import (
	"time"

	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
)

// Tool names.
const (
	ToolSearch       = "search_ancient_texts"
	ToolBookInfo     = "extract_book_info"
	ToolSnippets     = "extract_content_snippets"
	ToolChapter      = "get_chapter_content"
	ToolThemes       = "analyze_content_themes"
	ToolCorpusStatus = "corpus_status"
)

// SearchInput defines the input schema for search_ancient_texts.
type SearchInput struct {
	Keyword   string `json:"keyword" jsonschema:"the word or phrase to search for, in classical or modern Chinese"`
	Category  string `json:"category,omitempty" jsonschema:"restrict to a bibliographic category such as 经部, 史部, 子部 or 集部"`
	Dynasty   string `json:"dynasty,omitempty" jsonschema:"restrict to books of one dynasty, e.g. 春秋"`
	Author    string `json:"author,omitempty" jsonschema:"restrict to books by one author"`
	Page      *int   `json:"page,omitempty" jsonschema:"1-based page number, default 1"`
	Limit     *int   `json:"limit,omitempty" jsonschema:"results per page, 1-100, default 20"`
	PageSize  *int   `json:"pageSize,omitempty" jsonschema:"alias of limit"`
	SortBy    string `json:"sortBy,omitempty" jsonschema:"relevance (default), title, author or dynasty"`
	SortOrder string `json:"sortOrder,omitempty" jsonschema:"asc or desc; default desc for relevance, asc otherwise"`
}

func (in SearchInput) params() library.SearchParams {
	return library.SearchParams{
		Keyword:   in.Keyword,
		Category:  in.Category,
		Dynasty:   in.Dynasty,
		Author:    in.Author,
		Page:      in.Page,
		Limit:     in.Limit,
		PageSize:  in.PageSize,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	}
}

// BookInfoInput defines the input schema for extract_book_info.
type BookInfoInput struct {
	BookID          string `json:"bookId" jsonschema:"the book identifier"`
	IncludeChapters *bool  `json:"includeChapters,omitempty" jsonschema:"list the chapters, default true"`
}

// SnippetsInput defines the input schema for extract_content_snippets.
type SnippetsInput struct {
	BookID           string `json:"bookId" jsonschema:"the book identifier"`
	Keyword          string `json:"keyword,omitempty" jsonschema:"keyword to centre snippets on; omit for chapter openings"`
	MaxSnippets      *int   `json:"maxSnippets,omitempty" jsonschema:"maximum snippets, 1-50, default 20"`
	ContextLength    *int   `json:"contextLength,omitempty" jsonschema:"characters per snippet, 1-1000, default 200"`
	EnableLocalCache *bool  `json:"enableLocalCache,omitempty" jsonschema:"allow cached results, default true"`
}

// ChapterInput defines the input schema for get_chapter_content.
type ChapterInput struct {
	BookID             string `json:"bookId" jsonschema:"the book identifier"`
	ChapterID          string `json:"chapterId" jsonschema:"the chapter identifier within the book"`
	IncludeAnnotations *bool  `json:"includeAnnotations,omitempty" jsonschema:"include annotations, default true"`
	IncludeFootnotes   *bool  `json:"includeFootnotes,omitempty" jsonschema:"include footnotes, default true"`
}

// ThemesInput defines the input schema for analyze_content_themes.
type ThemesInput struct {
	Content   string `json:"content" jsonschema:"the text to analyse"`
	MaxThemes *int   `json:"maxThemes,omitempty" jsonschema:"maximum themes, 1-20, default 10"`
}

// CorpusStatusInput defines the input schema for corpus_status (no parameters).
type CorpusStatusInput struct{}

// CorpusStatusOutput defines the output schema for corpus_status.
type CorpusStatusOutput struct {
	CorpusVersion uint64             `json:"corpusVersion"`
	LoadedAt      string             `json:"loadedAt"`
	Books         int                `json:"books"`
	Chapters      int                `json:"chapters"`
	CacheEnabled  bool               `json:"cacheEnabled"`
	Cache         snippet.CacheStats `json:"cache"`
	Watching      bool               `json:"watching"`
}

func statusOutput(st *library.Status, watching bool) *CorpusStatusOutput {
	return &CorpusStatusOutput{
		CorpusVersion: st.CorpusVersion,
		LoadedAt:      st.LoadedAt.Format(time.RFC3339),
		Books:         st.Books,
		Chapters:      st.Chapters,
		CacheEnabled:  st.CacheEnabled,
		Cache:         st.Cache,
		Watching:      watching,
	}
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        ToolSearch,
		Description: "Search the classical text corpus by keyword. Results are books ranked by relevance, each with the best matching chapter and an excerpt. Supports category, dynasty and author filters, sorting and pagination.",
	},
	{
		Name:        ToolBookInfo,
		Description: "Get the catalogue record of a book: title, author, dynasty, category, description and its chapters in reading order.",
	},
	{
		Name:        ToolSnippets,
		Description: "Extract passages of a book around a keyword, ranked by relevance, with a configurable context length. Without a keyword, returns the opening of each chapter.",
	},
	{
		Name:        ToolChapter,
		Description: "Get the full text of one chapter with its annotations, footnotes and links to the previous and next chapters.",
	},
	{
		Name:        ToolThemes,
		Description: "List the most frequent terms of a passage of text, as a quick view of its themes.",
	},
	{
		Name:        ToolCorpusStatus,
		Description: "Report the corpus version being served, book and chapter counts and snippet cache statistics.",
	},
}
