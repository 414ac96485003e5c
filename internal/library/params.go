package library

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
)

// SearchParams are the arguments of a keyword search. Nil pointers take
// their defaults.
type SearchParams struct {
	Keyword   string
	Category  string
	Dynasty   string
	Author    string
	Page      *int
	Limit     *int
	PageSize  *int // alias of Limit; Limit wins when both are set
	SortBy    string
	SortOrder string
}

// Validate resolves p into an index query.
func (p SearchParams) Validate(l Limits) (index.Query, error) {
	keyword, err := validKeyword(p.Keyword, l.MaxKeywordLength)
	if err != nil {
		return index.Query{}, err
	}

	page := intOr(p.Page, 1)
	if page < 1 {
		return index.Query{}, gerrors.New(gerrors.ErrCodeOutOfRange, fmt.Sprintf("page must be at least 1, got %d", page), nil).
			WithDetail("field", "page")
	}
	limit := intOr(p.Limit, intOr(p.PageSize, l.DefaultLimit))
	if limit < 1 || limit > l.MaxLimit {
		return index.Query{}, gerrors.OutOfRange("limit", limit, 1, l.MaxLimit)
	}

	by, err := index.ParseSortField(p.SortBy)
	if err != nil {
		return index.Query{}, err
	}
	order, err := index.ParseSortOrder(p.SortOrder, index.DefaultOrder(by))
	if err != nil {
		return index.Query{}, err
	}

	return index.Query{
		Keyword: keyword,
		Filters: index.Filters{
			Category: strings.TrimSpace(p.Category),
			Dynasty:  strings.TrimSpace(p.Dynasty),
			Author:   strings.TrimSpace(p.Author),
		},
		SortBy:        by,
		SortOrder:     order,
		Page:          page,
		Limit:         limit,
		SnippetLength: l.SnippetLength,
	}, nil
}

// BookInfoParams select one book.
type BookInfoParams struct {
	BookID          string
	IncludeChapters *bool
}

// Validate checks the book id.
func (p BookInfoParams) Validate() error {
	return validID("bookId", p.BookID)
}

// SnippetParams are the arguments of snippet extraction.
type SnippetParams struct {
	BookID           string
	Keyword          string
	MaxSnippets      *int
	ContextLength    *int
	EnableLocalCache *bool
}

// Validate resolves p into an extractor request and reports whether the
// caller allows cached results.
func (p SnippetParams) Validate(l Limits) (snippet.Request, bool, error) {
	if err := validID("bookId", p.BookID); err != nil {
		return snippet.Request{}, false, err
	}
	keyword := strings.TrimSpace(p.Keyword)
	if keyword != "" {
		var err error
		if keyword, err = validKeyword(keyword, l.MaxKeywordLength); err != nil {
			return snippet.Request{}, false, err
		}
	}

	maxSnippets := intOr(p.MaxSnippets, l.DefaultSnippets)
	if maxSnippets < 1 || maxSnippets > l.MaxSnippets {
		return snippet.Request{}, false, gerrors.OutOfRange("maxSnippets", maxSnippets, 1, l.MaxSnippets)
	}
	contextLength := intOr(p.ContextLength, l.DefaultContextLength)
	if contextLength < 1 || contextLength > l.MaxContextLength {
		return snippet.Request{}, false, gerrors.OutOfRange("contextLength", contextLength, 1, l.MaxContextLength)
	}

	return snippet.Request{
		BookID:        p.BookID,
		Keyword:       keyword,
		MaxSnippets:   maxSnippets,
		ContextLength: contextLength,
	}, boolOr(p.EnableLocalCache, true), nil
}

// ChapterParams select one chapter.
type ChapterParams struct {
	BookID             string
	ChapterID          string
	IncludeAnnotations *bool
	IncludeFootnotes   *bool
}

// Validate checks both ids.
func (p ChapterParams) Validate() error {
	if err := validID("bookId", p.BookID); err != nil {
		return err
	}
	return validID("chapterId", p.ChapterID)
}

// ThemeParams are the arguments of theme analysis.
type ThemeParams struct {
	Content   string
	MaxThemes *int
}

// Validate resolves the theme limit.
func (p ThemeParams) Validate(l Limits) (int, error) {
	n := intOr(p.MaxThemes, l.DefaultThemes)
	if n < 1 || n > l.MaxThemes {
		return 0, gerrors.OutOfRange("maxThemes", n, 1, l.MaxThemes)
	}
	return n, nil
}

func validKeyword(keyword string, maxRunes int) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(index.Sequence(keyword)) == 0 {
		return "", gerrors.New(gerrors.ErrCodeEmptyKeyword, "keyword must contain at least one letter or character", nil).
			WithDetail("field", "keyword")
	}
	if n := utf8.RuneCountInString(keyword); n > maxRunes {
		return "", gerrors.Newf(gerrors.ErrCodeKeywordTooLong, "keyword is %d characters long, the limit is %d", n, maxRunes).
			WithDetail("field", "keyword")
	}
	return keyword, nil
}

func validID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return gerrors.InvalidArgument(field, "is required")
	}
	if !corpus.ValidID(id) {
		return gerrors.InvalidArgument(field, "may only contain letters, digits, '-' and '_'")
	}
	return nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
