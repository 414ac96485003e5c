package index

import (
	"fmt"
	"strings"

	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// SortField selects the ordering of search results.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortTitle     SortField = "title"
	SortAuthor    SortField = "author"
	SortDynasty   SortField = "dynasty"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultSnippetLength is the excerpt length used when a Query leaves it unset.
const DefaultSnippetLength = 100

// ParseSortField validates a sortBy argument. Empty means relevance.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortTitle, SortAuthor, SortDynasty:
		return f, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidSort,
			fmt.Sprintf("sortBy must be one of relevance, title, author, dynasty; got %q", s), nil).
			WithDetail("field", "sortBy")
	}
}

// ParseSortOrder validates a sortOrder argument. Empty returns def.
func ParseSortOrder(s string, def SortOrder) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return def, nil
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidSort,
			fmt.Sprintf("sortOrder must be asc or desc; got %q", s), nil).
			WithDetail("field", "sortOrder")
	}
}

// Filters restrict results by exact book metadata. Empty fields match anything.
type Filters struct {
	Category string `json:"category,omitempty"`
	Dynasty  string `json:"dynasty,omitempty"`
	Author   string `json:"author,omitempty"`
}

// Query is a fully resolved search request.
type Query struct {
	Keyword       string
	Filters       Filters
	SortBy        SortField
	SortOrder     SortOrder
	Page          int
	Limit         int
	SnippetLength int
}

// resolve validates q and fills the default sort. Relevance defaults to
// descending order, field sorts to ascending.
func (q Query) resolve() (Query, error) {
	if strings.TrimSpace(q.Keyword) == "" {
		return q, gerrors.New(gerrors.ErrCodeEmptyKeyword, "keyword must not be empty", nil).
			WithDetail("field", "keyword")
	}
	by, err := ParseSortField(string(q.SortBy))
	if err != nil {
		return q, err
	}
	order, err := ParseSortOrder(string(q.SortOrder), DefaultOrder(by))
	if err != nil {
		return q, err
	}
	if q.Page < 1 {
		return q, gerrors.InvalidArgument("page", fmt.Sprintf("must be at least 1, got %d", q.Page))
	}
	if q.Limit < 1 {
		return q, gerrors.InvalidArgument("limit", fmt.Sprintf("must be at least 1, got %d", q.Limit))
	}
	q.SortBy, q.SortOrder = by, order
	return q, nil
}

// DefaultOrder is the order used when sortOrder is omitted.
func DefaultOrder(by SortField) SortOrder {
	if by == SortRelevance {
		return SortDesc
	}
	return SortAsc
}

func (q Query) snippetLength() int {
	if q.SnippetLength > 0 {
		return q.SnippetLength
	}
	return DefaultSnippetLength
}

// Result is one matching book.
type Result struct {
	BookID        string  `json:"bookId"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Dynasty       string  `json:"dynasty"`
	Category      string  `json:"category"`
	Description   string  `json:"description,omitempty"`
	TotalChapters int     `json:"totalChapters"`
	ChapterID     string  `json:"chapterId"`
	ChapterTitle  string  `json:"chapterTitle"`
	Snippet       string  `json:"snippet"`
	Score         float64 `json:"relevanceScore"`
}

// Response is one page of results.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"totalResults"`
}
