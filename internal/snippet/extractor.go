// Package snippet extracts bounded text windows from a book and caches them.
package snippet

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
	"github.com/Aman-CERP/gujimcp/internal/index"
)

// Snippet is a window of one chapter. Start and End are rune offsets into
// the chapter body.
type Snippet struct {
	ChapterID    string  `json:"chapterId"`
	ChapterTitle string  `json:"chapterTitle"`
	Content      string  `json:"content"`
	Score        float64 `json:"relevanceScore"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
}

// Request selects snippets of one book. An empty Keyword asks for chapter
// openings.
type Request struct {
	BookID        string
	Keyword       string
	MaxSnippets   int
	ContextLength int
}

// Extractor cuts snippets out of a corpus. It is stateless apart from the
// read-only corpus and safe for concurrent use.
type Extractor struct {
	corpus *corpus.Corpus
}

// NewExtractor returns an Extractor over c.
func NewExtractor(c *corpus.Corpus) *Extractor {
	return &Extractor{corpus: c}
}

// match is one keyword occurrence in a chapter.
type match struct {
	chapter int
	first   index.Occurrence
	last    index.Occurrence
	score   float64
}

// span is a window selected for output.
type span struct {
	chapter    int
	start, end int
	score      float64
}

// Extract returns up to req.MaxSnippets snippets ordered by relevance, or
// chapter openings in reading order when no keyword is given.
func (e *Extractor) Extract(req Request) ([]Snippet, error) {
	if req.MaxSnippets < 1 {
		return nil, gerrors.InvalidArgument("maxSnippets", fmt.Sprintf("must be at least 1, got %d", req.MaxSnippets))
	}
	if req.ContextLength < 1 {
		return nil, gerrors.InvalidArgument("contextLength", fmt.Sprintf("must be at least 1, got %d", req.ContextLength))
	}
	book, ok := e.corpus.Book(req.BookID)
	if !ok {
		return nil, gerrors.BookNotFound(req.BookID)
	}
	chapters := e.corpus.Chapters(req.BookID)

	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return preview(chapters, req.MaxSnippets, req.ContextLength), nil
	}

	seq := index.Sequence(keyword)
	if len(seq) == 0 {
		return nil, gerrors.New(gerrors.ErrCodeEmptyKeyword, "keyword contains no searchable terms", nil).
			WithDetail("field", "keyword")
	}
	return e.keywordSnippets(book, chapters, seq, req.MaxSnippets, req.ContextLength)
}

// preview returns the first length runes of each chapter in order.
func preview(chapters []*corpus.Chapter, maxSnippets, length int) []Snippet {
	n := min(maxSnippets, len(chapters))
	out := make([]Snippet, 0, n)
	for _, ch := range chapters[:n] {
		runes := []rune(ch.Body)
		end := min(length, len(runes))
		out = append(out, Snippet{
			ChapterID:    ch.ID,
			ChapterTitle: ch.Title,
			Content:      string(runes[:end]),
			Score:        1,
			Start:        0,
			End:          end,
		})
	}
	return out
}

func (e *Extractor) keywordSnippets(book corpus.Book, chapters []*corpus.Chapter, seq []string, maxSnippets, length int) ([]Snippet, error) {
	terms := index.Terms(strings.Join(seq, " "))

	var phrases, singles []match
	for ci, ch := range chapters {
		tokens := index.Tokenize(ch.Body)
		post := index.PostingsOf(tokens, terms)
		if post.Coverage(terms) == 0 {
			continue
		}
		score := index.SignalsOf(post, terms,
			index.ContainsAll(book.Title, terms),
			index.ContainsAll(ch.Title, terms)).Score()

		for i := 0; i+len(seq) <= len(tokens); i++ {
			if equalTerms(tokens[i:i+len(seq)], seq) {
				phrases = append(phrases, match{
					chapter: ci,
					first:   occurrence(tokens[i]),
					last:    occurrence(tokens[i+len(seq)-1]),
					score:   score,
				})
			}
		}
		for _, occs := range post {
			for _, o := range occs {
				singles = append(singles, match{chapter: ci, first: o, last: o, score: score})
			}
		}
	}

	matches := phrases
	if len(matches) == 0 {
		matches = singles
	}
	if len(matches) == 0 {
		return []Snippet{}, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.chapter != b.chapter {
			return a.chapter < b.chapter
		}
		return a.first.Pos < b.first.Pos
	})
	maxScore := matches[0].score
	matches = matches[:min(maxSnippets, len(matches))]

	runes := make(map[int][]rune)
	spans := make([]span, 0, len(matches))
	for _, m := range matches {
		body := chapters[m.chapter].Body
		if _, ok := runes[m.chapter]; !ok {
			runes[m.chapter] = []rune(body)
		}
		s, en := index.Window(len(runes[m.chapter]),
			index.RuneOffset(body, m.first.Start),
			index.RuneOffset(body, m.last.End),
			length)
		score := 0.0
		if maxScore > 0 {
			score = m.score / maxScore
		}
		spans = append(spans, span{chapter: m.chapter, start: s, end: en, score: score})
	}
	spans = mergeOverlapping(spans)

	out := make([]Snippet, 0, len(spans))
	for _, sp := range spans {
		ch := chapters[sp.chapter]
		out = append(out, Snippet{
			ChapterID:    ch.ID,
			ChapterTitle: ch.Title,
			Content:      index.Slice(runes[sp.chapter], sp.start, sp.end),
			Score:        sp.score,
			Start:        sp.start,
			End:          sp.end,
		})
	}
	return out, nil
}

// mergeOverlapping unions overlapping windows of the same chapter and
// orders the result by score, then chapter, then offset.
func mergeOverlapping(spans []span) []span {
	slices.SortFunc(spans, func(a, b span) int {
		if a.chapter != b.chapter {
			return a.chapter - b.chapter
		}
		return a.start - b.start
	})

	merged := make([]span, 0, len(spans))
	for _, sp := range spans {
		if n := len(merged); n > 0 && merged[n-1].chapter == sp.chapter && sp.start < merged[n-1].end {
			last := &merged[n-1]
			last.end = max(last.end, sp.end)
			last.score = max(last.score, sp.score)
			continue
		}
		merged = append(merged, sp)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		if merged[i].chapter != merged[j].chapter {
			return merged[i].chapter < merged[j].chapter
		}
		return merged[i].start < merged[j].start
	})
	return merged
}

func equalTerms(tokens []index.Token, seq []string) bool {
	for i, t := range seq {
		if tokens[i].Term != t {
			return false
		}
	}
	return true
}

func occurrence(t index.Token) index.Occurrence {
	return index.Occurrence{Pos: t.Pos, Start: t.Start, End: t.End}
}

// String renders a snippet location for logs.
func (s Snippet) String() string {
	return fmt.Sprintf("%s[%d:%d]", s.ChapterID, s.Start, s.End)
}
