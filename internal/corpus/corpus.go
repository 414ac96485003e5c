// Package corpus holds the immutable collection of books and chapters served
// by gujimcp. A Corpus is built once, either from Documents in memory or by
// LoadDir, and is safe for concurrent readers without locking.
package corpus

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"unicode/utf8"

	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// Standard bibliographic categories (四部).
const (
	CategoryClassics    = "经部"
	CategoryHistories   = "史部"
	CategoryPhilosophy  = "子部"
	CategoryCollections = "集部"
)

// Categories lists the four standard categories in traditional order.
var Categories = []string{CategoryClassics, CategoryHistories, CategoryPhilosophy, CategoryCollections}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id can name a book or chapter.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Book is the catalogue record of one text.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Dynasty       string   `json:"dynasty"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	ChapterIDs    []string `json:"chapterIds"`
	TotalChapters int      `json:"totalChapters"`
	WordCount     int      `json:"wordCount"`
}

// Chapter is one chapter of a book. Order is its 1-based position.
type Chapter struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Order       int      `json:"order"`
	Body        string   `json:"body"`
	Annotations []string `json:"annotations,omitempty"`
	Footnotes   []string `json:"footnotes,omitempty"`
	WordCount   int      `json:"wordCount"`
}

// Document is a book with its chapters in reading order, as produced by ingestion.
// Book.ChapterIDs, TotalChapters and the word counts are derived by New.
type Document struct {
	Book     Book
	Chapters []Chapter
}

type entry struct {
	book     Book
	chapters []*Chapter
	byID     map[string]int
}

// Corpus is a read-only set of books addressed by id.
type Corpus struct {
	books    map[string]*entry
	ids      []string
	chapters int
}

// New validates docs and builds a Corpus. Book ids must be unique and chapter
// ids unique within their book.
func New(docs ...Document) (*Corpus, error) {
	c := &Corpus{books: make(map[string]*entry, len(docs))}

	for _, doc := range docs {
		b := doc.Book
		if !ValidID(b.ID) {
			return nil, gerrors.New(gerrors.ErrCodeManifestBad, fmt.Sprintf("invalid book id %q", b.ID), nil)
		}
		if _, dup := c.books[b.ID]; dup {
			return nil, gerrors.New(gerrors.ErrCodeDuplicateID, fmt.Sprintf("duplicate book id %q", b.ID), nil).
				WithDetail("book_id", b.ID)
		}

		e := &entry{byID: make(map[string]int, len(doc.Chapters))}
		b.ChapterIDs = make([]string, 0, len(doc.Chapters))
		b.WordCount = 0

		for i := range doc.Chapters {
			ch := doc.Chapters[i]
			if !ValidID(ch.ID) {
				return nil, gerrors.New(gerrors.ErrCodeManifestBad,
					fmt.Sprintf("invalid chapter id %q in book %q", ch.ID, b.ID), nil)
			}
			if _, dup := e.byID[ch.ID]; dup {
				return nil, gerrors.New(gerrors.ErrCodeDuplicateID,
					fmt.Sprintf("duplicate chapter id %q in book %q", ch.ID, b.ID), nil).
					WithDetail("book_id", b.ID).
					WithDetail("chapter_id", ch.ID)
			}
			if ch.Title == "" {
				ch.Title = ch.ID
			}
			ch.Order = i + 1
			ch.WordCount = utf8.RuneCountInString(ch.Body)
			ch.Annotations = slices.Clone(ch.Annotations)
			ch.Footnotes = slices.Clone(ch.Footnotes)

			e.byID[ch.ID] = len(e.chapters)
			e.chapters = append(e.chapters, &ch)
			b.ChapterIDs = append(b.ChapterIDs, ch.ID)
			b.WordCount += ch.WordCount
		}
		b.TotalChapters = len(e.chapters)
		e.book = b

		c.books[b.ID] = e
		c.ids = append(c.ids, b.ID)
		c.chapters += len(e.chapters)
	}

	sort.Strings(c.ids)
	return c, nil
}

// Book returns a copy of the book record.
func (c *Corpus) Book(id string) (Book, bool) {
	e, ok := c.books[id]
	if !ok {
		return Book{}, false
	}
	b := e.book
	b.ChapterIDs = slices.Clone(b.ChapterIDs)
	return b, true
}

// Chapter returns the chapter of a book. The result must not be modified.
func (c *Corpus) Chapter(bookID, chapterID string) (*Chapter, bool) {
	e, ok := c.books[bookID]
	if !ok {
		return nil, false
	}
	i, ok := e.byID[chapterID]
	if !ok {
		return nil, false
	}
	return e.chapters[i], true
}

// Chapters returns a book's chapters in reading order, or nil for an unknown book.
// The chapters must not be modified.
func (c *Corpus) Chapters(bookID string) []*Chapter {
	e, ok := c.books[bookID]
	if !ok {
		return nil
	}
	return slices.Clone(e.chapters)
}

// Neighbors returns the chapters before and after chapterID, either of which may be nil.
func (c *Corpus) Neighbors(bookID, chapterID string) (prev, next *Chapter) {
	e, ok := c.books[bookID]
	if !ok {
		return nil, nil
	}
	i, ok := e.byID[chapterID]
	if !ok {
		return nil, nil
	}
	if i > 0 {
		prev = e.chapters[i-1]
	}
	if i+1 < len(e.chapters) {
		next = e.chapters[i+1]
	}
	return prev, next
}

// BookIDs returns every book id in ascending order.
func (c *Corpus) BookIDs() []string {
	return slices.Clone(c.ids)
}

// Books returns copies of every book record ordered by id.
func (c *Corpus) Books() []Book {
	out := make([]Book, 0, len(c.ids))
	for _, id := range c.ids {
		b, _ := c.Book(id)
		out = append(out, b)
	}
	return out
}

// Len returns the number of books.
func (c *Corpus) Len() int { return len(c.ids) }

// ChapterCount returns the number of chapters across all books.
func (c *Corpus) ChapterCount() int { return c.chapters }
