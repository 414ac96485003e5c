// Package index provides the ranked full-text search index over a corpus.
//
// Each chapter is one bleve document. Body and title fields are analyzed
// with the classical-text tokenizer; category, dynasty and author are
// keyword fields used as exact filters. Relevance is computed from the term
// locations bleve returns, then aggregated per book.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// GujiAnalyzerName is the analyzer used for body and title fields.
const GujiAnalyzerName = "guji_analyzer"

// Field names in the bleve document.
const (
	fieldBody         = "body"
	fieldBookTitle    = "book_title"
	fieldChapterTitle = "chapter_title"
	fieldCategory     = "category"
	fieldDynasty      = "dynasty"
	fieldAuthor       = "author"
	fieldBookID       = "book_id"
)

const batchSize = 500

// chapterDoc is the bleve document for one chapter.
type chapterDoc struct {
	BookID       string `json:"book_id"`
	Body         string `json:"body"`
	BookTitle    string `json:"book_title"`
	ChapterTitle string `json:"chapter_title"`
	Category     string `json:"category"`
	Dynasty      string `json:"dynasty"`
	Author       string `json:"author"`
}

type docRef struct {
	bookID    string
	chapterID string
}

// Index is an immutable search index over one corpus snapshot. It is safe
// for concurrent searches.
type Index struct {
	bleve  bleve.Index
	corpus *corpus.Corpus
	docs   map[string]docRef
	closed atomic.Bool
}

// Stats describes an index.
type Stats struct {
	Books    int `json:"books"`
	Chapters int `json:"chapters"`
}

func docID(bookID, chapterID string) string {
	return bookID + "/" + chapterID
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(GujiAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": GujiTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	text := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = GujiAnalyzerName
		fm.Store = false
		fm.IncludeTermVectors = true
		return fm
	}
	exact := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = false
		fm.IncludeTermVectors = false
		return fm
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldBody, text())
	doc.AddFieldMappingsAt(fieldBookTitle, text())
	doc.AddFieldMappingsAt(fieldChapterTitle, text())
	doc.AddFieldMappingsAt(fieldCategory, exact())
	doc.AddFieldMappingsAt(fieldDynasty, exact())
	doc.AddFieldMappingsAt(fieldAuthor, exact())
	doc.AddFieldMappingsAt(fieldBookID, exact())

	im.DefaultMapping = doc
	im.DefaultAnalyzer = GujiAnalyzerName
	return im, nil
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	progress func(done, total int)
}

// WithProgress reports the number of chapters indexed so far.
func WithProgress(fn func(done, total int)) BuildOption {
	return func(o *buildOptions) { o.progress = fn }
}

// Build indexes every chapter of c into a new in-memory index.
func Build(ctx context.Context, c *corpus.Corpus, opts ...BuildOption) (*Index, error) {
	start := time.Now()
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	total := c.ChapterCount()

	im, err := createIndexMapping()
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeIndexFailed, "failed to create index mapping", err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeIndexFailed, "failed to create index", err)
	}

	ix := &Index{
		bleve:  idx,
		corpus: c,
		docs:   make(map[string]docRef, c.ChapterCount()),
	}

	batch := idx.NewBatch()
	for _, bookID := range c.BookIDs() {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return nil, err
		}
		book, _ := c.Book(bookID)
		for _, ch := range c.Chapters(bookID) {
			id := docID(bookID, ch.ID)
			if err := batch.Index(id, chapterDoc{
				BookID:       bookID,
				Body:         ch.Body,
				BookTitle:    book.Title,
				ChapterTitle: ch.Title,
				Category:     book.Category,
				Dynasty:      book.Dynasty,
				Author:       book.Author,
			}); err != nil {
				_ = idx.Close()
				return nil, gerrors.New(gerrors.ErrCodeIndexFailed, fmt.Sprintf("failed to index chapter %s", id), err)
			}
			ix.docs[id] = docRef{bookID: bookID, chapterID: ch.ID}
			if bo.progress != nil {
				bo.progress(len(ix.docs), total)
			}

			if batch.Size() >= batchSize {
				if err := idx.Batch(batch); err != nil {
					_ = idx.Close()
					return nil, gerrors.New(gerrors.ErrCodeIndexFailed, "failed to execute batch", err)
				}
				batch = idx.NewBatch()
			}
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			_ = idx.Close()
			return nil, gerrors.New(gerrors.ErrCodeIndexFailed, "failed to execute batch", err)
		}
	}

	slog.Debug("index_built",
		slog.Int("books", c.Len()),
		slog.Int("chapters", len(ix.docs)),
		slog.Duration("duration", time.Since(start)))
	return ix, nil
}

// Stats returns document counts.
func (ix *Index) Stats() Stats {
	return Stats{Books: ix.corpus.Len(), Chapters: len(ix.docs)}
}

// Close releases the index. Searches after Close fail. Callers must not
// close an index that still has searches in flight.
func (ix *Index) Close() error {
	if !ix.closed.CompareAndSwap(false, true) {
		return nil
	}
	return ix.bleve.Close()
}

// candidate is the best chapter of one book for a query.
type candidate struct {
	book    corpus.Book
	chapter *corpus.Chapter
	body    Postings
	score   float64
}

// Search runs q and returns one page of book results plus the total number
// of matching books.
func (ix *Index) Search(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()

	q, err := q.resolve()
	if err != nil {
		return nil, err
	}
	terms := Terms(q.Keyword)
	if len(terms) == 0 {
		return nil, gerrors.New(gerrors.ErrCodeEmptyKeyword, "keyword contains no searchable terms", nil).
			WithDetail("field", "keyword")
	}

	if ix.closed.Load() {
		return nil, gerrors.InternalError("index is closed", nil)
	}

	req := bleve.NewSearchRequestOptions(ix.buildQuery(q), max(len(ix.docs), 1), 0, false)
	req.IncludeLocations = true

	res, err := ix.bleve.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gerrors.New(gerrors.ErrCodeIndexFailed, "search failed", err)
	}

	best := make(map[string]*candidate)
	for _, hit := range res.Hits {
		ref, ok := ix.docs[hit.ID]
		if !ok {
			return nil, gerrors.New(gerrors.ErrCodeIndexCorrupt, fmt.Sprintf("hit %q has no chapter", hit.ID), nil)
		}
		ch, ok := ix.corpus.Chapter(ref.bookID, ref.chapterID)
		if !ok {
			return nil, gerrors.New(gerrors.ErrCodeIndexCorrupt,
				fmt.Sprintf("hit %q resolves to missing chapter", hit.ID), nil)
		}

		cur := best[ref.bookID]
		if cur == nil {
			book, ok := ix.corpus.Book(ref.bookID)
			if !ok {
				return nil, gerrors.New(gerrors.ErrCodeIndexCorrupt,
					fmt.Sprintf("hit %q resolves to missing book", hit.ID), nil)
			}
			cur = &candidate{book: book, score: -1}
			best[ref.bookID] = cur
		}

		body := postingsFromLocations(hit.Locations[fieldBody])
		sig := SignalsOf(body, terms,
			ContainsAll(cur.book.Title, terms),
			ContainsAll(ch.Title, terms))
		score := sig.Score()
		if score > cur.score || (score == cur.score && ch.Order < cur.chapter.Order) {
			cur.chapter, cur.body, cur.score = ch, body, score
		}
	}

	cands := make([]*candidate, 0, len(best))
	maxScore := 0.0
	for _, c := range best {
		cands = append(cands, c)
		maxScore = max(maxScore, c.score)
	}
	for _, c := range cands {
		if maxScore > 0 {
			c.score /= maxScore
		}
	}
	sortCandidates(cands, q.SortBy, q.SortOrder)

	resp := &Response{Results: []Result{}, Total: len(cands)}
	if from, to, ok := pageBounds(q.Page, q.Limit, len(cands)); ok {
		for _, c := range cands[from:to] {
			resp.Results = append(resp.Results, c.result(terms, q.snippetLength()))
		}
	}

	slog.Debug("search_complete",
		slog.String("keyword", q.Keyword),
		slog.Int("hits", len(res.Hits)),
		slog.Int("books", len(cands)),
		slog.Int("returned", len(resp.Results)),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

// pageBounds returns the slice bounds of page within n items. Pages past
// the end report ok=false; page and limit may be arbitrarily large.
func pageBounds(page, limit, n int) (from, to int, ok bool) {
	pages := n / limit
	if n%limit != 0 {
		pages++
	}
	if page-1 >= pages {
		return 0, 0, false
	}
	from = (page - 1) * limit
	return from, from + min(limit, n-from), true
}

// buildQuery matches all terms in the body or in either title, restricted
// by the filters.
func (ix *Index) buildQuery(q Query) query.Query {
	match := func(field string) query.Query {
		mq := bleve.NewMatchQuery(q.Keyword)
		mq.SetField(field)
		mq.SetOperator(query.MatchQueryOperatorAnd)
		return mq
	}
	var root query.Query = bleve.NewDisjunctionQuery(
		match(fieldBody),
		match(fieldBookTitle),
		match(fieldChapterTitle),
	)

	var filters []query.Query
	for field, value := range map[string]string{
		fieldCategory: q.Filters.Category,
		fieldDynasty:  q.Filters.Dynasty,
		fieldAuthor:   q.Filters.Author,
	} {
		if value = strings.TrimSpace(value); value != "" {
			tq := bleve.NewTermQuery(value)
			tq.SetField(field)
			filters = append(filters, tq)
		}
	}
	if len(filters) > 0 {
		root = bleve.NewConjunctionQuery(append(filters, root)...)
	}
	return root
}

func postingsFromLocations(tlm search.TermLocationMap) Postings {
	p := make(Postings, len(tlm))
	for term, locs := range tlm {
		occs := make([]Occurrence, 0, len(locs))
		for _, l := range locs {
			occs = append(occs, Occurrence{Pos: int(l.Pos), Start: int(l.Start), End: int(l.End)})
		}
		sort.Slice(occs, func(i, j int) bool { return occs[i].Pos < occs[j].Pos })
		p[term] = occs
	}
	return p
}

// result shapes a candidate, cutting the snippet around its tightest match.
func (c *candidate) result(terms []string, length int) Result {
	body := c.chapter.Body
	var snippet string
	if _, first, last, ok := c.body.MinSpan(terms); ok {
		snippet = Excerpt(body, first.Start, last.End, length)
	} else if occ, ok := earliest(c.body); ok {
		snippet = Excerpt(body, occ.Start, occ.End, length)
	} else {
		snippet = Slice([]rune(body), 0, length)
	}

	return Result{
		BookID:        c.book.ID,
		Title:         c.book.Title,
		Author:        c.book.Author,
		Dynasty:       c.book.Dynasty,
		Category:      c.book.Category,
		Description:   c.book.Description,
		TotalChapters: c.book.TotalChapters,
		ChapterID:     c.chapter.ID,
		ChapterTitle:  c.chapter.Title,
		Snippet:       snippet,
		Score:         c.score,
	}
}

func earliest(p Postings) (Occurrence, bool) {
	var (
		best  Occurrence
		found bool
	)
	for _, occs := range p {
		if len(occs) > 0 && (!found || occs[0].Pos < best.Pos) {
			best, found = occs[0], true
		}
	}
	return best, found
}

func sortCandidates(cands []*candidate, by SortField, order SortOrder) {
	key := func(c *candidate) string {
		switch by {
		case SortTitle:
			return c.book.Title
		case SortAuthor:
			return c.book.Author
		case SortDynasty:
			return c.book.Dynasty
		}
		return ""
	}
	desc := order == SortDesc

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if by == SortRelevance {
			if a.score != b.score {
				if desc {
					return a.score > b.score
				}
				return a.score < b.score
			}
		} else if ka, kb := key(a), key(b); ka != kb {
			if desc {
				return ka > kb
			}
			return ka < kb
		}
		return a.book.ID < b.book.ID
	})
}
