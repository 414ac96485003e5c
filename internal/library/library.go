package library

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/gujimcp/internal/corpus"
	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
	"github.com/Aman-CERP/gujimcp/internal/index"
	"github.com/Aman-CERP/gujimcp/internal/snippet"
	"github.com/Aman-CERP/gujimcp/internal/telemetry"
	"github.com/Aman-CERP/gujimcp/internal/themes"
)

// Options configures a Library.
type Options struct {
	Limits       Limits
	CacheEnabled bool
	// CacheSize bounds the snippet cache (0 = snippet.DefaultCacheSize).
	CacheSize int
	Logger    *slog.Logger
	// Recorder, if set, receives one event per operation.
	Recorder telemetry.Recorder
	// OnIndex, if set, reports indexing progress of New and Reload.
	OnIndex func(done, total int)
}

// DefaultOptions enables the cache with default limits.
func DefaultOptions() Options {
	return Options{
		Limits:       DefaultLimits(),
		CacheEnabled: true,
		CacheSize:    snippet.DefaultCacheSize,
	}
}

// Library serves queries over the current corpus snapshot. It is safe for
// concurrent use.
type Library struct {
	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex

	cache    *snippet.Cache
	themes   *themes.Analyzer
	limits   Limits
	useCache bool
	logger   *slog.Logger
	recorder telemetry.Recorder
	onIndex  func(done, total int)
}

// New indexes c and returns a Library serving it as version 1.
func New(ctx context.Context, c *corpus.Corpus, opts Options) (*Library, error) {
	if c == nil {
		return nil, gerrors.InternalError("corpus is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}

	analyzer, err := themes.New()
	if err != nil {
		return nil, err
	}
	l := &Library{
		cache:    snippet.NewCache(opts.CacheSize),
		themes:   analyzer,
		limits:   opts.Limits,
		useCache: opts.CacheEnabled,
		logger:   logger,
		recorder: opts.Recorder,
		onIndex:  opts.OnIndex,
	}
	ix, err := l.build(ctx, c)
	if err != nil {
		return nil, err
	}
	l.current.Store(newSnapshot(c, ix, 1, logger))

	logger.Info("library ready",
		slog.Int("books", c.Len()),
		slog.Int("chapters", c.ChapterCount()),
		slog.Bool("cache_enabled", opts.CacheEnabled))
	return l, nil
}

// Reload indexes c and publishes it as the next corpus version. On failure
// the current snapshot keeps serving.
func (l *Library) Reload(ctx context.Context, c *corpus.Corpus) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	old := l.current.Load()
	if old == nil {
		return errClosed()
	}

	start := time.Now()
	ix, err := l.build(ctx, c)
	if err != nil {
		return err
	}
	next := newSnapshot(c, ix, old.version+1, l.logger)
	if !l.current.CompareAndSwap(old, next) {
		// Closed while building.
		_ = ix.Close()
		return errClosed()
	}
	old.retire()

	l.logger.Info("corpus reloaded",
		slog.Uint64("version", next.version),
		slog.Int("books", c.Len()),
		slog.Int("chapters", c.ChapterCount()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (l *Library) build(ctx context.Context, c *corpus.Corpus) (*index.Index, error) {
	if l.onIndex == nil {
		return index.Build(ctx, c)
	}
	return index.Build(ctx, c, index.WithProgress(l.onIndex))
}

// Version returns the corpus version being served, or 0 after Close.
func (l *Library) Version() uint64 {
	if s := l.current.Load(); s != nil {
		return s.version
	}
	return 0
}

// Close stops serving. Queries in flight finish first.
func (l *Library) Close() error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	if s := l.current.Swap(nil); s != nil {
		s.retire()
		l.cache.Purge()
	}
	return nil
}

func errClosed() error {
	return gerrors.InternalError("library is closed", nil)
}

// acquire pins the current snapshot. The caller must release it.
func (l *Library) acquire() (*snapshot, error) {
	for {
		s := l.current.Load()
		if s == nil {
			return nil, errClosed()
		}
		s.refs.Add(1)
		if l.current.Load() == s {
			return s, nil
		}
		s.release()
	}
}

// call wraps one operation with a request id, logging and telemetry.
func (l *Library) call(ctx context.Context, op telemetry.Operation, keyword string, fn func(*slog.Logger) (int, error)) error {
	logger := l.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("op", string(op)))
	start := time.Now()
	logger.Debug("request started", slog.String("keyword", keyword))

	n, err := fn(logger)
	err = normalize(ctx, err)
	latency := time.Since(start)

	if l.recorder != nil {
		l.recorder.Record(telemetry.QueryEvent{
			Operation:   op,
			Keyword:     keyword,
			ResultCount: n,
			Latency:     latency,
			Failed:      err != nil,
			Timestamp:   start,
		})
	}

	switch {
	case err == nil:
		logger.Info("request completed", slog.Int("results", n), slog.Duration("duration", latency))
	case gerrors.IsInternal(err) && !isContextErr(err):
		logger.Error("request failed", slog.String("error", err.Error()), slog.Duration("duration", latency))
	default:
		logger.Info("request rejected",
			slog.String("code", gerrors.GetCode(err)),
			slog.String("error", err.Error()))
	}
	return err
}

// normalize keeps caller-facing kinds and folds everything else into an
// internal error.
func normalize(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case isContextErr(err):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case gerrors.IsInvalidArgument(err), gerrors.IsNotFound(err):
		return err
	case gerrors.GetCategory(err) == gerrors.CategoryInternal:
		return err
	default:
		return gerrors.InternalError("unexpected failure", err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Search runs a keyword search.
func (l *Library) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	var out *SearchResponse
	err := l.call(ctx, telemetry.OpSearch, p.Keyword, func(*slog.Logger) (int, error) {
		q, err := p.Validate(l.limits)
		if err != nil {
			return 0, err
		}
		snap, err := l.acquire()
		if err != nil {
			return 0, err
		}
		defer snap.release()

		start := time.Now()
		resp, err := snap.index.Search(ctx, q)
		if err != nil {
			return 0, err
		}
		out = &SearchResponse{
			Results:         resp.Results,
			TotalResults:    resp.Total,
			ReturnedResults: len(resp.Results),
			SearchTimeMs:    time.Since(start).Milliseconds(),
			Pagination:      paginate(q.Page, q.Limit, resp.Total),
			CorpusVersion:   snap.version,
		}
		return resp.Total, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BookInfo returns a book's catalogue record. Chapters are listed unless
// IncludeChapters is false.
func (l *Library) BookInfo(ctx context.Context, p BookInfoParams) (*BookInfo, error) {
	var out BookInfo
	err := l.call(ctx, telemetry.OpBookInfo, "", func(*slog.Logger) (int, error) {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		snap, err := l.acquire()
		if err != nil {
			return 0, err
		}
		defer snap.release()

		b, ok := snap.corpus.Book(p.BookID)
		if !ok {
			return 0, gerrors.BookNotFound(p.BookID)
		}
		out = bookInfo(snap.corpus, b, boolOr(p.IncludeChapters, true))
		return 1, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Snippets extracts keyword windows, or chapter openings when the keyword
// is empty.
func (l *Library) Snippets(ctx context.Context, p SnippetParams) (*SnippetsResponse, error) {
	var out *SnippetsResponse
	err := l.call(ctx, telemetry.OpSnippets, p.Keyword, func(logger *slog.Logger) (int, error) {
		req, allowCache, err := p.Validate(l.limits)
		if err != nil {
			return 0, err
		}
		snap, err := l.acquire()
		if err != nil {
			return 0, err
		}
		defer snap.release()

		var source snippetSource = directSource{}
		if allowCache && l.useCache {
			source = cachedSource{cache: l.cache}
		}
		snippets, err := source.Snippets(ctx, snap, req)
		if err != nil {
			return 0, err
		}

		b, _ := snap.corpus.Book(req.BookID)
		out = &SnippetsResponse{
			BookID:        b.ID,
			Title:         b.Title,
			Keyword:       req.Keyword,
			Snippets:      snippets,
			TotalSnippets: len(snippets),
		}
		logger.Debug("snippets extracted", slog.Bool("cache", allowCache && l.useCache))
		return len(snippets), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChapterContent returns one chapter. Annotations and footnotes are
// included unless their flags are false.
func (l *Library) ChapterContent(ctx context.Context, p ChapterParams) (*ChapterContent, error) {
	var out ChapterContent
	err := l.call(ctx, telemetry.OpChapter, "", func(*slog.Logger) (int, error) {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		snap, err := l.acquire()
		if err != nil {
			return 0, err
		}
		defer snap.release()

		b, ok := snap.corpus.Book(p.BookID)
		if !ok {
			return 0, gerrors.BookNotFound(p.BookID)
		}
		ch, ok := snap.corpus.Chapter(p.BookID, p.ChapterID)
		if !ok {
			return 0, gerrors.ChapterNotFound(p.BookID, p.ChapterID)
		}
		prev, next := snap.corpus.Neighbors(p.BookID, p.ChapterID)

		out = ChapterContent{
			BookID:       b.ID,
			BookTitle:    b.Title,
			ChapterID:    ch.ID,
			ChapterTitle: ch.Title,
			Order:        ch.Order,
			Content:      ch.Body,
			WordCount:    ch.WordCount,
			Navigation:   Navigation{PreviousChapter: refOf(prev), NextChapter: refOf(next)},
		}
		if boolOr(p.IncludeAnnotations, true) {
			out.Annotations = append([]string{}, ch.Annotations...)
		}
		if boolOr(p.IncludeFootnotes, true) {
			out.Footnotes = append([]string{}, ch.Footnotes...)
		}
		return 1, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Themes analyses arbitrary text. It does not depend on the corpus.
func (l *Library) Themes(ctx context.Context, p ThemeParams) (*ThemesResponse, error) {
	var out *ThemesResponse
	err := l.call(ctx, telemetry.OpThemes, "", func(*slog.Logger) (int, error) {
		n, err := p.Validate(l.limits)
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		found, err := l.themes.Analyze(p.Content, n)
		if err != nil {
			return 0, err
		}
		out = &ThemesResponse{Themes: found, TotalThemes: len(found)}
		return len(found), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Books lists every book in id order, without chapters.
func (l *Library) Books() ([]BookInfo, error) {
	snap, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer snap.release()

	books := snap.corpus.Books()
	out := make([]BookInfo, len(books))
	for i, b := range books {
		out[i] = bookInfo(snap.corpus, b, false)
	}
	return out, nil
}

// Status reports the served corpus and cache state.
func (l *Library) Status() (*Status, error) {
	snap, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer snap.release()

	return &Status{
		CorpusVersion: snap.version,
		LoadedAt:      snap.loadedAt,
		Books:         snap.corpus.Len(),
		Chapters:      snap.corpus.ChapterCount(),
		CacheEnabled:  l.useCache,
		Cache:         l.cache.Stats(),
	}, nil
}
