package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	gerrors "github.com/Aman-CERP/gujimcp/internal/errors"
)

// ManifestName is the per-book metadata file inside each book directory.
const ManifestName = "book.yaml"

// Manifest is the on-disk form of book.yaml.
//
//	id: LUNYU
//	title: 论语
//	author: 孔子弟子
//	dynasty: 春秋
//	category: 经部
//	chapters:
//	  - id: xueer
//	    title: 学而
//	    file: 01-xueer.txt
//
// When chapters is omitted every .txt and .html file in the directory is a
// chapter, ordered by file name, with the file stem as its id.
type Manifest struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Author      string            `yaml:"author"`
	Dynasty     string            `yaml:"dynasty"`
	Category    string            `yaml:"category"`
	Description string            `yaml:"description"`
	Chapters    []ManifestChapter `yaml:"chapters"`
}

// ManifestChapter describes one chapter file.
type ManifestChapter struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	File        string   `yaml:"file"`
	Annotations []string `yaml:"annotations"`
	Footnotes   []string `yaml:"footnotes"`
}

// LoadOptions configures LoadDir.
type LoadOptions struct {
	// Workers bounds how many books are read at once (0 = NumCPU).
	Workers int
	Logger  *slog.Logger
	// OnBook, if set, is called after each book is read. It may be called
	// from several goroutines at once.
	OnBook func(done, total int, bookID string)
}

// LoadDir reads every book directory under root and builds a Corpus.
// Sub-directories without a book.yaml are skipped.
func LoadDir(ctx context.Context, root string, opts LoadOptions) (*Corpus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gerrors.New(gerrors.ErrCodeCorpusNotFound, fmt.Sprintf("corpus directory %s not found", root), err).
				WithSuggestion("Set corpus.path in .gujimcp.yaml or GUJIMCP_CORPUS_PATH")
		}
		return nil, gerrors.IOError(fmt.Sprintf("cannot read corpus directory %s", root), err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
			logger.Debug("skipping directory without manifest", slog.String("dir", dir))
			continue
		}
		dirs = append(dirs, dir)
	}

	docs := make([]Document, len(dirs))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := loadBook(dir)
			if err != nil {
				return err
			}
			docs[i] = doc
			if opts.OnBook != nil {
				opts.OnBook(int(done.Add(1)), len(dirs), doc.Book.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c, err := New(docs...)
	if err != nil {
		return nil, err
	}

	logger.Info("corpus loaded",
		slog.String("root", root),
		slog.Int("books", c.Len()),
		slog.Int("chapters", c.ChapterCount()))
	return c, nil
}

// loadBook reads one book directory.
func loadBook(dir string) (Document, error) {
	manifestPath := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Document{}, gerrors.IOError("cannot read manifest", err).WithDetail("path", manifestPath)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Document{}, gerrors.New(gerrors.ErrCodeManifestBad, "cannot parse manifest", err).
			WithDetail("path", manifestPath)
	}
	if m.ID == "" {
		m.ID = filepath.Base(dir)
	}

	specs := m.Chapters
	if len(specs) == 0 {
		specs, err = discoverChapters(dir)
		if err != nil {
			return Document{}, err
		}
	}

	doc := Document{
		Book: Book{
			ID:          m.ID,
			Title:       m.Title,
			Author:      m.Author,
			Dynasty:     m.Dynasty,
			Category:    m.Category,
			Description: m.Description,
		},
		Chapters: make([]Chapter, 0, len(specs)),
	}

	for _, spec := range specs {
		ch, err := loadChapter(dir, spec)
		if err != nil {
			return Document{}, err
		}
		doc.Chapters = append(doc.Chapters, ch)
	}
	return doc, nil
}

// discoverChapters lists chapter files when the manifest names none.
func discoverChapters(dir string) ([]ManifestChapter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, gerrors.IOError("cannot list book directory", err).WithDetail("path", dir)
	}

	var specs []ManifestChapter
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".html" && ext != ".htm" {
			continue
		}
		specs = append(specs, ManifestChapter{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			File: e.Name(),
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].File < specs[j].File })
	return specs, nil
}

func loadChapter(dir string, spec ManifestChapter) (Chapter, error) {
	file := spec.File
	if file == "" {
		file = resolveChapterFile(dir, spec.ID)
	}
	path := filepath.Join(dir, file)

	raw, err := os.ReadFile(path)
	if err != nil {
		return Chapter{}, gerrors.IOError("cannot read chapter", err).
			WithDetail("path", path).
			WithDetail("chapter_id", spec.ID)
	}

	ch := Chapter{
		ID:          spec.ID,
		Title:       spec.Title,
		Annotations: spec.Annotations,
		Footnotes:   spec.Footnotes,
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".html", ".htm":
		parsed, err := ParseHTMLChapter(string(raw))
		if err != nil {
			return Chapter{}, gerrors.New(gerrors.ErrCodeCorpusRead, "cannot parse chapter HTML", err).
				WithDetail("path", path)
		}
		ch.Body = parsed.Body
		if ch.Title == "" {
			ch.Title = parsed.Title
		}
		ch.Annotations = append(ch.Annotations, parsed.Annotations...)
		ch.Footnotes = append(ch.Footnotes, parsed.Footnotes...)
	default:
		ch.Body = strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n"))
	}
	return ch, nil
}

// resolveChapterFile picks <id>.txt, then <id>.html, defaulting to <id>.txt.
func resolveChapterFile(dir, id string) string {
	for _, ext := range []string{".txt", ".html", ".htm"} {
		if _, err := os.Stat(filepath.Join(dir, id+ext)); err == nil {
			return id + ext
		}
	}
	return id + ".txt"
}

// ParsedHTML is a chapter extracted from an HTML page.
type ParsedHTML struct {
	Title       string
	Body        string
	Annotations []string
	Footnotes   []string
}

// ParseHTMLChapter extracts the title (first h1, else <title>), the
// .annotation and .footnote elements, and the remaining text of the page.
// Paragraphs become lines of the body.
func ParseHTMLChapter(src string) (ParsedHTML, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return ParsedHTML{}, err
	}

	var out ParsedHTML
	out.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if out.Title == "" {
		out.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find(".annotation").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out.Annotations = append(out.Annotations, text)
		}
	}).Remove()
	doc.Find(".footnote").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out.Footnotes = append(out.Footnotes, text)
		}
	}).Remove()
	doc.Find("head, h1, script, style").Remove()

	body := doc.Find("body")
	var lines []string
	if paras := body.Find("p"); paras.Length() > 0 {
		paras.Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				lines = append(lines, text)
			}
		})
	} else {
		for _, line := range strings.Split(body.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	out.Body = strings.Join(lines, "\n")
	return out, nil
}
