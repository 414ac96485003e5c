// Package output formats library responses for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/gujimcp/internal/library"
)

// Writer prints status lines and query results.
type Writer struct {
	out io.Writer
}

// New creates a Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a message with an icon. Write errors are ignored.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
}

// Statusf prints a formatted status message.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) { w.Status("✅", msg) }

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

// Warning prints a warning message.
func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

// Error prints an error message.
func (w *Writer) Error(msg string) { w.Status("❌", msg) }

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) { w.Error(fmt.Sprintf(format, args...)) }

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON prints v as indented JSON without HTML escaping.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Block prints text indented by two spaces.
func (w *Writer) Block(text string) {
	for _, line := range strings.Split(text, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}

// SearchResults prints one page of search results.
func (w *Writer) SearchResults(keyword string, resp *library.SearchResponse) {
	if resp.TotalResults == 0 {
		w.Warningf("No results for %q", keyword)
		return
	}
	w.Statusf("🔎", "%d results for %q (page %d/%d, %dms)",
		resp.TotalResults, keyword, resp.Pagination.CurrentPage, resp.Pagination.TotalPages, resp.SearchTimeMs)
	w.Newline()
	for i, r := range resp.Results {
		_, _ = fmt.Fprintf(w.out, "%d. %s 《%s》 %s · %s  [%.2f]\n",
			i+1, r.BookID, r.Title, byline(r.Dynasty, r.Author), r.Category, r.Score)
		if r.ChapterTitle != "" {
			_, _ = fmt.Fprintf(w.out, "   %s (%s)\n", r.ChapterTitle, r.ChapterID)
		}
		if r.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "   %s\n", oneLine(r.Snippet))
		}
	}
	if resp.Pagination.HasNext {
		w.Newline()
		w.Status("", fmt.Sprintf("More results: --page %d", resp.Pagination.CurrentPage+1))
	}
}

// Book prints a catalogue record.
func (w *Writer) Book(b *library.BookInfo) {
	_, _ = fmt.Fprintf(w.out, "《%s》 %s\n", b.Title, b.BookID)
	_, _ = fmt.Fprintf(w.out, "  %s · %s\n", byline(b.Dynasty, b.Author), b.Category)
	_, _ = fmt.Fprintf(w.out, "  %d chapters, %d characters\n", b.TotalChapters, b.WordCount)
	if b.Description != "" {
		w.Newline()
		w.Block(b.Description)
	}
	if len(b.Chapters) > 0 {
		w.Newline()
		for _, ch := range b.Chapters {
			_, _ = fmt.Fprintf(w.out, "  %3d. %s (%s) %d\n", ch.Order, ch.Title, ch.ChapterID, ch.WordCount)
		}
	}
}

// Chapter prints a chapter with its notes and neighbours.
func (w *Writer) Chapter(c *library.ChapterContent) {
	_, _ = fmt.Fprintf(w.out, "《%s》 %s · %s\n\n", c.BookTitle, c.ChapterTitle, c.ChapterID)
	w.Block(c.Content)
	if len(c.Annotations) > 0 {
		_, _ = fmt.Fprintln(w.out, "\nAnnotations:")
		for i, a := range c.Annotations {
			_, _ = fmt.Fprintf(w.out, "  [%d] %s\n", i+1, a)
		}
	}
	if len(c.Footnotes) > 0 {
		_, _ = fmt.Fprintln(w.out, "\nFootnotes:")
		for i, f := range c.Footnotes {
			_, _ = fmt.Fprintf(w.out, "  [%d] %s\n", i+1, f)
		}
	}
	w.Newline()
	if p := c.Navigation.PreviousChapter; p != nil {
		_, _ = fmt.Fprintf(w.out, "← %s (%s)\n", p.Title, p.ChapterID)
	}
	if n := c.Navigation.NextChapter; n != nil {
		_, _ = fmt.Fprintf(w.out, "→ %s (%s)\n", n.Title, n.ChapterID)
	}
}

// Snippets prints extracted snippets.
func (w *Writer) Snippets(resp *library.SnippetsResponse) {
	if resp.TotalSnippets == 0 {
		w.Warningf("No snippets in %s for %q", resp.BookID, resp.Keyword)
		return
	}
	_, _ = fmt.Fprintf(w.out, "《%s》 %d snippets\n\n", resp.Title, resp.TotalSnippets)
	for _, s := range resp.Snippets {
		_, _ = fmt.Fprintf(w.out, "%s (%s) [%.2f]\n", s.ChapterTitle, s.ChapterID, s.Score)
		_, _ = fmt.Fprintf(w.out, "  %s\n", oneLine(s.Content))
	}
}

// Themes prints theme words with counts.
func (w *Writer) Themes(resp *library.ThemesResponse) {
	if resp.TotalThemes == 0 {
		w.Warning("No themes found")
		return
	}
	width := 0
	for _, t := range resp.Themes {
		width = max(width, len([]rune(t.Word)))
	}
	for i, t := range resp.Themes {
		pad := strings.Repeat(" ", width-len([]rune(t.Word)))
		_, _ = fmt.Fprintf(w.out, "%2d. %s%s  %d\n", i+1, t.Word, pad, t.Count)
	}
}

func byline(dynasty, author string) string {
	switch {
	case dynasty != "" && author != "":
		return fmt.Sprintf("[%s] %s", dynasty, author)
	case author != "":
		return author
	case dynasty != "":
		return "[" + dynasty + "]"
	default:
		return "佚名"
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
