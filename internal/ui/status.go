package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// StatusInfo describes a loaded corpus.
type StatusInfo struct {
	CorpusPath    string         `json:"corpus_path"`
	Books         int            `json:"books"`
	Chapters      int            `json:"chapters"`
	Words         int            `json:"words"`
	Categories    map[string]int `json:"categories"`
	Dynasties     map[string]int `json:"dynasties"`
	LoadDuration  time.Duration  `json:"load_duration_ns"`
	CacheEnabled  bool           `json:"cache_enabled"`
	CacheCapacity int            `json:"cache_capacity"`
	Watch         bool           `json:"watch"`
	TelemetryPath string         `json:"telemetry_path,omitempty"`
}

// StatusRenderer prints corpus status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus: "+info.CorpusPath))

	_, _ = fmt.Fprintf(r.out, "  Books:      %d\n", info.Books)
	_, _ = fmt.Fprintf(r.out, "  Chapters:   %d\n", info.Chapters)
	_, _ = fmt.Fprintf(r.out, "  Characters: %d\n", info.Words)
	if info.LoadDuration > 0 {
		_, _ = fmt.Fprintf(r.out, "  Loaded in:  %s\n", formatDuration(info.LoadDuration))
	}

	r.renderCounts("Categories", info.Categories)
	r.renderCounts("Dynasties", info.Dynasties)

	_, _ = fmt.Fprintln(r.out)
	cache := "disabled"
	if info.CacheEnabled {
		cache = fmt.Sprintf("enabled (%d entries)", info.CacheCapacity)
	}
	_, _ = fmt.Fprintf(r.out, "  Snippet cache: %s\n", r.renderFlag(info.CacheEnabled, cache))
	watch := "off"
	if info.Watch {
		watch = "on"
	}
	_, _ = fmt.Fprintf(r.out, "  Watch:         %s\n", r.renderFlag(info.Watch, watch))
	if info.TelemetryPath != "" {
		_, _ = fmt.Fprintf(r.out, "  Telemetry:     %s\n", info.TelemetryPath)
	}
	return nil
}

func (r *StatusRenderer) renderCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(r.out, "\n  %s:\n", label)
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(unknown)"
		}
		_, _ = fmt.Fprintf(r.out, "    %s %d\n", r.styles.Label.Render(name+":"), counts[k])
	}
}

func (r *StatusRenderer) renderFlag(on bool, text string) string {
	if on {
		return r.styles.Success.Render(text)
	}
	return r.styles.Warning.Render(text)
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(info)
}
