package watcher

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed.
	OpRename
	// OpManifestChange indicates a book.yaml was written or removed.
	OpManifestChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpManifestChange:
		return "MANIFEST_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is relative to the watched root.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// IsDir indicates if the event is for a directory.
	IsDir bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the interval for polling mode (fallback).
	// Default: 5s
	PollInterval time.Duration

	// Extensions lists the file suffixes that belong to a corpus.
	// Default: .yaml .yml .txt .html .htm
	Extensions []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 500 * time.Millisecond,
		PollInterval:   5 * time.Second,
		Extensions:     []string{".yaml", ".yml", ".txt", ".html", ".htm"},
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	return o
}

// filter decides which paths are part of a corpus.
type filter struct {
	extensions map[string]struct{}
}

func newFilter(exts []string) filter {
	f := filter{extensions: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		f.extensions[strings.ToLower(e)] = struct{}{}
	}
	return f
}

// hidden reports whether any element of relPath starts with a dot.
func hidden(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// ignoreDir reports whether a directory should not be watched.
func (f filter) ignoreDir(relPath string) bool {
	return relPath != "." && hidden(relPath)
}

// ignore reports whether an event for relPath is irrelevant. Directories
// are kept so that added or removed books are noticed.
func (f filter) ignore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" || hidden(relPath) {
		return true
	}
	if isDir {
		return false
	}
	_, ok := f.extensions[strings.ToLower(filepath.Ext(relPath))]
	return !ok
}

// isManifest reports whether relPath names a book manifest.
func isManifest(relPath string) bool {
	base := filepath.Base(relPath)
	return base == "book.yaml" || base == "book.yml"
}

// mergeBatches folds next into queued, one event per path. A manifest
// change is never downgraded.
func mergeBatches(queued, next []FileEvent) []FileEvent {
	byPath := make(map[string]FileEvent, len(queued)+len(next))
	for _, ev := range queued {
		byPath[ev.Path] = ev
	}
	for _, ev := range next {
		if old, ok := byPath[ev.Path]; ok && old.Operation == OpManifestChange {
			ev.Operation = OpManifestChange
		}
		byPath[ev.Path] = ev
	}
	merged := make([]FileEvent, 0, len(byPath))
	for _, ev := range byPath {
		merged = append(merged, ev)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Path < merged[j].Path })
	return merged
}

// Books returns the book directories a batch touches, sorted. Events at the
// corpus root are reported as ".".
func Books(batch []FileEvent) []string {
	seen := make(map[string]struct{})
	for _, ev := range batch {
		book, _, nested := strings.Cut(filepath.ToSlash(ev.Path), "/")
		if !nested && !ev.IsDir {
			book = "."
		}
		seen[book] = struct{}{}
	}
	books := make([]string, 0, len(seen))
	for b := range seen {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}
